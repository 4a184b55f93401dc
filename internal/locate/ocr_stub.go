//go:build !ocr

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package locate

import (
	"errors"

	"github.com/pdiddy/report-assembler/pkg/types"
)

const ocrEnabled = false

// ErrOCRNotEnabled is returned when OCR is requested from a binary built
// without the "ocr" tag. Rebuild with -tags ocr; Tesseract must be installed.
var ErrOCRNotEnabled = errors.New("OCR support not enabled; rebuild with -tags ocr")

type recognizer interface {
	Recognize(index int) (string, error)
	Close() error
}

func openRecognizer(types.LocatorConfig, string) (recognizer, error) {
	return nil, ErrOCRNotEnabled
}

//go:build ocr

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package locate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/otiai10/gosseract/v2"

	"github.com/pdiddy/report-assembler/pkg/types"
)

const (
	ocrEnabled    = true
	defaultOCRDPI = 150
)

// ErrOCRNotEnabled is never returned by builds with the ocr tag.
var ErrOCRNotEnabled = errors.New("OCR support not enabled; rebuild with -tags ocr")

// recognizer renders one page of a PDF and returns the recognised text.
type recognizer interface {
	Recognize(index int) (string, error)
	Close() error
}

// tesseract renders pages with MuPDF and recognises them with Tesseract.
type tesseract struct {
	doc    *fitz.Document
	client *gosseract.Client
	dpi    float64
}

func openRecognizer(cfg types.LocatorConfig, path string) (recognizer, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s for rendering: %w", path, err)
	}

	client := gosseract.NewClient()
	lang := cfg.OCRLanguage
	if lang == "" {
		lang = "eng"
	}
	if err := client.SetLanguage(strings.Split(lang, "+")...); err != nil {
		client.Close()
		doc.Close()
		return nil, fmt.Errorf("setting OCR language %q: %w", lang, err)
	}

	dpi := cfg.OCRDPI
	if dpi <= 0 {
		dpi = defaultOCRDPI
	}
	return &tesseract{doc: doc, client: client, dpi: dpi}, nil
}

func (t *tesseract) Recognize(index int) (string, error) {
	img, err := t.doc.ImagePNG(index, t.dpi)
	if err != nil {
		return "", fmt.Errorf("rendering page %d: %w", index+1, err)
	}
	if err := t.client.SetImageFromBytes(img); err != nil {
		return "", fmt.Errorf("loading page image: %w", err)
	}
	text, err := t.client.Text()
	if err != nil {
		return "", fmt.Errorf("recognising page %d: %w", index+1, err)
	}
	return strings.TrimSpace(text), nil
}

func (t *tesseract) Close() error {
	cerr := t.client.Close()
	derr := t.doc.Close()
	return errors.Join(cerr, derr)
}

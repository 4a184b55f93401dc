// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tsawler/tabula/format"
)

// ErrUnsupportedFormat reports a source the engine is not asked to render.
var ErrUnsupportedFormat = errors.New("unsupported source format")

// Kind is a source document format accepted for conversion.
type Kind string

const (
	KindDOCX Kind = "docx"
	KindDOCM Kind = "docm"
	KindDOC  Kind = "doc"
	KindRTF  Kind = "rtf"
	KindODT  Kind = "odt"
)

// HasRevisionMarkup reports whether tracked changes in k can be accepted
// before rendering.
func (k Kind) HasRevisionMarkup() bool {
	return k == KindDOCX || k == KindDOCM
}

// Detect classifies path by extension and, for OOXML and OpenDocument
// packages, confirms the content is a word-processing document.
func Detect(path string) (Kind, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".doc":
		return KindDOC, nil
	case ".rtf":
		return KindRTF, nil
	case ".docm":
		if err := checkPackage(path, format.DOCX); err != nil {
			return "", err
		}
		return KindDOCM, nil
	}

	switch format.Detect(path) {
	case format.DOCX:
		if err := checkPackage(path, format.DOCX); err != nil {
			return "", err
		}
		return KindDOCX, nil
	case format.ODT:
		if err := checkPackage(path, format.ODT); err != nil {
			return "", err
		}
		return KindODT, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(path))
}

func checkPackage(path string, want format.Format) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	got, err := format.DetectFromReader(f, info.Size())
	if err != nil {
		return fmt.Errorf("%w: %s is not a readable %s package: %v", ErrUnsupportedFormat, filepath.Base(path), want, err)
	}
	if got != want {
		return fmt.Errorf("%w: %s contains %s, not %s", ErrUnsupportedFormat, filepath.Base(path), got, want)
	}
	return nil
}

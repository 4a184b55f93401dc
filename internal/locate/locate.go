// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package locate finds the anchor page of each section label in a rendered
// report. Pages are scanned from last to first and the first match recorded
// for a label wins, so a label resolves to the highest page index whose text
// contains it. Occurrences in a table of contents or running header near the
// front of the document therefore never shadow the section heading itself.
package locate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/pdiddy/report-assembler/pkg/types"
)

// ErrLocationFailed reports that page text could not be extracted.
var ErrLocationFailed = errors.New("keyword location failed")

// PageSource yields the extracted text of a PDF one page at a time.
// Different extraction libraries (tabula, ledongthuc/pdf, MuPDF) implement
// this interface.
type PageSource interface {
	// PageCount returns the number of pages.
	PageCount() (int, error)

	// PageText returns the text of the zero-based page index. A page
	// without a text layer yields "" and no error.
	PageText(index int) (string, error)

	Close() error
}

// Opener opens a PageSource for the PDF at path.
type Opener func(path string) (PageSource, error)

// Locator maps labels to anchor pages.
type Locator struct {
	open   Opener
	cfg    types.LocatorConfig
	logger *slog.Logger
}

// New returns a Locator using the text backend named in cfg.
func New(cfg types.LocatorConfig, logger *slog.Logger) (*Locator, error) {
	open, err := opener(cfg.Backend)
	if err != nil {
		return nil, err
	}
	if cfg.OCR && !ocrEnabled {
		return nil, ErrOCRNotEnabled
	}
	return newLocator(open, cfg, logger), nil
}

func newLocator(open Opener, cfg types.LocatorConfig, logger *slog.Logger) *Locator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Locator{open: open, cfg: cfg, logger: logger}
}

func opener(backend types.TextBackend) (Opener, error) {
	switch backend {
	case types.TextTabula, "":
		return openTabula, nil
	case types.TextLedongthuc:
		return openLedongthuc, nil
	case types.TextFitz:
		return openFitz, nil
	default:
		return nil, fmt.Errorf("unknown text backend %q: use tabula, ledongthuc, or fitz", backend)
	}
}

// Locate scans pdfPath and returns the anchor page of every label found.
// Matching is an exact, case-sensitive substring test. Labels found on no
// page are omitted from the result. ctx is checked once, before the PDF is
// opened.
func (l *Locator) Locate(ctx context.Context, pdfPath string, labels []types.Label) (types.KeywordPageMap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	found := make(types.KeywordPageMap, len(labels))

	pending := make(map[types.Label]bool, len(labels))
	for _, lb := range labels {
		pending[lb] = true
	}
	if len(pending) == 0 {
		return found, nil
	}

	src, err := l.open(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", ErrLocationFailed, pdfPath, err)
	}
	defer src.Close()

	n, err := src.PageCount()
	if err != nil {
		return nil, fmt.Errorf("%w: counting pages of %s: %v", ErrLocationFailed, pdfPath, err)
	}

	var ocr recognizer
	defer func() {
		if ocr != nil {
			ocr.Close()
		}
	}()

	for i := n - 1; i >= 0 && len(pending) > 0; i-- {
		text, err := pageText(src, i)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d of %s: %v", ErrLocationFailed, i+1, pdfPath, err)
		}

		if strings.TrimSpace(text) == "" && l.cfg.OCR {
			if ocr == nil {
				if ocr, err = openRecognizer(l.cfg, pdfPath); err != nil {
					return nil, fmt.Errorf("%w: starting OCR: %v", ErrLocationFailed, err)
				}
			}
			if text, err = ocr.Recognize(i); err != nil {
				l.logger.Warn("OCR failed, page skipped", "page", i+1, "error", err)
				continue
			}
		}
		if text == "" {
			continue
		}

		for _, lb := range labels {
			if pending[lb] && strings.Contains(text, string(lb)) {
				found[lb] = i
				delete(pending, lb)
				l.logger.Debug("label anchored", "label", lb, "page", i+1)
			}
		}
	}

	for _, lb := range labels {
		if pending[lb] {
			l.logger.Debug("label not found", "label", lb)
		}
	}
	return found, nil
}

// pageText shields the scan from panics inside third-party parsers, which
// some malformed documents trigger.
func pageText(src PageSource, index int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("text extraction panicked: %v", r)
		}
	}()
	return src.PageText(index)
}

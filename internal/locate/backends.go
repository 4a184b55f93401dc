// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package locate

import (
	"fmt"
	"os"

	"github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"
	"github.com/tsawler/tabula"
	"github.com/tsawler/tabula/reader"
)

// tabulaSource extracts text with the pure-Go tabula reader. Fragments are
// assembled into lines in reading order.
type tabulaSource struct {
	r *reader.Reader
}

func openTabula(path string) (PageSource, error) {
	r, err := reader.Open(path)
	if err != nil {
		return nil, err
	}
	return &tabulaSource{r: r}, nil
}

func (s *tabulaSource) PageCount() (int, error) {
	return s.r.PageCount()
}

func (s *tabulaSource) PageText(index int) (string, error) {
	// FromReader does not take ownership, so r stays open across pages.
	text, _, err := tabula.FromReader(s.r).Pages(index + 1).Text()
	return text, err
}

func (s *tabulaSource) Close() error {
	return s.r.Close()
}

// ledongthucSource extracts text with github.com/ledongthuc/pdf, whose page
// numbers are 1-based.
type ledongthucSource struct {
	f *os.File
	r *pdf.Reader
}

func openLedongthuc(path string) (PageSource, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	return &ledongthucSource{f: f, r: r}, nil
}

func (s *ledongthucSource) PageCount() (int, error) {
	return s.r.NumPage(), nil
}

func (s *ledongthucSource) PageText(index int) (string, error) {
	p := s.r.Page(index + 1)
	if p.V.IsNull() {
		return "", nil
	}
	return p.GetPlainText(nil)
}

func (s *ledongthucSource) Close() error {
	return s.f.Close()
}

// fitzSource extracts text with MuPDF through go-fitz.
type fitzSource struct {
	doc *fitz.Document
}

func openFitz(path string) (PageSource, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("opening with MuPDF: %w", err)
	}
	return &fitzSource{doc: doc}, nil
}

func (s *fitzSource) PageCount() (int, error) {
	return s.doc.NumPage(), nil
}

func (s *fitzSource) PageText(index int) (string, error) {
	return s.doc.Text(index)
}

func (s *fitzSource) Close() error {
	return s.doc.Close()
}

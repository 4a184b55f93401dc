// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pdfio is the page-level PDF reader/writer shared by the assembler
// and the folder merger. Documents are held fully in memory so a result may
// be written over one of its own inputs, and every output is written to a
// temporary file and renamed into place only after it is complete.
package pdfio

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func init() {
	// pdfcpu otherwise creates a config directory under the user's home.
	api.DisableConfigDir()
}

// Doc is a PDF loaded into memory.
type Doc struct {
	Path  string
	Data  []byte
	Pages int
}

func newConf() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	// Classic cross-reference tables keep the output readable by older
	// viewers and text extractors.
	conf.WriteObjectStream = false
	conf.WriteXRefStream = false
	return conf
}

// Load reads the PDF at path into memory and counts its pages.
func Load(path string) (*Doc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading PDF %s: %w", path, err)
	}
	n, err := api.PageCount(bytes.NewReader(data), newConf())
	if err != nil {
		return nil, fmt.Errorf("parsing PDF %s: %w", path, err)
	}
	return &Doc{Path: path, Data: data, Pages: n}, nil
}

// PageCount returns the number of pages of the PDF at path.
func PageCount(path string) (int, error) {
	d, err := Load(path)
	if err != nil {
		return 0, err
	}
	return d.Pages, nil
}

// Extract returns a new PDF holding pages first..last (zero-based,
// inclusive) of d.
func (d *Doc) Extract(first, last int) ([]byte, error) {
	if first < 0 || last >= d.Pages || first > last {
		return nil, fmt.Errorf("page range %d-%d out of bounds for %s (%d pages)", first, last, d.Path, d.Pages)
	}
	if first == 0 && last == d.Pages-1 {
		return d.Data, nil
	}
	sel := []string{fmt.Sprintf("%d-%d", first+1, last+1)}
	var out bytes.Buffer
	if err := api.Trim(bytes.NewReader(d.Data), &out, sel, newConf()); err != nil {
		return nil, fmt.Errorf("extracting pages %d-%d of %s: %w", first+1, last+1, d.Path, err)
	}
	return out.Bytes(), nil
}

// Concat writes the pages of every part to w, part after part, each part's
// pages in their own order.
func Concat(w io.Writer, parts [][]byte) error {
	switch len(parts) {
	case 0:
		return fmt.Errorf("nothing to concatenate")
	case 1:
		_, err := w.Write(parts[0])
		return err
	}
	rs := make([]io.ReadSeeker, len(parts))
	for i, p := range parts {
		rs[i] = bytes.NewReader(p)
	}
	if err := api.MergeRaw(rs, w, false, newConf()); err != nil {
		return fmt.Errorf("merging %d documents: %w", len(parts), err)
	}
	return nil
}

// WriteAtomic calls write with a temporary file next to path and renames the
// file over path once write succeeds and the data is synced. On any error the
// temporary file is removed and path is left untouched.
func WriteAtomic(path string, write func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temporary output in %s: %w", dir, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("setting mode on %s: %w", tmp.Name(), err)
	}
	if err = write(tmp); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming output to %s: %w", path, err)
	}
	return nil
}

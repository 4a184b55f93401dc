// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdfio

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/report-assembler/internal/pdftest"
)

func countPages(t *testing.T, data []byte) int {
	t.Helper()
	n, err := api.PageCount(bytes.NewReader(data), newConf())
	require.NoError(t, err)
	return n
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := pdftest.Write(t, dir, "main.pdf", "A", "B", "C")

	doc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, doc.Pages)
	assert.Equal(t, path, doc.Path)

	_, err = Load(filepath.Join(dir, "missing.pdf"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.pdf")
	require.NoError(t, os.WriteFile(bad, []byte("not a pdf"), 0o644))
	_, err = Load(bad)
	assert.Error(t, err)
}

func TestExtract(t *testing.T) {
	path := pdftest.Write(t, t.TempDir(), "main.pdf", "A", "B", "C", "D")
	doc, err := Load(path)
	require.NoError(t, err)

	tests := []struct {
		name        string
		first, last int
		want        int
		wantErr     bool
	}{
		{name: "whole document", first: 0, last: 3, want: 4},
		{name: "middle range", first: 1, last: 2, want: 2},
		{name: "single page", first: 3, last: 3, want: 1},
		{name: "past the end", first: 2, last: 4, wantErr: true},
		{name: "reversed", first: 2, last: 1, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := doc.Extract(tt.first, tt.last)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, countPages(t, data))
		})
	}
}

func TestConcat(t *testing.T) {
	a := pdftest.Build("A1", "A2")
	b := pdftest.Build("B1")
	c := pdftest.Build("C1", "C2", "C3")

	var out bytes.Buffer
	require.NoError(t, Concat(&out, [][]byte{a, b, c}))
	assert.Equal(t, 6, countPages(t, out.Bytes()))

	out.Reset()
	require.NoError(t, Concat(&out, [][]byte{b}))
	assert.Equal(t, b, out.Bytes())

	assert.Error(t, Concat(&out, nil))
}

func TestWriteAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.pdf")

	require.NoError(t, WriteAtomic(path, func(w io.Writer) error {
		_, err := w.Write([]byte("first"))
		return err
	}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))

	boom := errors.New("boom")
	err = WriteAtomic(path, func(w io.Writer) error {
		w.Write([]byte("partial"))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first", string(data), "failed write must not touch the target")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file must be removed")
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package assemble builds the final report PDF by splicing insert sets into
// the rendered document after their anchor pages, and merges folders of PDFs
// into single bundles.
package assemble

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/pdiddy/report-assembler/internal/pdfio"
	"github.com/pdiddy/report-assembler/pkg/types"
)

// ErrAssemblyFailed reports that an input could not be read or the output
// could not be written. No output file is left behind when it is returned.
var ErrAssemblyFailed = errors.New("assembly failed")

// Stats summarises a completed assembly.
type Stats struct {
	InputPages  int
	OutputPages int
	Inserted    map[types.Label]int
}

// Assembler interleaves insert sets with the pages of a main document.
type Assembler struct {
	logger *slog.Logger
}

// New returns an Assembler. A nil logger discards diagnostics.
func New(logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Assembler{logger: logger}
}

// Assemble writes to outputPath the pages of mainPDF with, after each anchor
// page, every page of the anchored sections' files. outputPath may equal
// mainPDF: all inputs are read before the output is written, and the output
// replaces the target only once it is complete.
func (a *Assembler) Assemble(ctx context.Context, mainPDF string, sections []types.InsertSet, anchors types.KeywordPageMap, outputPath string) (Stats, error) {
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}

	base, err := pdfio.Load(mainPDF)
	if err != nil {
		return Stats{}, fmt.Errorf("%w: %v", ErrAssemblyFailed, err)
	}

	segs, err := Plan(base.Pages, sections, anchors)
	if err != nil {
		return Stats{}, fmt.Errorf("%w: %v", ErrAssemblyFailed, err)
	}

	stats := Stats{InputPages: base.Pages, Inserted: make(map[types.Label]int)}
	parts := make([][]byte, 0, len(segs))
	loaded := make(map[string]*pdfio.Doc)

	for _, seg := range segs {
		if !seg.IsInsert() {
			data, err := base.Extract(seg.First, seg.Last)
			if err != nil {
				return Stats{}, fmt.Errorf("%w: %v", ErrAssemblyFailed, err)
			}
			parts = append(parts, data)
			stats.OutputPages += seg.Last - seg.First + 1
			continue
		}

		doc, ok := loaded[seg.File]
		if !ok {
			if doc, err = pdfio.Load(seg.File); err != nil {
				return Stats{}, fmt.Errorf("%w: section %q: %v", ErrAssemblyFailed, seg.Label, err)
			}
			loaded[seg.File] = doc
		}
		if doc.Pages == 0 {
			continue
		}
		parts = append(parts, doc.Data)
		stats.OutputPages += doc.Pages
		stats.Inserted[seg.Label] += doc.Pages
		a.logger.Debug("insert queued", "label", seg.Label, "file", seg.File, "pages", doc.Pages)
	}

	if len(parts) == 0 {
		return Stats{}, fmt.Errorf("%w: %s has no pages", ErrAssemblyFailed, mainPDF)
	}

	err = pdfio.WriteAtomic(outputPath, func(w io.Writer) error {
		return pdfio.Concat(w, parts)
	})
	if err != nil {
		return Stats{}, fmt.Errorf("%w: writing %s: %v", ErrAssemblyFailed, outputPath, err)
	}

	a.logger.Info("report assembled", "output", outputPath,
		"input_pages", stats.InputPages, "output_pages", stats.OutputPages)
	return stats, nil
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package assemble

import (
	"context"
	"fmt"
	"io"

	"github.com/pdiddy/report-assembler/internal/insertset"
	"github.com/pdiddy/report-assembler/internal/pdfio"
)

// MergeFolder concatenates the PDFs directly inside folder, in ascending
// filename order, into outputPath. An empty folder is a no-op: written is
// false, no file is created, and err is nil.
func MergeFolder(ctx context.Context, folder, outputPath string) (written bool, err error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	files, err := insertset.ListPDFs(folder)
	if err != nil {
		return false, err
	}
	if len(files) == 0 {
		return false, nil
	}

	parts := make([][]byte, 0, len(files))
	for _, f := range files {
		doc, err := pdfio.Load(f)
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrAssemblyFailed, err)
		}
		parts = append(parts, doc.Data)
	}

	err = pdfio.WriteAtomic(outputPath, func(w io.Writer) error {
		return pdfio.Concat(w, parts)
	})
	if err != nil {
		return false, fmt.Errorf("%w: writing %s: %v", ErrAssemblyFailed, outputPath, err)
	}
	return true, nil
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package assemble

import (
	"fmt"

	"github.com/pdiddy/report-assembler/pkg/types"
)

// Segment is one contiguous run of output pages: either a page range of the
// main document (File == "") or every page of one insert file.
type Segment struct {
	// First and Last bound the main-document range, zero-based, inclusive.
	First, Last int

	// Label and File identify an inserted document.
	Label types.Label
	File  string
}

// IsInsert reports whether s copies an insert file.
func (s Segment) IsInsert() bool {
	return s.File != ""
}

// Plan lays out the output of an assembly as segments. Main pages keep their
// order; after page i come the files of every section anchored at i, sections
// in slice order and each section's files in their given order. Sections
// without an anchor, or with no files, contribute nothing.
func Plan(pageCount int, sections []types.InsertSet, anchors types.KeywordPageMap) ([]Segment, error) {
	byPage := make(map[int][]types.InsertSet)
	for _, s := range sections {
		page, ok := anchors[s.Label]
		if !ok || len(s.Files) == 0 {
			continue
		}
		if page < 0 || page >= pageCount {
			return nil, fmt.Errorf("label %q anchored at page %d, document has %d pages", s.Label, page+1, pageCount)
		}
		byPage[page] = append(byPage[page], s)
	}

	var segs []Segment
	start := 0
	for page := 0; page < pageCount; page++ {
		sets, ok := byPage[page]
		if !ok {
			continue
		}
		segs = append(segs, Segment{First: start, Last: page})
		for _, s := range sets {
			for _, f := range s.Files {
				segs = append(segs, Segment{Label: s.Label, File: f})
			}
		}
		start = page + 1
	}
	if start < pageCount {
		segs = append(segs, Segment{First: start, Last: pageCount - 1})
	}
	return segs, nil
}

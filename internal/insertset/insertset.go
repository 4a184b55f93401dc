// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package insertset builds the ordered PDF lists spliced into a report from
// section directories.
package insertset

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdiddy/report-assembler/pkg/types"
)

// ListPDFs returns the PDF files directly inside dir, sorted by filename in
// ascending byte order. Subdirectories are not searched. The extension match
// is case-insensitive.
func ListPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	files := make([]string, len(names))
	for i, n := range names {
		files[i] = filepath.Join(dir, n)
	}
	return files, nil
}

// SortByPriority reorders files so that a file whose name contains keys[0]
// comes first, then keys[1], and so on; files matching no key go last. The
// first matching key decides the rank. The sort is stable, so files of equal
// rank keep their incoming (lexicographic) order.
func SortByPriority(files []string, keys []string) {
	rank := func(path string) int {
		name := filepath.Base(path)
		for i, k := range keys {
			if strings.Contains(name, k) {
				return i
			}
		}
		return len(keys)
	}
	sort.SliceStable(files, func(i, j int) bool {
		return rank(files[i]) < rank(files[j])
	})
}

// Resolve returns dir as an absolute path, interpreting a relative dir
// against base.
func Resolve(base, dir string) string {
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(base, dir)
}

// Validate reports empty or repeated labels and repeated directories.
func Validate(sections []types.SectionConfig) error {
	labels := make(map[types.Label]bool, len(sections))
	dirs := make(map[string]types.Label, len(sections))
	for i, s := range sections {
		if s.Label == "" {
			return fmt.Errorf("section %d has an empty label", i+1)
		}
		if s.Dir == "" {
			return fmt.Errorf("section %q has no directory", s.Label)
		}
		if labels[s.Label] {
			return fmt.Errorf("duplicate section label %q", s.Label)
		}
		labels[s.Label] = true

		d := filepath.Clean(s.Dir)
		if other, ok := dirs[d]; ok {
			return fmt.Errorf("directory %s is used by both %q and %q", s.Dir, other, s.Label)
		}
		dirs[d] = s.Label

		switch s.Sort {
		case "", types.SortName, types.SortPriority:
		default:
			return fmt.Errorf("section %q: unknown sort %q: use name or priority", s.Label, s.Sort)
		}
	}
	return nil
}

// Collect builds one InsertSet per section, in section order. Relative
// directories are resolved against base, normally the directory of the
// source document. A directory that does not exist yields an empty
// InsertSet and a warning; a path that exists but is not a directory is an
// error.
func Collect(base string, sections []types.SectionConfig, logger *slog.Logger) ([]types.InsertSet, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if err := Validate(sections); err != nil {
		return nil, err
	}

	sets := make([]types.InsertSet, 0, len(sections))
	for _, s := range sections {
		dir := Resolve(base, s.Dir)

		files, err := ListPDFs(dir)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				logger.Warn("section directory missing, nothing to insert", "label", s.Label, "dir", dir)
				sets = append(sets, types.InsertSet{Label: s.Label})
				continue
			}
			return nil, fmt.Errorf("section %q: %w", s.Label, err)
		}

		if s.Sort == types.SortPriority {
			SortByPriority(files, s.Priority)
		}
		logger.Debug("section collected", "label", s.Label, "dir", dir, "files", len(files))
		sets = append(sets, types.InsertSet{Label: s.Label, Files: files})
	}
	return sets, nil
}

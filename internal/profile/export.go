// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package profile

import (
	"context"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/report-assembler/internal/insertset"
	"github.com/pdiddy/report-assembler/pkg/types"
)

// SectionsFile is the YAML layout of exported profiles and of the
// --sections-file flag.
type SectionsFile struct {
	Sections []types.SectionConfig `yaml:"sections"`
}

// ExportYAML writes the profile called name to w as a sections file.
func (s *Store) ExportYAML(ctx context.Context, name string, w io.Writer) error {
	p, err := s.Get(ctx, name)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&SectionsFile{Sections: p.Sections}); err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return enc.Close()
}

// ReadSections parses a sections file and validates its sections.
func ReadSections(r io.Reader) ([]types.SectionConfig, error) {
	var f SectionsFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing sections file: %w", err)
	}
	if err := insertset.Validate(f.Sections); err != nil {
		return nil, err
	}
	return f.Sections, nil
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/report-assembler/internal/insertset"
	"github.com/pdiddy/report-assembler/internal/profile"
	"github.com/pdiddy/report-assembler/pkg/types"
)

// addSectionFlags registers the flags every section-aware command accepts.
func addSectionFlags(cmd *cobra.Command) {
	cmd.Flags().StringArray("section", nil, `section as "Heading=dir"; repeat in insertion order`)
	cmd.Flags().String("sections-file", "", "YAML file with a sections list")
	cmd.Flags().String("profile", "", "stored section profile to use")
}

// parseSection splits "Heading=dir" at the last '='.
func parseSection(s string) (types.SectionConfig, error) {
	i := strings.LastIndex(s, "=")
	if i <= 0 || i == len(s)-1 {
		return types.SectionConfig{}, fmt.Errorf("section %q: want Heading=dir", s)
	}
	return types.SectionConfig{Label: types.Label(s[:i]), Dir: s[i+1:], Sort: types.SortName}, nil
}

// sectionConfigs returns the sections selected by the command's flags, or
// the configured ones when no flag selects any.
func sectionConfigs(ctx context.Context, cmd *cobra.Command, cfg types.Config) ([]types.SectionConfig, error) {
	if flags, _ := cmd.Flags().GetStringArray("section"); len(flags) > 0 {
		secs := make([]types.SectionConfig, 0, len(flags))
		for _, f := range flags {
			sec, err := parseSection(f)
			if err != nil {
				return nil, err
			}
			secs = append(secs, sec)
		}
		return secs, insertset.Validate(secs)
	}

	if path, _ := cmd.Flags().GetString("sections-file"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening sections file: %w", err)
		}
		defer f.Close()
		return profile.ReadSections(f)
	}

	if name, _ := cmd.Flags().GetString("profile"); name != "" {
		store, err := openProfiles(cfg)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		p, err := store.Get(ctx, name)
		if err != nil {
			return nil, err
		}
		return p.Sections, nil
	}

	return cfg.Sections, insertset.Validate(cfg.Sections)
}

// collectSections builds the insert sets for source, resolving relative
// section directories against the source's directory.
func collectSections(ctx context.Context, cmd *cobra.Command, cfg types.Config, source string) ([]types.InsertSet, error) {
	secs, err := sectionConfigs(ctx, cmd, cfg)
	if err != nil {
		return nil, err
	}
	return insertset.Collect(filepath.Dir(source), secs, logger)
}

func openProfiles(cfg types.Config) (*profile.Store, error) {
	path := cfg.ProfilesDB
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("locating profile database: %w", err)
		}
		path = filepath.Join(dir, profile.DefaultDB)
	}
	return profile.NewStore(path)
}

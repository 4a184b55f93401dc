// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/report-assembler/internal/locate"
	"github.com/pdiddy/report-assembler/pkg/types"
)

var locateCmd = &cobra.Command{
	Use:   "locate <pdf> [heading...]",
	Short: "Print the last page each heading appears on",
	Long: `Locate scans the PDF back to front and prints, for each heading, the last
page whose text contains it. Without headings the configured section
labels are used.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, stop := runContext(cmd)
		defer stop()

		var labels []types.Label
		for _, a := range args[1:] {
			labels = append(labels, types.Label(a))
		}
		if len(labels) == 0 {
			secs, err := sectionConfigs(ctx, cmd, cfg)
			if err != nil {
				return err
			}
			for _, s := range secs {
				labels = append(labels, s.Label)
			}
		}

		loc, err := locate.New(locatorConfig(cmd, cfg), logger)
		if err != nil {
			return err
		}
		anchors, err := loc.Locate(ctx, args[0], labels)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, l := range labels {
			if page, ok := anchors[l]; ok {
				fmt.Fprintf(out, "%d\t%s\n", page+1, l)
			} else {
				fmt.Fprintf(out, "-\t%s\n", l)
			}
		}
		return nil
	},
}

func init() {
	addSectionFlags(locateCmd)
	addLocatorFlags(locateCmd)
	rootCmd.AddCommand(locateCmd)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/report-assembler/internal/assemble"
	"github.com/pdiddy/report-assembler/internal/convert"
	"github.com/pdiddy/report-assembler/internal/locate"
	"github.com/pdiddy/report-assembler/internal/pipeline"
	"github.com/pdiddy/report-assembler/pkg/types"
)

var assembleCmd = &cobra.Command{
	Use:   "assemble <document>",
	Short: "Render a report and insert section PDFs after their headings",
	Long: `Assemble renders the document to PDF, locates the last page carrying each
section heading, and writes the report with every section's PDFs inserted
after that page. Sections whose heading is not found are skipped.

The report replaces the rendered PDF next to the document unless --output
is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runAssemble,
}

func init() {
	assembleCmd.Flags().StringP("output", "o", "", "report path (default: document path with .pdf)")
	addSectionFlags(assembleCmd)
	addEngineFlags(assembleCmd)
	addLocatorFlags(assembleCmd)

	rootCmd.AddCommand(assembleCmd)
}

// addEngineFlags registers conversion overrides.
func addEngineFlags(cmd *cobra.Command) {
	cmd.Flags().String("backend", "", "conversion backend: native or container")
	cmd.Flags().Duration("timeout", 0, "conversion timeout (default 5m)")
	cmd.Flags().Bool("keep-revisions", false, "render tracked changes as stored instead of accepting them")
}

// addLocatorFlags registers text extraction overrides.
func addLocatorFlags(cmd *cobra.Command) {
	cmd.Flags().String("text-backend", "", "text extraction: tabula, ledongthuc, or fitz")
	cmd.Flags().Bool("ocr", false, "recognise pages without a text layer (needs an ocr build)")
}

func conversionConfig(cmd *cobra.Command, cfg types.Config) types.ConversionConfig {
	c := cfg.Conversion
	if v, _ := cmd.Flags().GetString("backend"); v != "" {
		c.Backend = types.ConversionBackend(v)
	}
	if v, _ := cmd.Flags().GetDuration("timeout"); v > 0 {
		c.Timeout = v
	}
	if v, _ := cmd.Flags().GetBool("keep-revisions"); v {
		c.KeepRevisions = true
	}
	return c
}

func locatorConfig(cmd *cobra.Command, cfg types.Config) types.LocatorConfig {
	c := cfg.Locator
	if v, _ := cmd.Flags().GetString("text-backend"); v != "" {
		c.Backend = types.TextBackend(v)
	}
	if v, _ := cmd.Flags().GetBool("ocr"); v {
		c.OCR = true
	}
	return c
}

func runAssemble(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, stop := runContext(cmd)
	defer stop()

	source := args[0]
	output, _ := cmd.Flags().GetString("output")

	sections, err := collectSections(ctx, cmd, cfg, source)
	if err != nil {
		return err
	}
	run := pipeline.Run{Source: source, Output: output, Sections: sections}
	if err := pipeline.Validate(run); err != nil {
		return err
	}

	conv, err := convert.New(conversionConfig(cmd, cfg), logger)
	if err != nil {
		return fmt.Errorf("%w: %v", convert.ErrConversionFailed, err)
	}
	loc, err := locate.New(locatorConfig(cmd, cfg), logger)
	if err != nil {
		return err
	}

	o := pipeline.New(conv, loc, assemble.New(logger), logger)
	w := cmd.ErrOrStderr()
	o.OnState = func(s types.RunState) {
		switch s {
		case types.StateConverting:
			fmt.Fprintf(w, "converting %s\n", source)
		case types.StateLocating:
			fmt.Fprintf(w, "locating %d section heading(s)\n", len(sections))
		}
	}

	res := o.Run(ctx, run)
	if !res.OK() {
		return errors.New(res.Err)
	}
	printResult(cmd, sections, res)
	return nil
}

func printResult(cmd *cobra.Command, sections []types.InsertSet, res types.Result) {
	out := cmd.OutOrStdout()
	for _, s := range sections {
		page, ok := res.Anchors[s.Label]
		switch {
		case !ok:
			fmt.Fprintf(out, "  %-32s not found\n", s.Label)
		case len(s.Files) == 0:
			fmt.Fprintf(out, "  %-32s page %d, no files\n", s.Label, page+1)
		default:
			fmt.Fprintf(out, "  %-32s page %d, %d file(s)\n", s.Label, page+1, len(s.Files))
		}
	}
	fmt.Fprintf(out, "\n%s: %d pages (%s)\n", res.OutputPath, res.Pages, res.Duration.Round(time.Millisecond))
}

// runContext returns a context cancelled on interrupt.
func runContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt)
}

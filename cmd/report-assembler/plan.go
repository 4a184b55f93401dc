// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tsawler/tabula"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/report-assembler/internal/convert"
	"github.com/pdiddy/report-assembler/internal/pdfio"
	"github.com/pdiddy/report-assembler/pkg/types"
)

// planWorkers bounds concurrent page counting.
const planWorkers = 4

var planCmd = &cobra.Command{
	Use:   "plan <document>",
	Short: "Preview the sections of a report without rendering it",
	Long: `Plan lists each section with its files and page counts and, for docx
documents, whether the heading occurs in the document text. Nothing is
rendered or written.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlan,
}

func init() {
	addSectionFlags(planCmd)
	rootCmd.AddCommand(planCmd)
}

// sectionPlan is the preview of one section.
type sectionPlan struct {
	set   types.InsertSet
	pages []int
	found bool
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, stop := runContext(cmd)
	defer stop()

	source := args[0]
	kind, err := convert.Detect(source)
	if err != nil {
		return err
	}
	sets, err := collectSections(ctx, cmd, cfg, source)
	if err != nil {
		return err
	}

	plans, err := countPages(ctx, sets)
	if err != nil {
		return err
	}

	checked := false
	if kind == convert.KindDOCX {
		text, _, err := tabula.Open(source).Text()
		if err != nil {
			logger.Warn("document text unavailable, headings not checked", "source", source, "error", err)
		} else {
			checked = true
			for i := range plans {
				plans[i].found = strings.Contains(text, string(plans[i].set.Label))
			}
		}
	}

	writePlan(cmd.OutOrStdout(), plans, checked)
	return nil
}

// countPages counts the pages of every insert file concurrently.
func countPages(ctx context.Context, sets []types.InsertSet) ([]sectionPlan, error) {
	plans := make([]sectionPlan, len(sets))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(planWorkers)

	for i, s := range sets {
		plans[i] = sectionPlan{set: s, pages: make([]int, len(s.Files))}
		for j, f := range s.Files {
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				n, err := pdfio.PageCount(f)
				if err != nil {
					return fmt.Errorf("section %q: %w", s.Label, err)
				}
				plans[i].pages[j] = n
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return plans, nil
}

func writePlan(w io.Writer, plans []sectionPlan, checked bool) {
	total := 0
	for _, p := range plans {
		sum := 0
		for _, n := range p.pages {
			sum += n
		}
		total += sum

		status := ""
		if checked {
			status = "  heading found"
			if !p.found {
				status = "  heading NOT found"
			}
		}
		fmt.Fprintf(w, "%s: %d file(s), %d page(s)%s\n", p.set.Label, len(p.set.Files), sum, status)
		for j, f := range p.set.Files {
			fmt.Fprintf(w, "  %4d  %s\n", p.pages[j], f)
		}
	}
	fmt.Fprintf(w, "\n%d page(s) to insert\n", total)
}

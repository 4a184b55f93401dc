// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/report-assembler/internal/convert"
)

var convertCmd = &cobra.Command{
	Use:   "convert <document>",
	Short: "Render a document to PDF",
	Long: `Convert renders a word-processing document (docx, docm, doc, rtf, odt) to
PDF next to it with LibreOffice, natively or in a container. Tracked
changes are accepted before rendering unless --keep-revisions is set.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, stop := runContext(cmd)
		defer stop()

		conv, err := convert.New(conversionConfig(cmd, cfg), logger)
		if err != nil {
			return fmt.Errorf("%w: %v", convert.ErrConversionFailed, err)
		}
		out, err := conv.Convert(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	addEngineFlags(convertCmd)
	rootCmd.AddCommand(convertCmd)
}

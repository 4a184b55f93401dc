// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/report-assembler/internal/assemble"
)

var mergeCmd = &cobra.Command{
	Use:   "merge <folder>",
	Short: "Concatenate the PDFs in a folder into one bundle",
	Long: `Merge concatenates every PDF directly inside the folder, in filename
order, into one bundle. The bundle is written next to the folder as
<folder>.pdf unless --output is given. An empty folder produces nothing.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := runContext(cmd)
		defer stop()

		folder := filepath.Clean(args[0])
		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			output = folder + ".pdf"
		}

		written, err := assemble.MergeFolder(ctx, folder, output)
		if err != nil {
			return err
		}
		if !written {
			fmt.Fprintf(cmd.ErrOrStderr(), "no PDFs in %s, nothing written\n", folder)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), output)
		return nil
	},
}

func init() {
	mergeCmd.Flags().StringP("output", "o", "", "bundle path (default: <folder>.pdf)")
	rootCmd.AddCommand(mergeCmd)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/report-assembler/internal/profile"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage stored section profiles",
	Long: `Profiles store an ordered list of sections (heading, directory, file
order) under a name, for use with --profile.`,
}

var profileSaveCmd = &cobra.Command{
	Use:   "save <name>",
	Short: "Store the selected sections under a name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		secs, err := sectionConfigs(cmd.Context(), cmd, cfg)
		if err != nil {
			return err
		}
		store, err := openProfiles(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Save(cmd.Context(), profile.Profile{Name: args[0], Sections: secs}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "saved %s (%d sections)\n", args[0], len(secs))
		return nil
	},
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openProfiles(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		names, err := store.List(cmd.Context())
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Fprintln(cmd.OutOrStdout(), n)
		}
		return nil
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print a profile as a sections file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openProfiles(cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		return store.ExportYAML(cmd.Context(), args[0], cmd.OutOrStdout())
	},
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a stored profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openProfiles(cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		return store.Delete(cmd.Context(), args[0])
	},
}

func init() {
	profileSaveCmd.Flags().StringArray("section", nil, `section as "Heading=dir"; repeat in insertion order`)
	profileSaveCmd.Flags().String("sections-file", "", "YAML file with a sections list")

	profileCmd.AddCommand(profileSaveCmd, profileListCmd, profileShowCmd, profileDeleteCmd)
	rootCmd.AddCommand(profileCmd)
}

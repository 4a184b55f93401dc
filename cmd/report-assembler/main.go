// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the report-assembler CLI: it renders
// a report document to PDF and splices section bundles in after the pages
// carrying their headings.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/pdiddy/report-assembler/internal/convert"
	"github.com/pdiddy/report-assembler/internal/server"
	"github.com/pdiddy/report-assembler/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// logger is the diagnostic logger, configured before any command runs.
var logger = slog.New(slog.DiscardHandler)

// rootCmd is the base command for the report-assembler CLI.
var rootCmd = &cobra.Command{
	Use:   "report-assembler",
	Short: "Assemble report PDFs with section bundles anchored to headings",
	Long: `report-assembler renders an editable report document to PDF, finds the
last page carrying each section heading, and inserts that section's PDFs
right after it.

Sections map a heading to a directory of PDFs. They come from --section
flags, a sections file, a stored profile, or the sections list in
report-assembler.yaml, in that order of precedence.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err = newLogger(cfg.Log, os.Stderr)
		if err != nil {
			return err
		}
		_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
			logger.Debug(fmt.Sprintf(format, args...))
		}))
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./report-assembler.yaml or ~/.config/report-assembler/report-assembler.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, or error")
	rootCmd.PersistentFlags().String("log-format", "", "log format: text or json")
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func setDefaults() {
	viper.SetDefault("conversion.backend", string(types.BackendNative))
	viper.SetDefault("conversion.image", convert.DefaultImage)
	viper.SetDefault("conversion.timeout", convert.DefaultTimeout)
	viper.SetDefault("locator.backend", string(types.TextTabula))
	viper.SetDefault("locator.ocr_language", "eng")
	viper.SetDefault("locator.ocr_dpi", 150)
	viper.SetDefault("server.addr", server.DefaultAddr)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
}

func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "warning: .env not loaded:", err)
	}

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("report-assembler")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "report-assembler"))
		}
	}

	setDefaults()
	viper.SetEnvPrefix("REPORT_ASSEMBLER")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig decodes the merged viper settings. Sections default to the
// four standard appendices when the config declares none.
func loadConfig() (types.Config, error) {
	var cfg types.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("reading configuration: %w", err)
	}
	if len(cfg.Sections) == 0 {
		cfg.Sections = types.DefaultSections
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

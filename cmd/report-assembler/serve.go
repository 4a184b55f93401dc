// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/report-assembler/internal/assemble"
	"github.com/pdiddy/report-assembler/internal/convert"
	"github.com/pdiddy/report-assembler/internal/locate"
	"github.com/pdiddy/report-assembler/internal/pipeline"
	"github.com/pdiddy/report-assembler/internal/server"
)

// shutdownGrace bounds how long running reports may take to stop.
const shutdownGrace = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve report assembly over HTTP",
	Long: `Serve accepts report runs on POST /api/v1/runs and reports their state on
GET /api/v1/runs/{id}. Paths in requests are paths on the server host.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default "+server.DefaultAddr+")")
	addEngineFlags(serveCmd)
	addLocatorFlags(serveCmd)
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if v, _ := cmd.Flags().GetString("addr"); v != "" {
		cfg.Server.Addr = v
	}

	conv, err := convert.New(conversionConfig(cmd, cfg), logger)
	if err != nil {
		return fmt.Errorf("%w: %v", convert.ErrConversionFailed, err)
	}
	locCfg := locatorConfig(cmd, cfg)
	if _, err := locate.New(locCfg, logger); err != nil {
		return err
	}

	srv := server.New(func() *pipeline.Orchestrator {
		// Config was checked above.
		loc, _ := locate.New(locCfg, logger)
		return pipeline.New(conv, loc, assemble.New(logger), logger)
	}, cfg.Server, logger)

	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := runContext(cmd)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		logger.Info("server listening", "address", httpSrv.Addr)
		errc <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return srv.Shutdown(shutdownCtx)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert renders editable word-processing documents to fixed-layout
// PDF with LibreOffice, run natively or inside a container. Every conversion
// happens in its own Session: a private staging directory and engine profile
// that are removed when the conversion ends, whatever the outcome.
package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdiddy/report-assembler/pkg/types"
)

// DefaultTimeout bounds one engine run when the configuration sets none.
const DefaultTimeout = 5 * time.Minute

// ErrConversionFailed reports that the engine could not render the source.
// The wrapped message carries the engine's own diagnostics.
var ErrConversionFailed = errors.New("conversion failed")

// Converter renders a source document to PDF and returns the PDF path.
type Converter interface {
	Convert(ctx context.Context, source string) (string, error)
}

// OutputPath returns the PDF path a conversion of source produces: the same
// directory and stem with a .pdf extension.
func OutputPath(source string) string {
	return strings.TrimSuffix(source, filepath.Ext(source)) + ".pdf"
}

// DocumentConverter is the production Converter.
type DocumentConverter struct {
	eng     engine
	cfg     types.ConversionConfig
	logger  *slog.Logger
	timeout time.Duration
}

// New returns a DocumentConverter for the configured backend. It fails when
// the engine binary, container runtime, or image cannot be found.
func New(cfg types.ConversionConfig, logger *slog.Logger) (*DocumentConverter, error) {
	eng, err := newEngine(cfg)
	if err != nil {
		return nil, err
	}
	return newConverter(eng, cfg, logger), nil
}

func newConverter(eng engine, cfg types.ConversionConfig, logger *slog.Logger) *DocumentConverter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &DocumentConverter{eng: eng, cfg: cfg, logger: logger, timeout: timeout}
}

// Convert renders source to OutputPath(source), replacing any file there
// only once the new PDF is complete.
func (c *DocumentConverter) Convert(ctx context.Context, source string) (string, error) {
	kind, err := Detect(source)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out := OutputPath(source)
	start := time.Now()
	err = withSession(c.eng, c.logger, func(s *Session) error {
		return s.convert(ctx, source, kind, out, !c.cfg.KeepRevisions)
	})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %s timed out after %s: %v", ErrConversionFailed, c.eng.name(), c.timeout, err)
		}
		return "", fmt.Errorf("%w: %v", ErrConversionFailed, err)
	}

	c.logger.Info("document converted", "source", source, "output", out,
		"engine", c.eng.name(), "elapsed", time.Since(start).Round(time.Millisecond))
	return out, nil
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs one report assembly: convert the source document to
// PDF, locate every section label in it, and splice the sections' PDFs in
// after their anchor pages. A run executes on one background goroutine and
// delivers exactly one Result.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pdiddy/report-assembler/internal/assemble"
	"github.com/pdiddy/report-assembler/internal/convert"
	"github.com/pdiddy/report-assembler/pkg/types"
)

// Converter renders the source document to PDF.
type Converter interface {
	Convert(ctx context.Context, source string) (string, error)
}

// Locator maps labels to the last page their text appears on.
type Locator interface {
	Locate(ctx context.Context, pdfPath string, labels []types.Label) (types.KeywordPageMap, error)
}

// Assembler writes the final report.
type Assembler interface {
	Assemble(ctx context.Context, mainPDF string, sections []types.InsertSet, anchors types.KeywordPageMap, outputPath string) (assemble.Stats, error)
}

// Run is the input of one pipeline execution.
type Run struct {
	// Source is the editable document to render.
	Source string
	// Output is the report path. Empty means the converted PDF's path, so
	// the report replaces the plain rendering.
	Output string
	// Sections are the insert sets in tie-break order.
	Sections []types.InsertSet
}

func (r Run) output() string {
	if r.Output != "" {
		return r.Output
	}
	return convert.OutputPath(r.Source)
}

// Validate checks a run before any work is dispatched.
func Validate(run Run) error {
	if run.Source == "" {
		return fmt.Errorf("%w: no source document", ErrInputValidation)
	}
	info, err := os.Stat(run.Source)
	if err != nil {
		return fmt.Errorf("%w: source document: %v", ErrInputValidation, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: source %s is not a regular file", ErrInputValidation, run.Source)
	}
	if _, err := convert.Detect(run.Source); err != nil {
		return fmt.Errorf("%w: %v", ErrInputValidation, err)
	}
	if err := types.ValidateSections(run.Sections); err != nil {
		return fmt.Errorf("%w: %v", ErrInputValidation, err)
	}

	out := run.output()
	if filepath.Clean(out) == filepath.Clean(run.Source) {
		return fmt.Errorf("%w: output would overwrite the source document", ErrInputValidation)
	}
	dir := filepath.Dir(out)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("%w: output directory %s does not exist", ErrInputValidation, dir)
	}
	return nil
}

// Orchestrator drives a single run through converting, locating and
// assembling. It is single use: once started it cannot run again.
type Orchestrator struct {
	conv   Converter
	loc    Locator
	asm    Assembler
	logger *slog.Logger

	// OnState, when set before Start, is called on the worker goroutine
	// after every state change.
	OnState func(types.RunState)

	mu      sync.Mutex
	state   types.RunState
	started bool
}

// New returns an idle Orchestrator. A nil logger discards diagnostics.
func New(conv Converter, loc Locator, asm Assembler, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Orchestrator{conv: conv, loc: loc, asm: asm, logger: logger, state: types.StateIdle}
}

// State returns the current state.
func (o *Orchestrator) State() types.RunState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Start validates run and launches the worker. The returned channel
// receives exactly one Result and is then closed. Cancelling ctx stops the
// run at the next stage boundary.
func (o *Orchestrator) Start(ctx context.Context, run Run) (<-chan types.Result, error) {
	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		return nil, ErrAlreadyStarted
	}
	if err := Validate(run); err != nil {
		o.mu.Unlock()
		return nil, err
	}
	o.started = true
	o.mu.Unlock()

	ch := make(chan types.Result, 1)
	go func() {
		defer close(ch)
		ch <- o.execute(ctx, run)
	}()
	return ch, nil
}

// Run starts run and waits for its Result. When Start refuses the run
// (invalid input, or an orchestrator already started) the failed Result is
// synthesized from that error. No worker runs and State is left unchanged.
func (o *Orchestrator) Run(ctx context.Context, run Run) types.Result {
	ch, err := o.Start(ctx, run)
	if err != nil {
		return types.Result{State: types.StateFailed, Err: err.Error()}
	}
	return <-ch
}

func (o *Orchestrator) setState(s types.RunState) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
	o.logger.Debug("run state", "state", s)
	if o.OnState != nil {
		o.OnState(s)
	}
}

func (o *Orchestrator) execute(ctx context.Context, run Run) types.Result {
	start := time.Now()
	output := run.output()
	var converted string

	fail := func(err error) types.Result {
		if converted != "" {
			if rerr := os.Remove(converted); rerr != nil && !os.IsNotExist(rerr) {
				o.logger.Warn("removing converted document", "path", converted, "error", rerr)
			}
		}
		o.setState(types.StateFailed)
		o.logger.Error("report assembly failed", "source", run.Source, "error", err)
		return types.Result{State: types.StateFailed, Err: err.Error(), Duration: time.Since(start)}
	}

	o.setState(types.StateConverting)
	pdf, err := o.conv.Convert(ctx, run.Source)
	if err != nil {
		return fail(err)
	}
	converted = pdf
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	o.setState(types.StateLocating)
	anchors, err := o.loc.Locate(ctx, pdf, types.Labels(run.Sections))
	if err != nil {
		return fail(err)
	}
	for _, s := range run.Sections {
		if _, ok := anchors[s.Label]; !ok && len(s.Files) > 0 {
			o.logger.Debug("section not anchored, skipped", "label", s.Label, "files", len(s.Files))
		}
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	stats, err := o.asm.Assemble(ctx, pdf, run.Sections, anchors, output)
	if err != nil {
		return fail(err)
	}

	o.setState(types.StateDone)
	res := types.Result{
		State:      types.StateDone,
		OutputPath: output,
		Anchors:    anchors,
		Pages:      stats.OutputPages,
		Duration:   time.Since(start),
	}
	o.logger.Info("report assembled", "output", output, "pages", res.Pages,
		"anchors", len(anchors), "elapsed", res.Duration.Round(time.Millisecond))
	return res
}

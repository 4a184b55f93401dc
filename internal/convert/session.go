// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pdiddy/report-assembler/internal/pdfio"
	"github.com/pdiddy/report-assembler/pkg/types"
)

// Session is one scoped use of the rendering engine. It owns a temporary
// directory holding the staged input, the engine output, and a private
// engine profile, so no first-run dialog, recovery prompt, or profile lock
// is shared with other sessions or with an interactive office suite.
type Session struct {
	eng    engine
	logger *slog.Logger

	root    string
	inDir   string
	outDir  string
	profile string

	mu     sync.Mutex
	active int // process group of a running engine, 0 when idle
	once   sync.Once
	err    error
}

// OpenSession prepares a session for the configured backend. The engine is
// started only by a conversion. Close must be called to release it.
func OpenSession(cfg types.ConversionConfig, logger *slog.Logger) (*Session, error) {
	eng, err := newEngine(cfg)
	if err != nil {
		return nil, err
	}
	return openSession(eng, logger)
}

func openSession(eng engine, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	root, err := os.MkdirTemp("", "report-assembler-*")
	if err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}
	s := &Session{
		eng:     eng,
		logger:  logger,
		root:    root,
		inDir:   filepath.Join(root, "in"),
		outDir:  filepath.Join(root, "out"),
		profile: filepath.Join(root, "profile"),
	}
	for _, dir := range []string{s.inDir, s.outDir, s.profile} {
		if err := os.Mkdir(dir, 0o700); err != nil {
			os.RemoveAll(root)
			return nil, fmt.Errorf("creating session directory: %w", err)
		}
	}
	logger.Debug("conversion session opened", "engine", eng.name(), "dir", root)
	return s, nil
}

// WithSession opens a session, calls fn, and closes the session on every
// exit path, including a panic in fn.
func WithSession(cfg types.ConversionConfig, logger *slog.Logger, fn func(*Session) error) error {
	eng, err := newEngine(cfg)
	if err != nil {
		return err
	}
	return withSession(eng, logger, fn)
}

func withSession(eng engine, logger *slog.Logger, fn func(*Session) error) (err error) {
	s, err := openSession(eng, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(s)
}

// Dir returns the session's private directory.
func (s *Session) Dir() string { return s.root }

// Convert renders source to output, accepting tracked revisions first when
// the format carries them.
func (s *Session) Convert(ctx context.Context, source, output string) error {
	kind, err := Detect(source)
	if err != nil {
		return err
	}
	return s.convert(ctx, source, kind, output, true)
}

func (s *Session) convert(ctx context.Context, source string, kind Kind, output string, clean bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	name := filepath.Base(source)
	staged := filepath.Join(s.inDir, name)
	switch {
	case clean && kind.HasRevisionMarkup():
		n, err := acceptRevisions(source, staged)
		if err != nil {
			return fmt.Errorf("accepting tracked changes in %s: %w", name, err)
		}
		if n > 0 {
			s.logger.Info("tracked changes accepted", "source", source, "revisions", n)
		}
	default:
		if clean {
			s.logger.Warn("tracked changes are rendered as stored", "source", source, "format", kind)
		}
		if err := copyFile(source, staged); err != nil {
			return err
		}
	}

	if err := s.eng.render(ctx, s, name); err != nil {
		return err
	}

	produced := filepath.Join(s.outDir, strings.TrimSuffix(name, filepath.Ext(name))+".pdf")
	f, err := os.Open(produced)
	if err != nil {
		return fmt.Errorf("%s produced no PDF for %s", s.eng.name(), name)
	}
	defer f.Close()

	return pdfio.WriteAtomic(output, func(w io.Writer) error {
		_, err := io.Copy(w, f)
		return err
	})
}

func (s *Session) setActive(pgid int) {
	s.mu.Lock()
	s.active = pgid
	s.mu.Unlock()
}

// Close stops any engine process the session started and removes the
// session directory. It is safe to call more than once.
func (s *Session) Close() error {
	s.once.Do(func() {
		s.mu.Lock()
		if s.active != 0 {
			killProcessGroup(s.active)
			s.active = 0
		}
		s.mu.Unlock()

		if err := os.RemoveAll(s.root); err != nil {
			s.err = fmt.Errorf("removing session directory: %w", err)
		}
		s.logger.Debug("conversion session closed", "dir", s.root)
	})
	return s.err
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("staging %s: %w", src, err)
	}
	return out.Close()
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/pdiddy/report-assembler/internal/container"
	"github.com/pdiddy/report-assembler/pkg/types"
)

// DefaultImage is the container image used when none is configured. It must
// provide soffice on PATH.
const DefaultImage = "report-assembler/soffice:latest"

// engine renders the staged file name inside s.inDir to a PDF of the same
// stem inside s.outDir.
type engine interface {
	name() string
	render(ctx context.Context, s *Session, name string) error
}

func newEngine(cfg types.ConversionConfig) (engine, error) {
	switch cfg.Backend {
	case "", types.BackendNative:
		bin, err := findSoffice(cfg.SofficePath)
		if err != nil {
			return nil, err
		}
		return &nativeEngine{bin: bin}, nil

	case types.BackendContainer:
		rt, err := container.DetectRuntime()
		if err != nil {
			return nil, err
		}
		image := cfg.Image
		if image == "" {
			image = DefaultImage
		}
		if err := rt.ImageExists(image); err != nil {
			return nil, err
		}
		return &containerEngine{rt: rt, image: image}, nil
	}
	return nil, fmt.Errorf("unknown conversion backend %q", cfg.Backend)
}

var sofficeCandidates = []string{"soffice", "libreoffice"}

func findSoffice(configured string) (string, error) {
	if configured != "" {
		bin, err := exec.LookPath(configured)
		if err != nil {
			return "", fmt.Errorf("soffice binary %s: %w", configured, err)
		}
		return bin, nil
	}
	candidates := sofficeCandidates
	switch runtime.GOOS {
	case "darwin":
		candidates = append(candidates, "/Applications/LibreOffice.app/Contents/MacOS/soffice")
	case "windows":
		candidates = append(candidates, `C:\Program Files\LibreOffice\program\soffice.exe`)
	}
	for _, c := range candidates {
		if bin, err := exec.LookPath(c); err == nil {
			return bin, nil
		}
	}
	return "", errors.New("LibreOffice not found: install it, set conversion.soffice_path, or use the container backend")
}

// sofficeArgs is the headless command line converting input into outDir
// with the given user profile.
func sofficeArgs(profileURL, outDir, input string) []string {
	return []string{
		"--headless", "--invisible", "--nologo", "--nodefault",
		"--nolockcheck", "--norestore", "--nofirststartwizard",
		"-env:UserInstallation=" + profileURL,
		"--convert-to", "pdf",
		"--outdir", outDir,
		input,
	}
}

// fileURL converts an absolute local path to a file:// URL.
func fileURL(p string) string {
	p = filepath.ToSlash(p)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return (&url.URL{Scheme: "file", Path: p}).String()
}

// engineError folds the engine's output into err.
func engineError(what string, err error, output []byte) error {
	msg := strings.TrimSpace(string(output))
	if msg == "" {
		return fmt.Errorf("%s: %w", what, err)
	}
	return fmt.Errorf("%s: %w: %s", what, err, msg)
}

type nativeEngine struct {
	bin string
}

func (e *nativeEngine) name() string { return "soffice" }

func (e *nativeEngine) render(ctx context.Context, s *Session, name string) error {
	args := sofficeArgs(fileURL(s.profile), s.outDir, filepath.Join(s.inDir, name))
	cmd := exec.CommandContext(ctx, e.bin, args...)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	setProcessGroup(cmd)
	cmd.Cancel = func() error {
		killProcessGroup(cmd.Process.Pid)
		return nil
	}
	cmd.WaitDelay = 10 * time.Second

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", e.bin, err)
	}
	pgid := cmd.Process.Pid
	s.setActive(pgid)
	err := cmd.Wait()
	// Helper processes outlive the launcher when it is killed.
	killProcessGroup(pgid)
	s.setActive(0)

	if err != nil {
		return engineError("running soffice", err, output.Bytes())
	}
	s.logger.Debug("soffice finished", "output", strings.TrimSpace(output.String()))
	return nil
}

// containerWorkdir is where the session directory is mounted.
const containerWorkdir = "/work"

type containerEngine struct {
	rt    container.Runtime
	image string
}

func (e *containerEngine) name() string { return e.rt.Name() + ":" + e.image }

func (e *containerEngine) render(ctx context.Context, s *Session, name string) error {
	args := append([]string{"soffice"}, sofficeArgs(
		"file://"+path.Join(containerWorkdir, "profile"),
		path.Join(containerWorkdir, "out"),
		path.Join(containerWorkdir, "in", name),
	)...)

	var output bytes.Buffer
	err := e.rt.Run(ctx, container.RunSpec{
		Image:   e.image,
		Mounts:  []container.Mount{{Source: s.root, Target: containerWorkdir}},
		Workdir: containerWorkdir,
		Args:    args,
		Stdout:  &output,
		Stderr:  &output,
	})
	if err != nil {
		return engineError("converting in container", err, output.Bytes())
	}
	return nil
}

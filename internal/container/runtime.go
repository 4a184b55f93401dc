// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package container detects a container runtime (docker or podman) and runs
// one-shot containers with host directories bind-mounted, for converting
// documents when no native office suite is installed.
package container

import (
	"context"
	"fmt"
	"io"
	"os/exec"

	"github.com/google/uuid"
)

const (
	binDocker = "docker"
	binPodman = "podman"
)

// Mount binds a host directory into the container.
type Mount struct {
	Source string // absolute host path
	Target string // path inside the container
}

// RunSpec describes a single container run. The container is removed when it
// exits and has no network access.
type RunSpec struct {
	// Name identifies the container to the runtime. Empty means a generated
	// name.
	Name    string
	Image   string
	Mounts  []Mount
	Workdir string
	Args    []string
	Stdout  io.Writer
	Stderr  io.Writer
}

// Runtime provides container operations: checking availability, verifying
// images, and running containers.
type Runtime interface {
	// Name returns the runtime name ("docker" or "podman").
	Name() string

	// Available reports whether the runtime binary exists on PATH and
	// responds to an info command.
	Available() bool

	// ImageExists checks whether the named image exists locally.
	// Returns nil when the image is found, or an error describing the failure.
	ImageExists(image string) error

	// Run executes spec and waits for the container to exit. Cancelling ctx
	// kills the runtime client and force-removes the container by name,
	// since the container outlives its client.
	Run(ctx context.Context, spec RunSpec) error
}

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	RunSilent(name string, args ...string) error
	RunContext(ctx context.Context, name string, args []string, stdout, stderr io.Writer) error
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) RunSilent(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

func (o *osExecutor) RunContext(ctx context.Context, name string, args []string, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// runtime implements Runtime for a specific container binary. Both Docker
// and Podman share the same logic; they differ only in binary name and the
// subcommand used to check image existence.
type runtime struct {
	bin           string
	imageCheckCmd []string // e.g. ["image", "inspect"] for docker
	exec          executor
}

func (r *runtime) Name() string { return r.bin }

func (r *runtime) Available() bool {
	if _, err := r.exec.LookPath(r.bin); err != nil {
		return false
	}
	return r.exec.RunSilent(r.bin, "info") == nil
}

func (r *runtime) ImageExists(image string) error {
	args := make([]string, 0, len(r.imageCheckCmd)+1)
	args = append(args, r.imageCheckCmd...)
	args = append(args, image)

	if err := r.exec.RunSilent(r.bin, args...); err != nil {
		return fmt.Errorf("image %s not found in %s: %w", image, r.bin, err)
	}
	return nil
}

func (r *runtime) Run(ctx context.Context, spec RunSpec) error {
	if spec.Name == "" {
		spec.Name = "report-assembler-" + uuid.NewString()
	}
	err := r.exec.RunContext(ctx, r.bin, runArgs(spec), spec.Stdout, spec.Stderr)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		if rmErr := r.remove(spec.Name); rmErr != nil {
			return fmt.Errorf("running %s container %s: %w (removing %s: %v)", r.bin, spec.Image, err, spec.Name, rmErr)
		}
	}
	return fmt.Errorf("running %s container %s: %w", r.bin, spec.Image, err)
}

// remove stops and deletes the named container.
func (r *runtime) remove(name string) error {
	return r.exec.RunSilent(r.bin, "rm", "-f", name)
}

// runArgs builds the "run" command line shared by docker and podman.
func runArgs(spec RunSpec) []string {
	args := []string{"run", "--rm", "--network", "none"}
	if spec.Name != "" {
		args = append(args, "--name", spec.Name)
	}
	for _, m := range spec.Mounts {
		args = append(args, "-v", m.Source+":"+m.Target)
	}
	if spec.Workdir != "" {
		args = append(args, "-w", spec.Workdir)
	}
	args = append(args, spec.Image)
	return append(args, spec.Args...)
}

func newDockerRuntime(exec executor) *runtime {
	return &runtime{
		bin:           binDocker,
		imageCheckCmd: []string{"image", "inspect"},
		exec:          exec,
	}
}

func newPodmanRuntime(exec executor) *runtime {
	return &runtime{
		bin:           binPodman,
		imageCheckCmd: []string{"image", "exists"},
		exec:          exec,
	}
}

var defaultExec = &osExecutor{}

// DetectRuntime tries docker first, falls back to podman. Returns an error
// if neither runtime is available.
func DetectRuntime() (Runtime, error) {
	return detectRuntime(defaultExec)
}

func detectRuntime(exec executor) (Runtime, error) {
	docker := newDockerRuntime(exec)
	if docker.Available() {
		return docker, nil
	}

	podman := newPodmanRuntime(exec)
	if podman.Available() {
		return podman, nil
	}

	return nil, fmt.Errorf(
		"no container runtime available: neither %s nor %s found or operational",
		binDocker, binPodman,
	)
}

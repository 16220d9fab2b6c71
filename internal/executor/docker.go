// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package executor

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"

	"goexec/cli/internal/compiler"
)

// DefaultImage runs statically linked linux binaries.
const DefaultImage = "gcr.io/distroless/static-debian12"

// containerDir is where the unit directory is mounted.
const containerDir = "/goexec"

// DockerLoader runs a linux build of the unit in a disposable container.
type DockerLoader struct {
	dockerBin string
	image     string
	streams   Streams
	grace     time.Duration
	// command builds the docker invocation; replaced in tests.
	command func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// NewDockerLoader checks that the docker CLI exists.
func NewDockerLoader(dockerBin, image string, streams Streams, grace time.Duration) (*DockerLoader, error) {
	dockerBin = strings.TrimSpace(dockerBin)
	if dockerBin == "" {
		dockerBin = "docker"
	}
	if _, err := exec.LookPath(dockerBin); err != nil {
		return nil, fmt.Errorf("docker binary not found: %w", err)
	}
	if strings.TrimSpace(image) == "" {
		image = DefaultImage
	}
	return &DockerLoader{dockerBin: dockerBin, image: image, streams: streams, grace: grace, command: exec.CommandContext}, nil
}

func (d *DockerLoader) Kind() string { return "docker" }

func (d *DockerLoader) Target() (string, string) { return "linux", runtime.GOARCH }

// runArgs builds the docker run command line.
func (d *DockerLoader) runArgs(name string, unit *compiler.Unit, entry compiler.Entry, args []string) ([]string, error) {
	rel, err := filepath.Rel(unit.Dir, unit.Binary)
	if err != nil || strings.HasPrefix(rel, "..") {
		return nil, fmt.Errorf("binary %s is outside the unit directory", unit.Binary)
	}
	out := []string{
		"run",
		"--rm",
		"-i",
		"--init",
		"--name", name,
		"-v", unit.Dir + ":" + containerDir + ":ro",
		"-w", containerDir,
		"-e", compiler.EntryEnv + "=" + entry.Name,
		d.image,
		containerDir + "/" + filepath.ToSlash(rel),
	}
	return append(out, args...), nil
}

func (d *DockerLoader) Load(ctx context.Context, unit *compiler.Unit, entry compiler.Entry, args []string) error {
	if unit.GOOS != "" && unit.GOOS != "linux" {
		return fmt.Errorf("docker executor needs a linux build, got %s", unit.GOOS)
	}
	name := "goexec-" + uuid.NewString()
	runArgs, err := d.runArgs(name, unit, entry, args)
	if err != nil {
		return err
	}
	cmd := d.command(ctx, d.dockerBin, runArgs...)
	tail := newTail(16 * 1024)
	cmd.Stdin = d.streams.Stdin
	cmd.Stdout = d.streams.Stdout
	cmd.Stderr = tail
	if d.streams.Stderr != nil {
		cmd.Stderr = io.MultiWriter(d.streams.Stderr, tail)
	}
	cmd.Cancel = func() error {
		return exec.Command(d.dockerBin, "kill", "--signal", "INT", name).Run()
	}
	cmd.WaitDelay = d.grace
	err = cmd.Run()
	if ctx.Err() != nil {
		// The CLI may be gone while the container still runs.
		exec.Command(d.dockerBin, "rm", "--force", name).Run()
	}
	return exitError(err, tail)
}

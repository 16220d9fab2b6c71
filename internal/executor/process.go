// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package executor

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"goexec/cli/internal/compiler"
)

// ProcessLoader runs the unit as a child process with inherited streams.
// Cancellation sends SIGINT and kills the process after Grace.
type ProcessLoader struct {
	Streams Streams
	Grace   time.Duration
}

func (p *ProcessLoader) Kind() string { return "process" }

func (p *ProcessLoader) Target() (string, string) { return hostTarget() }

func (p *ProcessLoader) Load(ctx context.Context, unit *compiler.Unit, entry compiler.Entry, args []string) error {
	cmd := exec.CommandContext(ctx, unit.Binary, args...)
	cmd.Dir, _ = os.Getwd()
	cmd.Env = append(os.Environ(), compiler.EntryEnv+"="+entry.Name)
	tail := newTail(16 * 1024)
	cmd.Stdin = p.Streams.Stdin
	cmd.Stdout = p.Streams.Stdout
	cmd.Stderr = tail
	if p.Streams.Stderr != nil {
		cmd.Stderr = io.MultiWriter(p.Streams.Stderr, tail)
	}
	cmd.Cancel = func() error {
		if runtime.GOOS == "windows" {
			return cmd.Process.Kill()
		}
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = p.Grace
	return exitError(cmd.Run(), tail)
}

func exitError(err error, tail *tailBuffer) error {
	var ee *exec.ExitError
	if stderrors.As(err, &ee) {
		return &ExitError{Code: ee.ExitCode(), Stderr: tail.String()}
	}
	return err
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
	max int
}

func newTail(max int) *tailBuffer { return &tailBuffer{max: max} }

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}

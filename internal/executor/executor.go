// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package executor runs compiled units. Loading is isolated behind the
// Loader interface so a crashing snippet never shares memory with the tool:
// the process loader runs the unit as a child process, the docker loader
// inside a throwaway container.
package executor

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"goexec/cli/internal/compiler"
	"goexec/cli/internal/errors"
	"goexec/cli/internal/logging"
	"goexec/cli/internal/model"
)

// DefaultGrace is how long a cancelled snippet may take to exit after SIGINT.
const DefaultGrace = 3 * time.Second

// Loader starts a unit's entry and waits for it.
type Loader interface {
	Kind() string
	// Target is the platform units must be built for.
	Target() (goos, goarch string)
	Load(ctx context.Context, unit *compiler.Unit, entry compiler.Entry, args []string) error
}

// ExitError is returned by loaders when the program exits non-zero.
type ExitError struct {
	Code int
	// Stderr is the tail of what the program wrote to stderr.
	Stderr string
}

func (e *ExitError) Error() string { return fmt.Sprintf("exit status %d", e.Code) }

// Streams are the standard streams handed to the program.
type Streams struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// StdStreams returns the process's own streams.
func StdStreams() Streams { return Streams{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr} }

// Executor locates entries and classifies how a run ended.
type Executor struct {
	loader Loader
	logger *pterm.Logger
}

// Option configures an Executor.
type Option func(*config)

type config struct {
	streams Streams
	grace   time.Duration
	image   string
	docker  string
	logger  *pterm.Logger
}

// WithStreams replaces the standard streams.
func WithStreams(s Streams) Option { return func(c *config) { c.streams = s } }

// WithGrace sets the SIGINT grace period.
func WithGrace(d time.Duration) Option { return func(c *config) { c.grace = d } }

// WithImage sets the docker image.
func WithImage(image string) Option { return func(c *config) { c.image = image } }

// WithDockerBin sets the docker command.
func WithDockerBin(bin string) Option { return func(c *config) { c.docker = bin } }

// WithLogger sets the debug logger.
func WithLogger(l *pterm.Logger) Option { return func(c *config) { c.logger = l } }

// New returns the executor for kind.
func New(kind string, opts ...Option) (*Executor, error) {
	c := config{streams: StdStreams(), grace: DefaultGrace, image: DefaultImage, docker: "docker", logger: logging.Logger()}
	for _, opt := range opts {
		opt(&c)
	}
	var l Loader
	switch kind {
	case model.ExecutorProcess, "":
		l = &ProcessLoader{Streams: c.streams, Grace: c.grace}
	case model.ExecutorDocker:
		d, err := NewDockerLoader(c.docker, c.image, c.streams, c.grace)
		if err != nil {
			return nil, errors.Wrap(errors.ConfigError, "docker executor", err)
		}
		l = d
	default:
		return nil, errors.Newf(errors.InputError, "unknown executor %q (want %s or %s)", kind, model.ExecutorProcess, model.ExecutorDocker)
	}
	return NewWithLoader(l, c.logger), nil
}

// NewWithLoader wraps an arbitrary loader.
func NewWithLoader(l Loader, logger *pterm.Logger) *Executor {
	if logger == nil {
		logger = logging.Logger()
	}
	return &Executor{loader: l, logger: logger}
}

// Target is the platform units must be built for.
func (e *Executor) Target() (goos, goarch string) { return e.loader.Target() }

// Execute runs the named entry of unit with args.
func (e *Executor) Execute(ctx context.Context, unit *compiler.Unit, entryName string, args []string) error {
	entry, err := unit.FindEntry(entryName)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return errors.Wrap(errors.CancelledError, "execute", err)
	}
	e.logger.Debug("executing unit", e.logger.Args("loader", e.loader.Kind(), "entry", entry.Name, "args", len(args)))
	return Classify(ctx, e.loader.Load(ctx, unit, entry, args))
}

// Classify maps a loader result to an error kind: cancellation wins, a Go
// runtime crash is an unhandled panic, anything else is an execution error.
func Classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return errors.Wrap(errors.CancelledError, "execution cancelled", ctx.Err())
	}
	var exit *ExitError
	if stderrors.As(err, &exit) {
		if exit.Code == 2 && strings.Contains(exit.Stderr, "goroutine ") {
			if msg, ok := panicMessage(exit.Stderr); ok {
				return errors.Wrap(errors.UnhandledPanic, msg, err)
			}
		}
		if exit.Code == compiler.ExitUnknownEntry && strings.Contains(exit.Stderr, "unknown entry") {
			return errors.Wrap(errors.ExecutionError, strings.TrimSpace(lastLine(exit.Stderr)), err)
		}
		return errors.Wrap(errors.ExecutionError, "program failed", err)
	}
	return errors.Wrap(errors.ExecutionError, "could not start program", err)
}

// panicMessage extracts the first "panic: " or "fatal error: " line.
func panicMessage(stderr string) (string, bool) {
	for _, line := range strings.Split(stderr, "\n") {
		if strings.HasPrefix(line, "panic: ") || strings.HasPrefix(line, "fatal error: ") {
			return strings.TrimSpace(line), true
		}
	}
	return "", false
}

func lastLine(s string) string {
	s = strings.TrimRight(s, "\n")
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

func hostTarget() (string, string) { return runtime.GOOS, runtime.GOARCH }

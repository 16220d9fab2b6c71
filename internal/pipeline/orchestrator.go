// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package pipeline sequences a one-shot run: validate, enrich from a project
// descriptor, fetch, resolve references, compile and execute. Each stage is
// timed on its own and the first failure stops the run. The error returned
// carries a kind that ExitCode maps to the process exit status.
package pipeline

import (
	"context"
	"runtime"
	"strings"

	"github.com/pterm/pterm"

	"goexec/cli/internal/compiler"
	"goexec/cli/internal/errors"
	"goexec/cli/internal/fetch"
	"goexec/cli/internal/logging"
	"goexec/cli/internal/model"
	"goexec/cli/internal/project"
	"goexec/cli/internal/reference"
)

// DefaultFramework is added when no reference selects a framework.
const DefaultFramework = "framework:default"

// Exit statuses.
const (
	ExitOK        = 0
	ExitInput     = -1
	ExitCompile   = -2
	ExitExecute   = -3
	ExitCancelled = -4
	ExitPanic     = -5
)

// Fetcher obtains snippet source.
type Fetcher interface {
	Fetch(ctx context.Context, spec string) (*fetch.Source, error)
}

// Resolver turns reference specifiers into references.
type Resolver interface {
	Resolve(ctx context.Context, specs []string, allowCache bool) ([]reference.Reference, error)
}

// Executor runs a compiled unit.
type Executor interface {
	Target() (goos, goarch string)
	Execute(ctx context.Context, unit *compiler.Unit, entry string, args []string) error
}

// CompilerFactory returns the compiler variant named by kind.
type CompilerFactory func(kind string) (compiler.Compiler, error)

// ExecutorFactory returns the executor for req.
type ExecutorFactory func(req model.Request) (Executor, error)

// Orchestrator runs requests. It holds no per-run state and may be reused.
type Orchestrator struct {
	fetcher   Fetcher
	resolver  Resolver
	compilers CompilerFactory
	executors ExecutorFactory
	enrich    func(path string) (*project.Enrichment, error)
	notify    Notifier
	logger    *pterm.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithNotifier sets the progress callback.
func WithNotifier(n Notifier) Option { return func(o *Orchestrator) { o.notify = n } }

// WithLogger sets the debug logger.
func WithLogger(l *pterm.Logger) Option { return func(o *Orchestrator) { o.logger = l } }

// WithEnricher replaces project descriptor loading.
func WithEnricher(fn func(path string) (*project.Enrichment, error)) Option {
	return func(o *Orchestrator) { o.enrich = fn }
}

// New returns an orchestrator over the given stages.
func New(f Fetcher, r Resolver, compilers CompilerFactory, executors ExecutorFactory, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		fetcher:   f,
		resolver:  r,
		compilers: compilers,
		executors: executors,
		enrich:    project.Enrich,
		notify:    func(Event) {},
		logger:    logging.Logger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes req. The report is always returned, also on failure.
func (o *Orchestrator) Run(ctx context.Context, req model.Request) (*Report, error) {
	rep := NewReport()
	req = req.WithDefaults().Clone()

	if err := o.stage(ctx, rep, StageValidate, func() error { return validate(req) }); err != nil {
		return rep, err
	}

	if req.Project != "" {
		err := o.stage(ctx, rep, StageEnrich, func() error {
			e, err := o.enrich(req.Project)
			if err != nil {
				return errors.Wrap(errors.ResolutionError, "project "+req.Project, err)
			}
			e.Apply(&req)
			return nil
		})
		if err != nil {
			return rep, err
		}
	}

	var src *fetch.Source
	err := o.stage(ctx, rep, StageFetch, func() error {
		s, err := o.fetcher.Fetch(ctx, req.Script)
		if err != nil {
			return classify(err, errors.FetchError, "fetch script")
		}
		if strings.TrimSpace(s.Text) == "" {
			return errors.Newf(errors.InputError, "script %s is empty", s.Name)
		}
		src = s
		req.AddReferences(s.References...)
		req.AddUsings(s.Usings...)
		req.ScriptMode = req.ScriptMode || s.ScriptMode
		return nil
	})
	if err != nil {
		return rep, err
	}

	var (
		refs   []reference.Reference
		usings []model.Using
	)
	err = o.stage(ctx, rep, StageResolve, func() error {
		specs := append([]string(nil), req.References...)
		if !req.HasFramework() {
			specs = append(specs, DefaultFramework)
		}
		r, err := o.resolver.Resolve(ctx, specs, !req.NoCache)
		if err != nil {
			return classify(err, errors.ResolutionError, "resolve references")
		}
		refs = r
		directives := append(reference.Usings(refs), req.Usings...)
		u, err := model.ResolveUsings(directives...)
		if err != nil {
			return errors.Wrap(errors.InputError, "using directive", err)
		}
		usings = u
		return nil
	})
	if err != nil {
		return rep, err
	}

	var (
		unit *compiler.Unit
		exec Executor
	)
	err = o.stage(ctx, rep, StageCompile, func() error {
		kind := req.Compiler
		if req.ScriptMode {
			kind = model.CompilerAdvanced
		}
		c, err := o.compilers(kind)
		if err != nil {
			return classify(err, errors.InputError, "compiler")
		}
		exec, err = o.executors(req)
		if err != nil {
			return classify(err, errors.InputError, "executor")
		}
		in := compiler.Input{
			Source:      compiler.Source{Name: src.Name, Text: src.Text},
			Usings:      usings,
			References:  refs,
			LangVersion: req.LangVersion,
			Debug:       req.Debug,
			Capture:     req.ScriptMode,
		}
		if goos, goarch := exec.Target(); goos != runtime.GOOS || goarch != runtime.GOARCH {
			in.GOOS, in.GOARCH = goos, goarch
		}
		unit, err = c.Compile(ctx, in)
		if err != nil {
			return classify(err, errors.CompileError, "compile")
		}
		for _, d := range compiler.Warnings(unit.Diagnostics) {
			rep.Warn(d.String())
			o.notify(Event{Type: EventWarning, Stage: StageCompile, Message: d.String()})
		}
		return nil
	})
	if err != nil {
		return rep, err
	}
	if !req.Debug {
		defer func() {
			if err := unit.Cleanup(); err != nil {
				o.logger.Debug("remove unit", o.logger.Args("dir", unit.Dir, "error", err))
			}
		}()
	} else {
		o.logger.Info("keeping build unit", o.logger.Args("dir", unit.Dir))
	}

	err = o.stage(ctx, rep, StageExecute, func() error {
		return classify(exec.Execute(ctx, unit, req.Entry, req.Args), errors.ExecutionError, "execute")
	})
	return rep, err
}

// stage times fn and reports its outcome. Cancellation observed after fn
// returns wins over the error fn reported.
func (o *Orchestrator) stage(ctx context.Context, rep *Report, s Stage, fn func() error) error {
	if err := ctx.Err(); err != nil {
		err = errors.Wrap(errors.CancelledError, string(s)+" cancelled", err)
		rep.Start(s)
		rep.Fail(s, err)
		o.notify(Event{Type: EventStageFailed, Stage: s, Err: err})
		return err
	}
	rep.Start(s)
	o.notify(Event{Type: EventStageStarted, Stage: s})
	err := fn()
	if err != nil && ctx.Err() != nil && !errors.Is(err, errors.CancelledError) {
		err = errors.Wrap(errors.CancelledError, string(s)+" cancelled", err)
	}
	if err != nil {
		d := rep.Fail(s, err)
		o.logger.Debug("stage failed", o.logger.Args("stage", string(s), "elapsed", d, "kind", string(errors.KindOf(err))))
		o.notify(Event{Type: EventStageFailed, Stage: s, Elapsed: d, Err: err})
		return err
	}
	d := rep.Finish(s)
	o.logger.Debug("stage done", o.logger.Args("stage", string(s), "elapsed", d))
	o.notify(Event{Type: EventStageDone, Stage: s, Elapsed: d})
	return nil
}

func validate(req model.Request) error {
	if strings.TrimSpace(req.Script) == "" {
		return errors.New(errors.InputError, "no script given: pass a file, a URL, code:<text> or script:<text>")
	}
	switch strings.TrimSpace(req.Script) {
	case fetch.InlinePrefix, fetch.ScriptPrefix:
		return errors.Newf(errors.InputError, "%s needs code after the prefix", req.Script)
	}
	return nil
}

// classify keeps an existing kind and gives untyped errors the stage's kind.
func classify(err error, kind errors.Kind, msg string) error {
	if err == nil || errors.KindOf(err) != "" {
		return err
	}
	return errors.Wrap(kind, msg, err)
}

// ExitCode maps an error returned by Run to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch errors.KindOf(err) {
	case errors.CompileError:
		return ExitCompile
	case errors.ExecutionError:
		return ExitExecute
	case errors.CancelledError:
		return ExitCancelled
	case errors.UnhandledPanic:
		return ExitPanic
	}
	return ExitInput
}

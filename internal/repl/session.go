// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package repl implements the interactive session. The session keeps the
// ordered log of accepted snippets and rebuilds the program from that log
// on every evaluation: replayed snippets run muted, the new one runs live.
// A snippet joins the log only when it compiles and runs to completion.
// Effects outside the process, such as written files, repeat on every replay.
package repl

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/google/uuid"
	"github.com/pterm/pterm"

	"goexec/cli/internal/compiler"
	"goexec/cli/internal/errors"
	"goexec/cli/internal/logging"
	"goexec/cli/internal/model"
	"goexec/cli/internal/pipeline"
	"goexec/cli/internal/reference"
)

// Config wires a session to its collaborators.
type Config struct {
	// Request supplies the initial references and usings, the language
	// version and the debug flag.
	Request  model.Request
	Fetcher  pipeline.Fetcher
	Resolver pipeline.Resolver
	Compiler compiler.Compiler
	Executor pipeline.Executor
	Logger   *pterm.Logger
}

// Session is the replayable state of an interactive run.
type Session struct {
	ID string

	cfg        Config
	specs      []string
	refs       []reference.Reference
	directives []string
	usings     []model.Using
	log        []compiler.Source
	seq        int
}

// NewSession resolves the initial reference and using sets.
func NewSession(ctx context.Context, cfg Config) (*Session, error) {
	if cfg.Logger == nil {
		cfg.Logger = logging.Logger()
	}
	s := &Session{ID: uuid.NewString(), cfg: cfg}
	specs := append([]string(nil), cfg.Request.References...)
	if !cfg.Request.HasFramework() {
		specs = append(specs, pipeline.DefaultFramework)
	}
	refs, usings, err := s.resolve(ctx, specs, cfg.Request.Usings, !cfg.Request.NoCache)
	if err != nil {
		return nil, err
	}
	s.specs, s.refs = specs, refs
	s.directives, s.usings = append([]string(nil), cfg.Request.Usings...), usings
	return s, nil
}

// Eval compiles text on top of the accepted log and runs it. On any error
// the log is left as it was.
func (s *Session) Eval(ctx context.Context, text string) error {
	return s.evalUnder(ctx, text, s.current())
}

// evalUnder runs text with st in effect and adopts st together with the
// snippet when it succeeds.
func (s *Session) evalUnder(ctx context.Context, text string, st state) error {
	s.seq++
	src := compiler.Source{Name: fmt.Sprintf("in%d.go", s.seq), Text: text}
	captured, err := s.run(ctx, src, st.refs, st.usings)
	if err != nil {
		return err
	}
	src.Captured = captured
	s.adopt(st)
	s.log = append(s.log, src)
	s.cfg.Logger.Debug("snippet accepted", s.cfg.Logger.Args("session", s.ID, "log", len(s.log)))
	return nil
}

// AddReference resolves spec together with the current references, bypassing
// the cache, and rebuilds the session under the new set. On failure the
// previous references stay in effect.
func (s *Session) AddReference(ctx context.Context, spec string) error {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return errors.New(errors.InputError, "usage: #r <reference>")
	}
	return s.extend(ctx, []string{spec}, nil)
}

// AddUsing adds a using directive and rebuilds the session under it.
func (s *Session) AddUsing(ctx context.Context, directive string) error {
	directive = strings.TrimSpace(directive)
	if directive == "" {
		return errors.New(errors.InputError, "usage: #u <import>")
	}
	return s.extend(ctx, nil, []string{directive})
}

// Load fetches spec and evaluates it under its reference and using
// directives. The directives stay in effect only if the evaluation succeeds.
func (s *Session) Load(ctx context.Context, spec string) error {
	src, err := s.cfg.Fetcher.Fetch(ctx, spec)
	if err != nil {
		if errors.KindOf(err) == "" {
			err = errors.Wrap(errors.FetchError, "load "+spec, err)
		}
		return err
	}
	st, err := s.next(ctx, src.References, src.Usings)
	if err != nil {
		return err
	}
	return s.evalUnder(ctx, src.Text, st)
}

// state is the reference and using set a program is built under.
type state struct {
	specs      []string
	refs       []reference.Reference
	directives []string
	usings     []model.Using
}

func (s *Session) current() state {
	return state{specs: s.specs, refs: s.refs, directives: s.directives, usings: s.usings}
}

func (s *Session) adopt(st state) {
	s.specs, s.refs = st.specs, st.refs
	s.directives, s.usings = st.directives, st.usings
}

// next resolves the state with specs and directives added. New references
// always bypass the cache.
func (s *Session) next(ctx context.Context, specs, directives []string) (state, error) {
	st := state{
		specs:      model.Union(s.specs, specs...),
		refs:       s.refs,
		directives: model.Union(s.directives, directives...),
	}
	if len(specs) > 0 {
		var err error
		if st.refs, err = s.resolveRefs(ctx, st.specs, false); err != nil {
			return state{}, err
		}
	}
	usings, err := model.ResolveUsings(append(reference.Usings(st.refs), st.directives...)...)
	if err != nil {
		return state{}, errors.Wrap(errors.InputError, "using directive", err)
	}
	st.usings = usings
	return st, nil
}

// extend adopts extra references and usings once the log rebuilds under
// them.
func (s *Session) extend(ctx context.Context, specs, directives []string) error {
	st, err := s.next(ctx, specs, directives)
	if err != nil {
		return err
	}
	if err := s.rebuild(ctx, st.refs, st.usings); err != nil {
		return err
	}
	s.adopt(st)
	return nil
}

// Reset forgets every accepted snippet. References and usings stay.
func (s *Session) Reset() {
	s.log = nil
	s.seq = 0
}

// References returns the reference specifiers in effect.
func (s *Session) References() []string { return append([]string(nil), s.specs...) }

// Usings returns the effective import set.
func (s *Session) Usings() []string {
	out := make([]string, 0, len(s.usings))
	for _, u := range s.usings {
		out = append(out, u.String())
	}
	return out
}

// Source returns the accepted snippets in order.
func (s *Session) Source() []string {
	out := make([]string, 0, len(s.log))
	for _, src := range s.log {
		out = append(out, src.Text)
	}
	return out
}

func (s *Session) resolve(ctx context.Context, specs, directives []string, allowCache bool) ([]reference.Reference, []model.Using, error) {
	refs, err := s.resolveRefs(ctx, specs, allowCache)
	if err != nil {
		return nil, nil, err
	}
	usings, err := model.ResolveUsings(append(reference.Usings(refs), directives...)...)
	if err != nil {
		return nil, nil, errors.Wrap(errors.InputError, "using directive", err)
	}
	return refs, usings, nil
}

func (s *Session) resolveRefs(ctx context.Context, specs []string, allowCache bool) ([]reference.Reference, error) {
	refs, err := s.cfg.Resolver.Resolve(ctx, specs, allowCache)
	if err != nil && errors.KindOf(err) == "" {
		err = errors.Wrap(errors.ResolutionError, "resolve references", err)
	}
	return refs, err
}

// rebuild replays the whole log under refs and usings, muted.
func (s *Session) rebuild(ctx context.Context, refs []reference.Reference, usings []model.Using) error {
	if len(s.log) == 0 {
		return nil
	}
	s.cfg.Logger.Debug("rebuilding session", s.cfg.Logger.Args("session", s.ID, "log", len(s.log)))
	_, err := s.run(ctx, compiler.Source{Name: "rebuild.go", Muted: true}, refs, usings)
	return err
}

// run builds and executes src after the log and reports whether its
// trailing expression was captured.
func (s *Session) run(ctx context.Context, src compiler.Source, refs []reference.Reference, usings []model.Using) (bool, error) {
	in := s.input(src, refs, usings)
	unit, err := s.cfg.Compiler.Compile(ctx, in)
	if err != nil {
		return false, err
	}
	if !s.cfg.Request.Debug {
		defer unit.Cleanup()
	}
	if err := s.cfg.Executor.Execute(ctx, unit, "", nil); err != nil {
		return false, err
	}
	return unit.Captured, nil
}

func (s *Session) input(src compiler.Source, refs []reference.Reference, usings []model.Using) compiler.Input {
	replays := make([]compiler.Source, len(s.log))
	for i, r := range s.log {
		r.Muted = true
		replays[i] = r
	}
	in := compiler.Input{
		Source:      src,
		Replays:     replays,
		Usings:      usings,
		References:  refs,
		LangVersion: s.cfg.Request.LangVersion,
		Debug:       s.cfg.Request.Debug,
		Capture:     !src.Muted,
		Interactive: true,
	}
	if goos, goarch := s.cfg.Executor.Target(); goos != runtime.GOOS || goarch != runtime.GOARCH {
		in.GOOS, in.GOARCH = goos, goarch
	}
	return in
}

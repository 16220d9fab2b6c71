// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package compiler turns snippet source plus resolved references into an
// executable built by the Go toolchain. Three variants share one contract:
// simple (a single complete file), workspace (a txtar archive of files and
// sub-packages) and advanced (loose top-level statements, sessions and
// expression capture).
package compiler

import (
	"context"
	"fmt"
	"os"
	"strings"

	"goexec/cli/internal/errors"
	"goexec/cli/internal/model"
	"goexec/cli/internal/reference"
)

// Source is one named piece of user code.
type Source struct {
	Name string
	Text string
	// Muted sources run with stdout, stderr and the log package silenced.
	Muted bool
	// Captured marks a replayed source whose trailing expression was
	// printed when it ran live; it is rendered the same way again.
	Captured bool
}

// Input is everything a compile needs.
type Input struct {
	// Source is the code being compiled; for the advanced compiler it runs
	// after Replays.
	Source     Source
	Replays    []Source
	Usings     []model.Using
	References []reference.Reference

	// LangVersion is the go directive ("1.22"); empty uses the SDK language.
	LangVersion string
	Debug       bool
	// Capture wraps the trailing expression of Source in dump(...).
	Capture bool
	// Interactive always emits the implicit entry point, even for
	// declaration-only input.
	Interactive bool

	// GOOS and GOARCH select a cross build; empty means the host.
	GOOS   string
	GOARCH string
}

// Compiler is implemented by every variant.
type Compiler interface {
	Compile(ctx context.Context, in Input) (*Unit, error)
}

// Stager is implemented by compilers that can lay out a unit's module
// without running the toolchain, for tools that type-check it themselves.
type Stager interface {
	Stage(in Input, dir string) (env []string, err error)
}

// Unit is a successfully built program.
type Unit struct {
	ID     string
	Dir    string
	Binary string
	GOOS   string
	// Library is set when the source had no implicit entry point and was
	// rebuilt as a package whose exported functions are dispatchable.
	Library bool
	// Captured reports whether the trailing expression is printed.
	Captured    bool
	Entries     []Entry
	Diagnostics []Diagnostic
}

// Cleanup removes the build directory.
func (u *Unit) Cleanup() error {
	if u == nil || u.Dir == "" {
		return nil
	}
	return os.RemoveAll(u.Dir)
}

// FindEntry locates an entry by name. An empty name selects main, or the
// only exported entry of a library unit.
func (u *Unit) FindEntry(name string) (Entry, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		if !u.Library {
			name = MainEntry
		} else {
			switch len(u.Entries) {
			case 0:
				return Entry{}, errors.New(errors.ExecutionError, "no entry point: the snippet declares no func main and no exported entry function")
			case 1:
				return u.Entries[0], nil
			default:
				return Entry{}, errors.Newf(errors.ExecutionError, "several entry points, choose one with --entry: %s", entryNames(u.Entries))
			}
		}
	}

	for _, e := range u.Entries {
		if e.Name == name {
			return e, nil
		}
	}
	var matches []Entry
	for _, e := range u.Entries {
		if strings.HasSuffix(e.Name, "."+name) {
			matches = append(matches, e)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		if len(u.Entries) == 0 {
			return Entry{}, errors.Newf(errors.ExecutionError, "entry %q not found", name)
		}
		return Entry{}, errors.Newf(errors.ExecutionError, "entry %q not found; available: %s", name, entryNames(u.Entries))
	default:
		return Entry{}, errors.Newf(errors.ExecutionError, "entry %q is ambiguous: %s", name, entryNames(matches))
	}
}

func entryNames(entries []Entry) string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return strings.Join(names, ", ")
}

// New returns the compiler variant named kind.
func New(kind string, opts ...Option) (Compiler, error) {
	var v variant
	switch kind {
	case model.CompilerSimple:
		v = simpleVariant{}
	case model.CompilerWorkspace:
		v = workspaceVariant{}
	case model.CompilerAdvanced, "":
		v = advancedVariant{}
	default:
		return nil, errors.Newf(errors.InputError, "unknown compiler %q (want %s, %s or %s)",
			kind, model.CompilerSimple, model.CompilerWorkspace, model.CompilerAdvanced)
	}
	return newBuilder(v, opts...), nil
}

// Failure carries the diagnostics of a failed compile.
type Failure struct {
	Diagnostics []Diagnostic
}

func (f *Failure) Error() string {
	lines := make([]string, 0, len(f.Diagnostics))
	for _, d := range f.Diagnostics {
		lines = append(lines, d.String())
	}
	return strings.Join(lines, "\n")
}

func failed(diags []Diagnostic) error {
	n := len(Errors(diags))
	return errors.Wrap(errors.CompileError, fmt.Sprintf("%d error(s)", n), &Failure{Diagnostics: diags})
}

// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package repl

import (
	"context"
	stderrors "errors"
	"reflect"
	"runtime"
	"strings"
	"testing"

	"goexec/cli/internal/compiler"
	"goexec/cli/internal/errors"
	"goexec/cli/internal/fetch"
	"goexec/cli/internal/logging"
	"goexec/cli/internal/model"
	"goexec/cli/internal/reference"
)

type fakeFetcher struct {
	sources map[string]*fetch.Source
}

func (f *fakeFetcher) Fetch(ctx context.Context, spec string) (*fetch.Source, error) {
	if src, ok := f.sources[spec]; ok {
		return src, nil
	}
	return nil, errors.New(errors.FetchError, "read "+spec+": no such file")
}

type fakeResolver struct {
	calls      [][]string
	allowCache []bool
	fail       map[string]bool
}

func (f *fakeResolver) Resolve(ctx context.Context, specs []string, allowCache bool) ([]reference.Reference, error) {
	f.calls = append(f.calls, append([]string(nil), specs...))
	f.allowCache = append(f.allowCache, allowCache)
	var refs []reference.Reference
	for _, s := range specs {
		if f.fail[s] {
			return nil, errors.New(errors.ResolutionError, "cannot resolve "+s)
		}
		if s == "framework:default" {
			refs = append(refs, reference.Reference{Artifact: reference.ArtifactFramework, Path: "default", Imports: []string{"fmt"}})
			continue
		}
		refs = append(refs, reference.Reference{Origin: s, Artifact: reference.ArtifactModule, Path: strings.TrimPrefix(s, "mod:")})
	}
	return refs, nil
}

// fakeCompiler rejects any program containing "bad" and remembers inputs.
type fakeCompiler struct {
	inputs []compiler.Input
}

func (f *fakeCompiler) Compile(ctx context.Context, in compiler.Input) (*compiler.Unit, error) {
	f.inputs = append(f.inputs, in)
	for _, src := range append(append([]compiler.Source(nil), in.Replays...), in.Source) {
		if strings.Contains(src.Text, "bad") {
			return nil, errors.Wrap(errors.CompileError, "1 error(s)", &compiler.Failure{Diagnostics: []compiler.Diagnostic{
				{ID: compiler.UndeclaredName, Severity: compiler.SeverityError, File: src.Name, Line: 1, Column: 1, Message: "undefined: bad"},
			}})
		}
	}
	// Programs that need a module reference fail without it.
	for _, src := range append(append([]compiler.Source(nil), in.Replays...), in.Source) {
		if strings.Contains(src.Text, "uuid.") && !hasModule(in.References, "github.com/google/uuid") {
			return nil, errors.New(errors.CompileError, "undefined: uuid")
		}
	}
	// Bare values without assignments or calls are printed.
	captured := in.Capture && !strings.ContainsAny(in.Source.Text, "=(")
	return &compiler.Unit{ID: in.Source.Text, Entries: []compiler.Entry{{Name: compiler.MainEntry}}, Captured: captured}, nil
}

func hasModule(refs []reference.Reference, path string) bool {
	for _, r := range refs {
		if r.Path == path {
			return true
		}
	}
	return false
}

// fakeExecutor fails any unit whose live source contains "boom".
type fakeExecutor struct {
	ran []string
}

func (f *fakeExecutor) Target() (string, string) { return runtime.GOOS, runtime.GOARCH }

func (f *fakeExecutor) Execute(ctx context.Context, unit *compiler.Unit, entry string, args []string) error {
	f.ran = append(f.ran, unit.ID)
	if strings.Contains(unit.ID, "boom") {
		return errors.Wrap(errors.ExecutionError, "program failed", stderrors.New("exit status 2"))
	}
	return nil
}

type fixture struct {
	fetcher  *fakeFetcher
	resolver *fakeResolver
	compiler *fakeCompiler
	executor *fakeExecutor
	session  *Session
}

func newFixture(t *testing.T, req model.Request) *fixture {
	t.Helper()
	f := &fixture{
		fetcher:  &fakeFetcher{sources: map[string]*fetch.Source{}},
		resolver: &fakeResolver{fail: map[string]bool{}},
		compiler: &fakeCompiler{},
		executor: &fakeExecutor{},
	}
	s, err := NewSession(context.Background(), Config{
		Request:  req,
		Fetcher:  f.fetcher,
		Resolver: f.resolver,
		Compiler: f.compiler,
		Executor: f.executor,
		Logger:   logging.Discard(),
	})
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	f.session = s
	return f
}

func TestNewSession(t *testing.T) {
	f := newFixture(t, model.Request{References: []string{"mod:github.com/google/uuid"}, Usings: []string{"strings"}})
	if want := []string{"mod:github.com/google/uuid", "framework:default"}; !reflect.DeepEqual(f.session.References(), want) {
		t.Errorf("References() = %v, want %v", f.session.References(), want)
	}
	if want := []string{"fmt", "strings"}; !reflect.DeepEqual(f.session.Usings(), want) {
		t.Errorf("Usings() = %v, want %v", f.session.Usings(), want)
	}
	if !f.resolver.allowCache[0] {
		t.Error("initial resolution bypassed the cache")
	}
}

func TestNewSessionResolutionFailure(t *testing.T) {
	r := &fakeResolver{fail: map[string]bool{"mod:example.com/nope": true}}
	_, err := NewSession(context.Background(), Config{
		Request:  model.Request{References: []string{"mod:example.com/nope"}},
		Resolver: r,
		Logger:   logging.Discard(),
	})
	if !errors.Is(err, errors.ResolutionError) {
		t.Errorf("NewSession() error = %v, want resolution error", err)
	}
}

func TestEvalAcceptsAndReplays(t *testing.T) {
	f := newFixture(t, model.Request{})
	ctx := context.Background()
	for _, code := range []string{"x := 1", "y := x + 1", "y"} {
		if err := f.session.Eval(ctx, code); err != nil {
			t.Fatalf("Eval(%q) error = %v", code, err)
		}
	}
	if want := []string{"x := 1", "y := x + 1", "y"}; !reflect.DeepEqual(f.session.Source(), want) {
		t.Errorf("Source() = %v, want %v", f.session.Source(), want)
	}

	last := f.compiler.inputs[len(f.compiler.inputs)-1]
	if len(last.Replays) != 2 {
		t.Fatalf("Replays = %d, want 2", len(last.Replays))
	}
	for _, r := range last.Replays {
		if !r.Muted {
			t.Errorf("replay %s not muted", r.Name)
		}
	}
	if last.Source.Muted || !last.Capture || !last.Interactive {
		t.Errorf("live input = %+v, want unmuted, captured, interactive", last.Source)
	}
	if last.Source.Name != "in3.go" {
		t.Errorf("Source.Name = %q, want in3.go", last.Source.Name)
	}
}

func TestEvalReplaysCapturedValues(t *testing.T) {
	f := newFixture(t, model.Request{})
	ctx := context.Background()
	for _, code := range []string{"x := 1", "x", "y := x"} {
		if err := f.session.Eval(ctx, code); err != nil {
			t.Fatalf("Eval(%q) error = %v", code, err)
		}
	}
	last := f.compiler.inputs[len(f.compiler.inputs)-1]
	want := []bool{false, true}
	if len(last.Replays) != len(want) {
		t.Fatalf("Replays = %d, want %d", len(last.Replays), len(want))
	}
	for i, r := range last.Replays {
		if r.Captured != want[i] {
			t.Errorf("Replays[%d].Captured = %v, want %v", i, r.Captured, want[i])
		}
	}

	// A rebuild keeps the flag on every replayed source.
	if err := f.session.AddReference(ctx, "mod:github.com/google/uuid"); err != nil {
		t.Fatal(err)
	}
	rebuild := f.compiler.inputs[len(f.compiler.inputs)-1]
	if len(rebuild.Replays) != 2 || !rebuild.Replays[1].Captured || rebuild.Source.Captured {
		t.Errorf("rebuild input = %+v", rebuild)
	}
}

func TestCompileErrorLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t, model.Request{})
	ctx := context.Background()
	if err := f.session.Eval(ctx, "x := 1"); err != nil {
		t.Fatal(err)
	}
	before := f.session.Source()
	runs := len(f.executor.ran)

	err := f.session.Eval(ctx, "bad()")
	if !errors.Is(err, errors.CompileError) {
		t.Fatalf("Eval() error = %v, want compile error", err)
	}
	if !reflect.DeepEqual(f.session.Source(), before) {
		t.Errorf("Source() = %v, want %v", f.session.Source(), before)
	}
	if len(f.executor.ran) != runs {
		t.Error("a unit that failed to compile was executed")
	}

	// The next snippet replays only what was accepted.
	if err := f.session.Eval(ctx, "x"); err != nil {
		t.Fatal(err)
	}
	last := f.compiler.inputs[len(f.compiler.inputs)-1]
	if len(last.Replays) != 1 || last.Replays[0].Text != "x := 1" {
		t.Errorf("Replays = %+v, want only the accepted snippet", last.Replays)
	}
}

func TestRuntimeFailureIsNotAdopted(t *testing.T) {
	f := newFixture(t, model.Request{})
	ctx := context.Background()
	if err := f.session.Eval(ctx, "x := 1"); err != nil {
		t.Fatal(err)
	}
	err := f.session.Eval(ctx, `x = 2; panic("boom")`)
	if !errors.Is(err, errors.ExecutionError) {
		t.Fatalf("Eval() error = %v, want execution error", err)
	}
	if want := []string{"x := 1"}; !reflect.DeepEqual(f.session.Source(), want) {
		t.Errorf("Source() = %v, want %v", f.session.Source(), want)
	}
}

func TestAddReferenceRebuilds(t *testing.T) {
	f := newFixture(t, model.Request{})
	ctx := context.Background()
	if err := f.session.Eval(ctx, `fmt.Println("hi")`); err != nil {
		t.Fatal(err)
	}
	compiles := len(f.compiler.inputs)

	if err := f.session.AddReference(ctx, "mod:github.com/google/uuid"); err != nil {
		t.Fatalf("AddReference() error = %v", err)
	}
	if got := f.resolver.allowCache[len(f.resolver.allowCache)-1]; got {
		t.Error("#r resolved through the cache")
	}
	if len(f.compiler.inputs) != compiles+1 {
		t.Fatalf("compiles = %d, want one rebuild", len(f.compiler.inputs)-compiles)
	}
	rebuild := f.compiler.inputs[len(f.compiler.inputs)-1]
	if !rebuild.Source.Muted || len(rebuild.Replays) != 1 || !hasModule(rebuild.References, "github.com/google/uuid") {
		t.Errorf("rebuild input = %+v", rebuild)
	}

	if err := f.session.Eval(ctx, "uuid.New()"); err != nil {
		t.Errorf("Eval() after #r error = %v", err)
	}
}

func TestAddReferenceFailureKeepsSession(t *testing.T) {
	f := newFixture(t, model.Request{})
	ctx := context.Background()
	if err := f.session.Eval(ctx, "x := 1"); err != nil {
		t.Fatal(err)
	}
	refs := f.session.References()

	f.resolver.fail["mod:example.com/nope"] = true
	if err := f.session.AddReference(ctx, "mod:example.com/nope"); !errors.Is(err, errors.ResolutionError) {
		t.Fatalf("AddReference() error = %v, want resolution error", err)
	}
	if !reflect.DeepEqual(f.session.References(), refs) {
		t.Errorf("References() = %v, want %v", f.session.References(), refs)
	}
	if want := []string{"x := 1"}; !reflect.DeepEqual(f.session.Source(), want) {
		t.Errorf("Source() = %v, want %v", f.session.Source(), want)
	}
}

func TestAddUsing(t *testing.T) {
	f := newFixture(t, model.Request{})
	ctx := context.Background()
	if err := f.session.AddUsing(ctx, "-fmt"); err != nil {
		t.Fatal(err)
	}
	if err := f.session.AddUsing(ctx, ". strings"); err != nil {
		t.Fatal(err)
	}
	if want := []string{"static strings"}; !reflect.DeepEqual(f.session.Usings(), want) {
		t.Errorf("Usings() = %v, want %v", f.session.Usings(), want)
	}
	if err := f.session.AddUsing(ctx, "a b c"); !errors.Is(err, errors.InputError) {
		t.Errorf("AddUsing(invalid) error = %v, want input error", err)
	}
	if err := f.session.AddUsing(ctx, ""); !errors.Is(err, errors.InputError) {
		t.Errorf("AddUsing(empty) error = %v, want input error", err)
	}
}

func TestLoad(t *testing.T) {
	f := newFixture(t, model.Request{})
	f.fetcher.sources["lib.go"] = &fetch.Source{
		Text:       "id := uuid.New()",
		Name:       "lib.go",
		References: []string{"mod:github.com/google/uuid"},
		Usings:     []string{"github.com/google/uuid"},
	}
	ctx := context.Background()
	if err := f.session.Load(ctx, "lib.go"); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if want := []string{"id := uuid.New()"}; !reflect.DeepEqual(f.session.Source(), want) {
		t.Errorf("Source() = %v, want %v", f.session.Source(), want)
	}
	if want := []string{"framework:default", "mod:github.com/google/uuid"}; !reflect.DeepEqual(f.session.References(), want) {
		t.Errorf("References() = %v, want %v", f.session.References(), want)
	}
	if err := f.session.Load(ctx, "missing.go"); !errors.Is(err, errors.FetchError) {
		t.Errorf("Load(missing) error = %v, want fetch error", err)
	}
}

func TestLoadFailureKeepsDirectives(t *testing.T) {
	tests := []struct {
		name string
		text string
		kind errors.Kind
	}{
		{"compile error", "v := bad()", errors.CompileError},
		{"runtime failure", `panic("boom")`, errors.ExecutionError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, model.Request{})
			f.fetcher.sources["lib.go"] = &fetch.Source{
				Text:       tt.text,
				Name:       "lib.go",
				References: []string{"mod:github.com/google/uuid"},
				Usings:     []string{"github.com/google/uuid"},
			}
			refs, usings := f.session.References(), f.session.Usings()
			if err := f.session.Load(context.Background(), "lib.go"); !errors.Is(err, tt.kind) {
				t.Fatalf("Load() error = %v, want %v", err, tt.kind)
			}
			if !reflect.DeepEqual(f.session.References(), refs) {
				t.Errorf("References() = %v, want %v", f.session.References(), refs)
			}
			if !reflect.DeepEqual(f.session.Usings(), usings) {
				t.Errorf("Usings() = %v, want %v", f.session.Usings(), usings)
			}
			if got := f.session.Source(); len(got) != 0 {
				t.Errorf("Source() = %v, want empty", got)
			}
		})
	}
}

func TestReset(t *testing.T) {
	f := newFixture(t, model.Request{})
	if err := f.session.Eval(context.Background(), "x := 1"); err != nil {
		t.Fatal(err)
	}
	f.session.Reset()
	if got := f.session.Source(); len(got) != 0 {
		t.Errorf("Source() = %v after reset", got)
	}
}

func TestCompleteWithoutStagerDoesNotMutate(t *testing.T) {
	f := newFixture(t, model.Request{})
	ctx := context.Background()
	if err := f.session.Eval(ctx, "x := 1"); err != nil {
		t.Fatal(err)
	}
	compiles, runs := len(f.compiler.inputs), len(f.executor.ran)
	if _, err := f.session.Complete(ctx, "x."); err == nil {
		t.Error("Complete() succeeded without a stager")
	}
	if len(f.compiler.inputs) != compiles || len(f.executor.ran) != runs {
		t.Error("completion compiled or executed code")
	}
	if want := []string{"x := 1"}; !reflect.DeepEqual(f.session.Source(), want) {
		t.Errorf("Source() = %v, want %v", f.session.Source(), want)
	}
}

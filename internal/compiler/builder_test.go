// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package compiler

import (
	"context"
	stderrors "errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/mod/modfile"

	"goexec/cli/internal/errors"
	"goexec/cli/internal/logging"
	"goexec/cli/internal/reference"
)

// scriptedRunner answers go build invocations from a list of outputs; an
// empty output means success.
type scriptedRunner struct {
	t       *testing.T
	outputs []string
	calls   int
	dirs    []string
	inspect func(call int, dir string)
}

func (r *scriptedRunner) run(ctx context.Context, dir string, env []string, name string, args ...string) ([]byte, error) {
	r.t.Helper()
	if args[0] != "build" {
		return nil, nil
	}
	call := r.calls
	r.calls++
	r.dirs = append(r.dirs, dir)
	if r.inspect != nil {
		r.inspect(call, dir)
	}
	if call >= len(r.outputs) || r.outputs[call] == "" {
		return nil, nil
	}
	return []byte(r.outputs[call]), stderrors.New("exit status 1")
}

func newTestCompiler(t *testing.T, kind string, r *scriptedRunner) Compiler {
	t.Helper()
	c, err := New(kind, WithWorkDir(t.TempDir()), WithLogger(logging.Discard()))
	if err != nil {
		t.Fatal(err)
	}
	b := c.(*builder)
	withRunner(r.run)(b)
	return b
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestCompileRetriesAsLibrary(t *testing.T) {
	r := &scriptedRunner{t: t, outputs: []string{"./zz_entry.go:18:3: undefined: entryMain"}}
	r.inspect = func(call int, dir string) {
		if call == 1 {
			if got := readFile(t, filepath.Join(dir, "snippetlib", "tools.go")); !strings.HasPrefix(got, "package snippetlib") {
				t.Errorf("library source = %q", got)
			}
		}
	}
	c := newTestCompiler(t, "simple", r)

	unit, err := c.Compile(context.Background(), Input{Source: Source{Name: "tools.go", Text: "package tools\n\nfunc Hello() {}\n"}})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	defer unit.Cleanup()
	if r.calls != 2 {
		t.Errorf("builds = %d, want 2", r.calls)
	}
	if !unit.Library {
		t.Error("Library = false, want true")
	}
	if e, err := unit.FindEntry(""); err != nil || e.Name != "Hello" {
		t.Errorf("FindEntry(\"\") = %+v, %v", e, err)
	}
	if _, err := os.Stat(r.dirs[0]); !os.IsNotExist(err) {
		t.Errorf("failed attempt dir not removed: %v", err)
	}
}

func TestCompileDropsUnusedUsing(t *testing.T) {
	r := &scriptedRunner{t: t, outputs: []string{`./snippet.go:4:2: "strings" imported and not used`}}
	r.inspect = func(call int, dir string) {
		got := readFile(t, filepath.Join(dir, "snippet.go"))
		if has := strings.Contains(got, `"strings"`); has != (call == 0) {
			t.Errorf("attempt %d imports strings = %v", call, has)
		}
	}
	c := newTestCompiler(t, "advanced", r)
	unit, err := c.Compile(context.Background(), Input{
		Source: Source{Name: "code.go", Text: `x := strings.Repeat("a", 2)`},
		Usings: usings("strings"),
	})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	unit.Cleanup()
	if r.calls != 2 {
		t.Errorf("builds = %d, want 2", r.calls)
	}
}

func TestCompileDropsVoidCapture(t *testing.T) {
	r := &scriptedRunner{t: t, outputs: []string{"script.go:2:1: f() (no value) used as value"}}
	c := newTestCompiler(t, "advanced", r)
	unit, err := c.Compile(context.Background(), Input{
		Source:  Source{Name: "script.go", Text: "f := func() {}\nf()"},
		Capture: true,
	})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	defer unit.Cleanup()
	if unit.Captured {
		t.Error("Captured = true after a void expression")
	}
	if r.calls != 2 {
		t.Errorf("builds = %d, want 2", r.calls)
	}
}

func TestCompileFailure(t *testing.T) {
	out := "# snippet\nscript.go:1:1: undefined: y\n./zz_entry.go:18:3: undefined: entryMain\n"
	r := &scriptedRunner{t: t, outputs: []string{out, out}}
	c := newTestCompiler(t, "advanced", r)

	_, err := c.Compile(context.Background(), Input{Source: Source{Name: "script.go", Text: "y"}})
	if !errors.Is(err, errors.CompileError) {
		t.Fatalf("Compile() error = %v, want compile error", err)
	}
	if r.calls != 1 {
		t.Errorf("builds = %d, want 1: an undeclared name must not trigger library mode", r.calls)
	}
	var f *Failure
	if !stderrors.As(err, &f) || len(f.Diagnostics) != 2 {
		t.Fatalf("Failure = %+v", f)
	}
	if !strings.Contains(err.Error(), "UndeclaredName-error-script.go:1:1: undefined: y\nMissingEntryPoint-error-zz_entry.go:18:3: undefined: entryMain") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestCompileToolchainFailure(t *testing.T) {
	r := &scriptedRunner{t: t, outputs: []string{"go: github.com/x/y@v9.9.9: invalid version: unknown revision v9.9.9"}}
	c := newTestCompiler(t, "simple", r)
	_, err := c.Compile(context.Background(), Input{Source: Source{Text: "package main\nfunc main() {}"}})
	var f *Failure
	if !stderrors.As(err, &f) || len(f.Diagnostics) != 1 || f.Diagnostics[0].ID != BuildFailed {
		t.Fatalf("Compile() error = %v", err)
	}
}

func TestCompileInputErrors(t *testing.T) {
	c := newTestCompiler(t, "advanced", &scriptedRunner{t: t})
	if _, err := c.Compile(context.Background(), Input{Source: Source{Text: "  \n"}}); !errors.Is(err, errors.InputError) {
		t.Errorf("empty source error = %v, want input error", err)
	}
	if _, err := c.Compile(context.Background(), Input{Source: Source{Text: "1"}, LangVersion: "banana"}); !errors.Is(err, errors.InputError) {
		t.Errorf("bad language version error = %v, want input error", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Compile(ctx, Input{Source: Source{Text: "1"}}); !errors.Is(err, errors.CancelledError) {
		t.Errorf("cancelled compile error = %v, want cancelled", err)
	}
	if _, err := New("fancy"); !errors.Is(err, errors.InputError) {
		t.Errorf("New(fancy) error = %v, want input error", err)
	}
}

func TestCompileWritesModuleFiles(t *testing.T) {
	local := t.TempDir()
	refs := []reference.Reference{
		{Artifact: reference.ArtifactFramework, Path: "default", GoVersion: "go1.23.4"},
		{Artifact: reference.ArtifactModule, Path: "github.com/google/uuid", Version: "v1.6.0", Direct: true, Sum: "h1:abc=", GoModSum: "h1:def="},
		{Artifact: reference.ArtifactModule, Path: "golang.org/x/text", Version: "v0.14.0"},
		{Artifact: reference.ArtifactLocalModule, Path: "example.com/local", Dir: local},
		{Artifact: reference.ArtifactSource, Path: "/src/helpers.go", Content: []byte("package helpers\n\nfunc Twice(n int) int { return 2 * n }\n")},
	}
	r := &scriptedRunner{t: t}
	r.inspect = func(call int, dir string) {
		mf, err := modfile.Parse("go.mod", []byte(readFile(t, filepath.Join(dir, "go.mod"))), nil)
		if err != nil {
			t.Fatalf("go.mod does not parse: %v", err)
		}
		if mf.Module.Mod.Path != "snippet" || mf.Go.Version != "1.23" {
			t.Errorf("module/go = %s/%s", mf.Module.Mod.Path, mf.Go.Version)
		}
		indirect := map[string]bool{}
		for _, req := range mf.Require {
			indirect[req.Mod.Path] = req.Indirect
		}
		if len(indirect) != 3 || indirect["github.com/google/uuid"] || !indirect["golang.org/x/text"] || indirect["example.com/local"] {
			t.Errorf("requires = %v", indirect)
		}
		if len(mf.Replace) != 1 || mf.Replace[0].New.Path != local {
			t.Errorf("replace = %+v", mf.Replace)
		}
		sum := readFile(t, filepath.Join(dir, "go.sum"))
		if !strings.Contains(sum, "github.com/google/uuid v1.6.0 h1:abc=\n") || !strings.Contains(sum, "github.com/google/uuid v1.6.0/go.mod h1:def=\n") {
			t.Errorf("go.sum = %q", sum)
		}
		if got := readFile(t, filepath.Join(dir, "ref_0_helpers.go")); !strings.HasPrefix(got, "package main\n") {
			t.Errorf("reference source = %q", got)
		}
	}
	c := newTestCompiler(t, "advanced", r)
	unit, err := c.Compile(context.Background(), Input{Source: Source{Text: "dump(Twice(2))"}, References: refs})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	unit.Cleanup()
}

func TestRenderGoWork(t *testing.T) {
	refs := []reference.Reference{{Artifact: reference.ArtifactLocalModule, Path: "example.com/local", Dir: "/work/local"}}
	data, err := renderGoWork(refs, "1.22")
	if err != nil {
		t.Fatal(err)
	}
	wf, err := modfile.ParseWork("go.work", data, nil)
	if err != nil {
		t.Fatalf("go.work does not parse: %v\n%s", err, data)
	}
	if len(wf.Use) != 2 || wf.Use[0].Path != "." || wf.Use[1].Path != "/work/local" {
		t.Errorf("use = %+v", wf.Use)
	}
	mod, err := renderGoMod(refs, "1.22", true)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(mod), "replace") || strings.Contains(string(mod), "example.com/local") {
		t.Errorf("workspace go.mod must not replace local modules:\n%s", mod)
	}
}

// The tests below need a Go toolchain and build real programs.

func requireGo(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping toolchain test in short mode")
	}
	goBin, err := exec.LookPath("go")
	if err != nil {
		t.Skip("go not on PATH")
	}
	return goBin
}

func runUnit(t *testing.T, unit *Unit, entry string) string {
	t.Helper()
	cmd := exec.Command(unit.Binary)
	cmd.Env = append(os.Environ(), EntryEnv+"="+entry)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	return string(out)
}

func TestToolchainEndToEnd(t *testing.T) {
	goBin := requireGo(t)
	tests := []struct {
		name    string
		kind    string
		in      Input
		entry   string
		want    string
		library bool
	}{
		{
			name: "inline code",
			kind: "advanced",
			in:   Input{Source: Source{Name: "code.go", Text: "fmt.Println(1+1)"}, Usings: usings("fmt", "strings")},
			want: "2\n",
		},
		{
			name: "dot import using",
			kind: "advanced",
			in:   Input{Source: Source{Name: "code.go", Text: "Println(1+1)"}, Usings: usings("static fmt")},
			want: "2\n",
		},
		{
			name: "expression script",
			kind: "advanced",
			in:   Input{Source: Source{Name: "script.go", Text: "1+1"}, Capture: true},
			want: "2\n",
		},
		{
			name:    "library entry",
			kind:    "simple",
			in:      Input{Source: Source{Name: "tools.go", Text: "package tools\n\nimport \"fmt\"\n\nfunc Hello(args []string) { fmt.Println(\"hi\", len(args)) }\n"}},
			entry:   "Hello",
			want:    "hi 0\n",
			library: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.kind, WithGoBin(goBin), WithWorkDir(t.TempDir()), WithLogger(logging.Discard()))
			if err != nil {
				t.Fatal(err)
			}
			unit, err := c.Compile(context.Background(), tt.in)
			if err != nil {
				t.Fatalf("Compile() error = %v", err)
			}
			defer unit.Cleanup()
			if unit.Library != tt.library {
				t.Errorf("Library = %v, want %v", unit.Library, tt.library)
			}
			e, err := unit.FindEntry(tt.entry)
			if err != nil {
				t.Fatal(err)
			}
			if got := runUnit(t, unit, e.Name); got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package compiler

import (
	"bytes"
	"context"
	"fmt"
	"go/version"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/pterm/pterm"
	"golang.org/x/mod/modfile"

	"goexec/cli/internal/errors"
	"goexec/cli/internal/logging"
	"goexec/cli/internal/reference"
)

// modulePath is the module path of every unit.
const modulePath = "snippet"

// localVersion is the placeholder version of replaced local modules.
const localVersion = "v0.0.0-00010101000000-000000000000"

// maxAttempts bounds rebuilds after recoverable diagnostics.
const maxAttempts = 4

// runFunc executes a command and returns its combined output.
type runFunc func(ctx context.Context, dir string, env []string, name string, args ...string) ([]byte, error)

// builder renders a variant's layout into a module and drives go build,
// retrying when a diagnostic can be fixed mechanically.
type builder struct {
	variant variant
	goBin   string
	workDir string
	run     runFunc
	logger  *pterm.Logger
}

// Option configures a compiler.
type Option func(*builder)

// WithGoBin sets the go command used when no framework reference names one.
func WithGoBin(p string) Option { return func(b *builder) { b.goBin = p } }

// WithWorkDir sets the directory units are built in.
func WithWorkDir(dir string) Option { return func(b *builder) { b.workDir = dir } }

// WithLogger sets the debug logger.
func WithLogger(l *pterm.Logger) Option { return func(b *builder) { b.logger = l } }

func withRunner(r runFunc) Option { return func(b *builder) { b.run = r } }

func newBuilder(v variant, opts ...Option) *builder {
	b := &builder{
		variant: v,
		goBin:   "go",
		run:     runCommand,
		logger:  logging.Logger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Compile builds in, retrying once in library mode when the implicit entry
// point is missing, and dropping injected imports or the value capture when
// the toolchain rejects them.
func (b *builder) Compile(ctx context.Context, in Input) (*Unit, error) {
	if strings.TrimSpace(in.Source.Text) == "" && len(in.Replays) == 0 && !in.Interactive {
		return nil, errors.New(errors.InputError, "empty source")
	}
	goVersion, err := languageVersion(in)
	if err != nil {
		return nil, err
	}
	workDir := b.workDir
	if workDir == "" {
		if workDir, err = UnitsDir(); err != nil {
			return nil, err
		}
	}

	a := attempt{drop: map[string]bool{}}
	var diags []Diagnostic
	for i := 0; i < maxAttempts; i++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(errors.CancelledError, "compile", err)
		}
		lay, err := b.variant.render(in, a)
		if err != nil {
			return nil, err
		}
		var unit *Unit
		unit, diags, err = b.build(ctx, workDir, in, lay, a, goVersion)
		if err != nil {
			return nil, err
		}
		if unit != nil {
			return unit, nil
		}
		next, ok := a.retry(diags, lay)
		if !ok {
			break
		}
		b.logger.Debug("rebuilding unit", b.logger.Args(
			"compiler", b.variant.name(),
			"library", next.library,
			"capture", !next.noCapture,
			"dropped", len(next.drop),
		))
		a = next
	}
	return nil, failed(diags)
}

// Stage writes the first attempt of in to dir without building it and
// returns the environment the go command needs there.
func (b *builder) Stage(in Input, dir string) ([]string, error) {
	goVersion, err := languageVersion(in)
	if err != nil {
		return nil, err
	}
	lay, err := b.variant.render(in, attempt{drop: map[string]bool{}})
	if err != nil {
		return nil, err
	}
	files, _, err := assemble(in, lay, attempt{}, goVersion)
	if err != nil {
		return nil, err
	}
	if err := writeTree(dir, files); err != nil {
		return nil, errors.Wrap(errors.CompileError, "write unit", err)
	}
	return buildEnv(in, dir, lay.workspace), nil
}

// retry derives the next attempt from diags, reporting false when nothing
// can be changed.
func (a attempt) retry(diags []Diagnostic, lay *layout) (attempt, bool) {
	next := attempt{library: a.library, noCapture: a.noCapture, drop: map[string]bool{}}
	for p := range a.drop {
		next.drop[p] = true
	}
	errs := Errors(diags)
	changed := false
	onlyEntry := len(errs) > 0
	for _, d := range errs {
		switch d.ID {
		case MissingEntryPoint:
		case UnusedImport:
			if p, ok := unusedImportPath(d.Message); ok && lay.injected[p] && !next.drop[p] {
				next.drop[p] = true
				changed = true
			}
		case NoValue:
			onlyEntry = false
			if lay.captured && !next.noCapture {
				next.noCapture = true
				changed = true
			}
		default:
			onlyEntry = false
		}
	}
	if onlyEntry && !a.library && hasID(errs, MissingEntryPoint) {
		next.library = true
		changed = true
	}
	return next, changed
}

func hasID(diags []Diagnostic, id string) bool {
	for _, d := range diags {
		if d.ID == id {
			return true
		}
	}
	return false
}

// build writes one attempt to disk and runs the toolchain. A nil unit with
// nil error means the build produced diagnostics.
func (b *builder) build(ctx context.Context, workDir string, in Input, lay *layout, a attempt, goVersion string) (*Unit, []Diagnostic, error) {
	id := uuid.NewString()
	dir := filepath.Join(workDir, unitPrefix+id)
	keep := false
	defer func() {
		if !keep && !in.Debug {
			os.RemoveAll(dir)
		}
	}()

	files, entries, err := assemble(in, lay, a, goVersion)
	if err != nil {
		return nil, nil, err
	}
	if err := writeTree(dir, files); err != nil {
		return nil, nil, errors.Wrap(errors.CompileError, "write unit", err)
	}

	goBin := b.goBin
	if fw, ok := reference.Framework(in.References); ok && fw.GoBin != "" {
		goBin = fw.GoBin
	}
	goos := in.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	bin := filepath.Join(dir, "bin", "snippet")
	if goos == "windows" {
		bin += ".exe"
	}
	env := buildEnv(in, dir, lay.workspace)

	b.logger.Debug("building unit", b.logger.Args("dir", dir, "compiler", b.variant.name(), "go", goVersion, "library", a.library))

	var out []byte
	if lay.workspace {
		// Workspace mode cannot use -mod=mod; downloading first records
		// the missing checksums in go.work.sum.
		out, err = b.run(ctx, dir, env, goBin, "mod", "download")
	}
	if err == nil {
		args := []string{"build", "-o", bin}
		if in.Debug {
			args = append(args, "-gcflags=all=-N -l")
		} else {
			args = append(args, "-trimpath")
		}
		args = append(args, ".")
		out, err = b.run(ctx, dir, env, goBin, args...)
	}
	if cerr := ctx.Err(); cerr != nil {
		return nil, nil, errors.Wrap(errors.CancelledError, "compile", cerr)
	}

	diags := ParseDiagnostics(string(out))
	if err != nil {
		if len(Errors(diags)) == 0 {
			msg := strings.TrimSpace(string(out))
			if msg == "" {
				msg = err.Error()
			}
			diags = append(diags, Diagnostic{ID: BuildFailed, Severity: SeverityError, Message: logging.Mask(msg)})
		}
		return nil, diags, nil
	}

	keep = true
	return &Unit{
		ID:          id,
		Dir:         dir,
		Binary:      bin,
		GOOS:        goos,
		Library:     a.library,
		Captured:    lay.captured,
		Entries:     entries,
		Diagnostics: diags,
	}, diags, nil
}

// assemble renders every file of one attempt, keyed by slash path.
func assemble(in Input, lay *layout, a attempt, goVersion string) (map[string][]byte, []Entry, error) {
	pkgDir, pkg := packageDir(a)
	files := make(map[string][]byte, len(lay.files)+6)
	for name, data := range lay.files {
		files[name] = data
	}
	for i, r := range reference.Sources(in.References) {
		data := r.Content
		if data == nil {
			var err error
			if data, err = os.ReadFile(r.Path); err != nil {
				return nil, nil, errors.Wrap(errors.CompileError, "read reference "+r.Path, err)
			}
		}
		name := path.Join(pkgDir, fmt.Sprintf("ref_%d_%s", i, sourceFileName(r.Path)))
		files[name] = []byte(rewritePackage(string(data), pkg, ""))
	}

	helpers, err := renderHelpers(pkg)
	if err != nil {
		return nil, nil, err
	}
	files[path.Join(pkgDir, "zz_helpers.go")] = helpers

	userFiles := make(map[string][]byte, len(lay.user))
	for _, name := range lay.user {
		userFiles[name] = lay.files[name]
	}
	entries := findEntries(parseFiles(userFiles), a.library)
	if !a.library && (len(entries) == 0 || entries[0].Name != MainEntry) {
		// Reference the implicit entry point even when the source lacks it;
		// the resulting "undefined" diagnostic triggers library mode.
		entries = append([]Entry{{Name: MainEntry, Func: entrySymbol}}, entries...)
	}
	qualifier := ""
	if a.library {
		qualifier = pkg
	}
	shim, err := renderEntry(entries, a.library, qualifier, modulePath+"/"+libraryDir)
	if err != nil {
		return nil, nil, err
	}
	files["zz_entry.go"] = shim

	if files["go.mod"], err = renderGoMod(in.References, goVersion, lay.workspace); err != nil {
		return nil, nil, errors.Wrap(errors.CompileError, "render go.mod", err)
	}
	if sum := renderGoSum(in.References); len(sum) > 0 {
		files["go.sum"] = sum
	}
	if lay.workspace {
		if files["go.work"], err = renderGoWork(in.References, goVersion); err != nil {
			return nil, nil, errors.Wrap(errors.CompileError, "render go.work", err)
		}
	}
	return files, entries, nil
}

// languageVersion picks the go directive: the request's, else the language
// of the selected SDK, else the oldest supported release.
func languageVersion(in Input) (string, error) {
	if v := strings.TrimSpace(in.LangVersion); v != "" {
		v = strings.TrimPrefix(v, "go")
		if !version.IsValid("go" + v) {
			return "", errors.Newf(errors.InputError, "invalid language version %q", in.LangVersion)
		}
		return v, nil
	}
	if fw, ok := reference.Framework(in.References); ok && version.IsValid(fw.GoVersion) {
		return strings.TrimPrefix(version.Lang(fw.GoVersion), "go"), nil
	}
	return strings.TrimPrefix(reference.MinimumGoVersion, "go"), nil
}

func renderGoMod(refs []reference.Reference, goVersion string, workspace bool) ([]byte, error) {
	f := &modfile.File{Syntax: new(modfile.FileSyntax)}
	if err := f.AddModuleStmt(modulePath); err != nil {
		return nil, err
	}
	if err := f.AddGoStmt(goVersion); err != nil {
		return nil, err
	}
	for _, m := range reference.Modules(refs) {
		if m.Version == "" {
			continue
		}
		f.AddNewRequire(m.Path, m.Version, !m.Direct)
	}
	if !workspace {
		for _, l := range reference.LocalModules(refs) {
			f.AddNewRequire(l.Path, localVersion, false)
			if err := f.AddReplace(l.Path, "", l.Dir, ""); err != nil {
				return nil, err
			}
		}
	}
	f.Cleanup()
	return modfile.Format(f.Syntax), nil
}

func renderGoWork(refs []reference.Reference, goVersion string) ([]byte, error) {
	w := &modfile.WorkFile{Syntax: new(modfile.FileSyntax)}
	if err := w.AddGoStmt(goVersion); err != nil {
		return nil, err
	}
	if err := w.AddUse(".", modulePath); err != nil {
		return nil, err
	}
	for _, l := range reference.LocalModules(refs) {
		if err := w.AddUse(l.Dir, l.Path); err != nil {
			return nil, err
		}
	}
	w.Cleanup()
	return modfile.Format(w.Syntax), nil
}

func renderGoSum(refs []reference.Reference) []byte {
	var lines []string
	for _, m := range reference.Modules(refs) {
		if m.Sum != "" {
			lines = append(lines, fmt.Sprintf("%s %s %s", m.Path, m.Version, m.Sum))
		}
		if m.GoModSum != "" {
			lines = append(lines, fmt.Sprintf("%s %s/go.mod %s", m.Path, m.Version, m.GoModSum))
		}
	}
	if len(lines) == 0 {
		return nil
	}
	sort.Strings(lines)
	return []byte(strings.Join(lines, "\n") + "\n")
}

func buildEnv(in Input, dir string, workspace bool) []string {
	env := append(os.Environ(), "GO111MODULE=on", "GOTOOLCHAIN=local")
	if workspace {
		env = append(env, "GOWORK="+filepath.Join(dir, "go.work"), "GOFLAGS=")
	} else {
		env = append(env, "GOWORK=off", "GOFLAGS=-mod=mod")
	}
	if in.GOOS != "" || in.GOARCH != "" {
		goos, goarch := in.GOOS, in.GOARCH
		if goos == "" {
			goos = runtime.GOOS
		}
		if goarch == "" {
			goarch = runtime.GOARCH
		}
		env = append(env, "GOOS="+goos, "GOARCH="+goarch, "CGO_ENABLED=0")
	}
	return env
}

func writeTree(root string, files map[string][]byte) error {
	for name, data := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(p, data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func runCommand(ctx context.Context, dir string, env []string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Env = env
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.Bytes(), err
}

func filepathToSlash(name string) string {
	return strings.ReplaceAll(name, `\`, "/")
}

// sanitizeFileName keeps file names portable and out of _test.go.
func sanitizeFileName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			return r
		}
		return '_'
	}, name)
	if stem, ok := strings.CutSuffix(name, "_test.go"); ok {
		name = stem + "_snippet.go"
	}
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
		name = "x" + name
	}
	return name
}

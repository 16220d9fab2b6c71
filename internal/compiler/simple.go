// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package compiler

import (
	"path"

	"goexec/cli/internal/errors"
)

// attempt carries what earlier failed builds taught the builder.
type attempt struct {
	library   bool
	noCapture bool
	// drop lists import paths removed after "imported and not used".
	drop map[string]bool
}

// layout is the rendered source tree of a unit, excluding generated module
// files, helpers and the dispatcher.
type layout struct {
	// files maps slash-separated paths relative to the unit root.
	files map[string][]byte
	// user lists the files scanned for entry points.
	user []string
	// workspace selects go.work instead of replace directives.
	workspace bool
	captured  bool
	// injected lists the import paths the variant added or merged and may
	// drop again when they turn out unused.
	injected map[string]bool
}

func (l *layout) inject(specs []importSpec) {
	if l.injected == nil {
		l.injected = map[string]bool{}
	}
	for _, s := range specs {
		l.injected[s.Path] = true
	}
}

// variant renders sources for one compiler kind.
type variant interface {
	name() string
	render(in Input, a attempt) (*layout, error)
}

// libraryDir holds user code when a unit is built in library mode.
const libraryDir = "snippetlib"

// packageDir returns the directory and package name user code lives in.
func packageDir(a attempt) (dir, pkg string) {
	if a.library {
		return libraryDir, libraryDir
	}
	return "", "main"
}

// simpleVariant compiles a single complete Go file. The package clause is
// optional; global usings are injected on the package line.
type simpleVariant struct{}

func (simpleVariant) name() string { return "simple" }

func (simpleVariant) render(in Input, a attempt) (*layout, error) {
	if len(in.Replays) > 0 {
		return nil, errors.New(errors.InputError, "the simple compiler does not support sessions; use the advanced compiler")
	}
	dir, pkg := packageDir(a)
	text, specs := withUsings(renameMain(in.Source.Text, a.library), pkg, in, a)

	name := path.Join(dir, sourceFileName(in.Source.Name))
	out := &layout{
		files: map[string][]byte{name: []byte(text)},
		user:  []string{name},
	}
	out.inject(specs)
	return out, nil
}

// renameMain turns func main into the implicit entry point of an
// application unit.
func renameMain(src string, library bool) string {
	if library {
		return src
	}
	toks := lex(src)
	var edits []edit
	for _, i := range mainDecls(toks) {
		edits = append(edits, edit{off: toks[i].off, end: toks[i].end, text: entrySymbol})
	}
	return applyEdits(src, edits)
}

// withUsings rewrites the package clause and injects the usings the file
// refers to but does not import itself.
func withUsings(src, pkg string, in Input, a attempt) (string, []importSpec) {
	file := src
	if packageName(lex(src)) < 0 {
		file = "package p; " + src
	}
	user := parseImports(file)
	specs := usingSpecs(in.Usings, selectorRoots(src), user, a.drop)
	return rewritePackage(src, pkg, importDecl(specs)), specs
}

// sourceFileName returns a build-safe file name for a display name.
func sourceFileName(name string) string {
	base := path.Base(filepathToSlash(name))
	if base == "." || base == "/" || base == "" {
		base = "main.go"
	}
	if path.Ext(base) != ".go" {
		base += ".go"
	}
	return sanitizeFileName(base)
}

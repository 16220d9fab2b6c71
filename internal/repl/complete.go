// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package repl

import (
	"context"
	"go/ast"
	"go/types"
	"os"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/tools/go/packages"

	"goexec/cli/internal/compiler"
	"goexec/cli/internal/errors"
)

// Trigger is the member-access character that requests completion.
const Trigger = "."

// markerName is selected on the completed expression so the type checker
// records its type even though the selector itself does not resolve.
const markerName = "goexecMarker"

// WantsCompletion reports whether line asks for completion.
func WantsCompletion(line string) bool {
	return strings.HasSuffix(strings.TrimRight(line, " \t"), Trigger)
}

// Complete lists the members reachable from the expression before the
// trailing dot of text, type-checked against the accepted log. It never
// changes the session.
func (s *Session) Complete(ctx context.Context, text string) ([]string, error) {
	stager, ok := s.cfg.Compiler.(compiler.Stager)
	if !ok {
		return nil, errors.New(errors.InputError, "completion is not supported by this compiler")
	}
	prefix, expr := trailingExpr(strings.TrimSuffix(strings.TrimRight(text, " \t"), Trigger))
	if expr == "" {
		return nil, nil
	}
	dir, err := os.MkdirTemp("", "goexec-complete-")
	if err != nil {
		return nil, errors.Wrap(errors.ConfigError, "completion dir", err)
	}
	defer os.RemoveAll(dir)

	marked := compiler.Source{Name: "complete.go", Text: prefix + "\n_ = " + expr + "." + markerName + "\n"}
	in := s.input(marked, s.refs, s.usings)
	in.Capture = false
	in.GOOS, in.GOARCH = "", ""
	env, err := stager.Stage(in, dir)
	if err != nil {
		return nil, err
	}

	cfg := &packages.Config{
		Context: ctx,
		Mode:    packages.NeedName | packages.NeedTypes | packages.NeedSyntax | packages.NeedTypesInfo,
		Dir:     dir,
		Env:     env,
	}
	pkgs, err := packages.Load(cfg, ".")
	if err != nil {
		return nil, errors.Wrap(errors.CompileError, "load completion package", err)
	}
	for _, pkg := range pkgs {
		if pkg.TypesInfo == nil {
			continue
		}
		if x := findMarked(pkg.Syntax); x != nil {
			return members(pkg.Types, pkg.TypesInfo, x), nil
		}
	}
	return nil, nil
}

// trailingExpr splits text into leading statements and the operand that
// ends it: identifiers, selectors, calls, index expressions and composite
// literals.
func trailingExpr(text string) (prefix, expr string) {
	i := len(text)
	depth := 0
	for i > 0 {
		c := rune(text[i-1])
		switch {
		case c == ')' || c == ']' || c == '}':
			depth++
		case c == '(' || c == '[' || c == '{':
			if depth == 0 {
				return text[:i], strings.TrimSpace(text[i:])
			}
			depth--
		case depth > 0:
		case c == '.' || c == '_' || unicode.IsLetter(c) || unicode.IsDigit(c) || c >= 0x80:
		default:
			return text[:i], strings.TrimSpace(text[i:])
		}
		i--
	}
	return "", strings.TrimSpace(text)
}

func findMarked(files []*ast.File) ast.Expr {
	var found ast.Expr
	for _, f := range files {
		ast.Inspect(f, func(n ast.Node) bool {
			if found != nil {
				return false
			}
			if sel, ok := n.(*ast.SelectorExpr); ok && sel.Sel.Name == markerName {
				found = sel.X
				return false
			}
			return true
		})
	}
	return found
}

// members lists package members for a package name and fields plus
// methods for a value. Unexported names are listed only when they belong to
// the snippet's own package.
func members(self *types.Package, info *types.Info, x ast.Expr) []string {
	seen := map[string]bool{}
	var out []string
	add := func(obj types.Object) {
		if obj == nil || seen[obj.Name()] || obj.Name() == "_" {
			return
		}
		if !obj.Exported() && obj.Pkg() != self {
			return
		}
		seen[obj.Name()] = true
		out = append(out, obj.Name())
	}

	if id, ok := x.(*ast.Ident); ok {
		if pn, ok := info.Uses[id].(*types.PkgName); ok {
			scope := pn.Imported().Scope()
			for _, name := range scope.Names() {
				add(scope.Lookup(name))
			}
			sort.Strings(out)
			return out
		}
	}

	tv, ok := info.Types[x]
	if !ok || tv.Type == nil {
		return nil
	}
	t := tv.Type
	for _, set := range []*types.MethodSet{types.NewMethodSet(t), types.NewMethodSet(types.NewPointer(t))} {
		for i := 0; i < set.Len(); i++ {
			add(set.At(i).Obj())
		}
	}
	addFields(t, add, map[types.Type]bool{})
	sort.Strings(out)
	return out
}

func addFields(t types.Type, add func(types.Object), visited map[types.Type]bool) {
	if p, ok := t.Underlying().(*types.Pointer); ok {
		t = p.Elem()
	}
	if visited[t] {
		return
	}
	visited[t] = true
	st, ok := t.Underlying().(*types.Struct)
	if !ok {
		return
	}
	for i := 0; i < st.NumFields(); i++ {
		f := st.Field(i)
		add(f)
		if f.Embedded() {
			addFields(f.Type(), add, visited)
		}
	}
}

// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package compiler

import (
	"go/ast"
	"go/parser"
	"go/token"
	"sort"
	"strings"
)

// MainEntry is the name of the implicit entry point.
const MainEntry = "main"

// entrySymbol is what the implicit entry point is called inside the unit.
const entrySymbol = "entryMain"

// Entry is a dispatchable function or method.
type Entry struct {
	// Name is "main", a function name or "Type.Method".
	Name string
	// Receiver is the method's named type; empty for functions.
	Receiver string
	Func     string
	// Context is set for entries taking a context.Context (cancelled on SIGINT).
	Context bool
	// Args is set for entries taking the program arguments as []string.
	Args bool
	// Error is set for entries returning error.
	Error bool
}

// findEntries lists the supported entry points declared in files. In library
// mode only exported functions and methods of exported types qualify.
func findEntries(files []*ast.File, library bool) []Entry {
	types := map[string]bool{}
	for _, f := range files {
		for _, decl := range f.Decls {
			gd, ok := decl.(*ast.GenDecl)
			if !ok || gd.Tok != token.TYPE {
				continue
			}
			for _, spec := range gd.Specs {
				ts := spec.(*ast.TypeSpec)
				if ts.TypeParams == nil && !ts.Assign.IsValid() {
					types[ts.Name.Name] = true
				}
			}
		}
	}

	var out []Entry
	for _, f := range files {
		for _, decl := range f.Decls {
			fd, ok := decl.(*ast.FuncDecl)
			if !ok || fd.Type.TypeParams != nil {
				continue
			}
			e, ok := signature(fd.Type)
			if !ok {
				continue
			}
			name := fd.Name.Name
			if fd.Recv == nil {
				switch {
				case name == entrySymbol:
					if library {
						continue
					}
					e.Name, e.Func = MainEntry, entrySymbol
				case name == "init" || name == "_" || name == "main" || strings.HasPrefix(name, "goexec"):
					continue
				case library && !ast.IsExported(name):
					continue
				default:
					e.Name, e.Func = name, name
				}
				out = append(out, e)
				continue
			}
			recv := receiverType(fd.Recv)
			if recv == "" || !types[recv] {
				continue
			}
			if library && (!ast.IsExported(recv) || !ast.IsExported(name)) {
				continue
			}
			e.Name, e.Receiver, e.Func = recv+"."+name, recv, name
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name == MainEntry {
			return true
		}
		if out[j].Name == MainEntry {
			return false
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// signature accepts (), ([]string), (context.Context) and
// (context.Context, []string), returning nothing or error.
func signature(ft *ast.FuncType) (Entry, bool) {
	var params []ast.Expr
	if ft.Params != nil {
		for _, field := range ft.Params.List {
			n := max(1, len(field.Names))
			for range n {
				params = append(params, field.Type)
			}
		}
	}
	var e Entry
	switch len(params) {
	case 0:
	case 1:
		switch {
		case isContext(params[0]):
			e.Context = true
		case isStringSlice(params[0]):
			e.Args = true
		default:
			return e, false
		}
	case 2:
		if !isContext(params[0]) || !isStringSlice(params[1]) {
			return e, false
		}
		e.Context, e.Args = true, true
	default:
		return e, false
	}

	if ft.Results != nil && len(ft.Results.List) > 0 {
		if len(ft.Results.List) != 1 || len(ft.Results.List[0].Names) > 1 {
			return e, false
		}
		id, ok := ft.Results.List[0].Type.(*ast.Ident)
		if !ok || id.Name != "error" {
			return e, false
		}
		e.Error = true
	}
	return e, true
}

func isContext(x ast.Expr) bool {
	sel, ok := x.(*ast.SelectorExpr)
	if !ok {
		return false
	}
	pkg, ok := sel.X.(*ast.Ident)
	return ok && pkg.Name == "context" && sel.Sel.Name == "Context"
}

func isStringSlice(x ast.Expr) bool {
	arr, ok := x.(*ast.ArrayType)
	if !ok || arr.Len != nil {
		return false
	}
	id, ok := arr.Elt.(*ast.Ident)
	return ok && id.Name == "string"
}

func receiverType(recv *ast.FieldList) string {
	if recv == nil || len(recv.List) != 1 {
		return ""
	}
	t := recv.List[0].Type
	if star, ok := t.(*ast.StarExpr); ok {
		t = star.X
	}
	if id, ok := t.(*ast.Ident); ok {
		return id.Name
	}
	return ""
}

// parseFiles parses the given sources leniently; syntax errors are left for
// the toolchain to report with proper positions.
func parseFiles(files map[string][]byte) []*ast.File {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	fset := token.NewFileSet()
	var out []*ast.File
	for _, name := range names {
		f, _ := parser.ParseFile(fset, name, files[name], parser.SkipObjectResolution)
		if f != nil {
			out = append(out, f)
		}
	}
	return out
}

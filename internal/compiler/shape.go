// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package compiler

import (
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"sort"
	"strconv"
	"strings"

	"goexec/cli/internal/model"
)

// lexeme is a scanned token with its byte range.
type lexeme struct {
	tok token.Token
	lit string
	off int
	end int
}

// auto reports whether l is a semicolon inserted at a newline or EOF.
func (l lexeme) auto() bool { return l.tok == token.SEMICOLON && l.lit != ";" }

// lex scans src, dropping comments. Scan errors are ignored: the toolchain
// reports them later with the user's positions.
func lex(src string) []lexeme {
	fset := token.NewFileSet()
	file := fset.AddFile("", fset.Base(), len(src))
	var s scanner.Scanner
	s.Init(file, []byte(src), func(token.Position, string) {}, 0)
	var out []lexeme
	for {
		pos, tok, lit := s.Scan()
		if tok == token.EOF {
			return out
		}
		l := lexeme{tok: tok, lit: lit, off: file.Offset(pos)}
		switch {
		case tok == token.SEMICOLON && lit != ";":
			l.end = l.off
		case lit != "":
			l.end = l.off + len(lit)
		default:
			l.end = l.off + len(tok.String())
		}
		out = append(out, l)
	}
}

type edit struct {
	off, end int
	text     string
}

// applyEdits applies non-overlapping edits to src.
func applyEdits(src string, edits []edit) string {
	sort.Slice(edits, func(i, j int) bool { return edits[i].off > edits[j].off })
	for _, e := range edits {
		src = src[:e.off] + e.text + src[e.end:]
	}
	return src
}

// packageName returns the index of the package name token, or -1.
func packageName(toks []lexeme) int {
	if len(toks) >= 2 && toks[0].tok == token.PACKAGE && toks[1].tok == token.IDENT {
		return 1
	}
	return -1
}

// mainDecls returns the indexes of the name token of top-level "func main(".
func mainDecls(toks []lexeme) []int {
	var out []int
	depth := 0
	for i, t := range toks {
		switch t.tok {
		case token.LPAREN, token.LBRACK, token.LBRACE:
			depth++
		case token.RPAREN, token.RBRACK, token.RBRACE:
			depth--
		case token.FUNC:
			if depth == 0 && i+2 < len(toks) && toks[i+1].tok == token.IDENT && toks[i+1].lit == "main" && toks[i+2].tok == token.LPAREN {
				out = append(out, i+1)
			}
		}
	}
	return out
}

// selectorRoots collects identifiers used as the left side of a selector,
// i.e. every name that might refer to an imported package.
func selectorRoots(srcs ...string) map[string]bool {
	roots := map[string]bool{}
	for _, src := range srcs {
		toks := lex(src)
		for i := 0; i+1 < len(toks); i++ {
			if toks[i].tok == token.IDENT && toks[i+1].tok == token.PERIOD {
				if i > 0 && toks[i-1].tok == token.PERIOD {
					continue
				}
				roots[toks[i].lit] = true
			}
		}
	}
	return roots
}

// importSpec is one entry of an import block.
type importSpec struct {
	Name string
	Path string
}

func (s importSpec) String() string {
	q := strconv.Quote(s.Path)
	if s.Name != "" {
		return s.Name + " " + q
	}
	return q
}

// binding is the file-scope name the import introduces.
func (s importSpec) binding() string {
	if s.Name != "" {
		if s.Name == "." || s.Name == "_" {
			return ""
		}
		return s.Name
	}
	return model.PackageName(s.Path)
}

func specOf(u model.Using) importSpec {
	switch {
	case u.Dot:
		return importSpec{Name: ".", Path: u.Path}
	case u.Blank:
		return importSpec{Name: "_", Path: u.Path}
	case u.Alias != "":
		return importSpec{Name: u.Alias, Path: u.Path}
	}
	if name := model.PackageName(u.Path); name != lastElem(u.Path) {
		return importSpec{Name: name, Path: u.Path}
	}
	return importSpec{Path: u.Path}
}

func lastElem(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// usingSpecs selects the global usings worth injecting next to the user's
// own imports: dot and blank imports always, named imports only when the
// name is used as a selector and not already bound by the user.
func usingSpecs(usings []model.Using, roots map[string]bool, user []importSpec, drop map[string]bool) []importSpec {
	takenPath := map[string]bool{}
	takenName := map[string]bool{}
	for _, s := range user {
		takenPath[s.Path] = true
		if b := s.binding(); b != "" {
			takenName[b] = true
		}
	}
	var out []importSpec
	for _, u := range usings {
		if u.Remove || drop[u.Path] || takenPath[u.Path] {
			continue
		}
		s := specOf(u)
		if b := s.binding(); b != "" {
			if !roots[b] || takenName[b] {
				continue
			}
			takenName[b] = true
		}
		takenPath[u.Path] = true
		out = append(out, s)
	}
	return out
}

// parseImports extracts the import specs of a file prefix. src must start
// with a package clause.
func parseImports(src string) []importSpec {
	f, err := parser.ParseFile(token.NewFileSet(), "", src, parser.ImportsOnly)
	if f == nil && err != nil {
		return nil
	}
	return specsOf(f)
}

func specsOf(f *ast.File) []importSpec {
	var out []importSpec
	for _, is := range f.Imports {
		path, err := strconv.Unquote(is.Path.Value)
		if err != nil {
			continue
		}
		s := importSpec{Path: path}
		if is.Name != nil {
			s.Name = is.Name.Name
		}
		out = append(out, s)
	}
	return out
}

// rewritePackage renames the package clause of src to pkg, inserting one
// on the first line when the source has none. extra is appended on the
// same line, keeping line numbers stable.
func rewritePackage(src, pkg, extra string) string {
	toks := lex(src)
	if i := packageName(toks); i >= 0 {
		return applyEdits(src, []edit{{off: toks[i].off, end: toks[i].end, text: pkg + extra}})
	}
	return "package " + pkg + extra + "; " + src
}

func importDecl(specs []importSpec) string {
	if len(specs) == 0 {
		return ""
	}
	parts := make([]string, len(specs))
	for i, s := range specs {
		parts[i] = s.String()
	}
	return "; import (" + strings.Join(parts, "; ") + ")"
}

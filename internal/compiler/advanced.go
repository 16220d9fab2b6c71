// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package compiler

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"path"
	"strings"
)

// advancedVariant accepts loose top-level code. Sources are split into
// depth-0 chunks: imports are merged into one block, type and function
// declarations stay at package level, everything else becomes the body of
// the implicit entry point in source order.
type advancedVariant struct{}

func (advancedVariant) name() string { return "advanced" }

type chunkKind int

const (
	chunkStmt chunkKind = iota
	chunkPackage
	chunkImport
	chunkDecl
	chunkMain
)

type chunk struct {
	kind chunkKind
	text string
	line int
	col  int
}

// splitChunks cuts src at depth-0 statement terminators.
func splitChunks(src string) []chunk {
	toks := lex(src)
	lines := lineStarts(src)
	var out []chunk
	start, depth := -1, 0
	flush := func(end int) {
		if start < 0 {
			return
		}
		part := toks[start:end]
		c := chunk{kind: classifyChunk(part)}
		from, to := part[0].off, part[len(part)-1].end
		if c.kind == chunkMain {
			// Rename the declared name, not the whole chunk.
			name := part[1]
			c.text = src[from:name.off] + userMainSymbol + src[name.end:to]
		} else {
			c.text = src[from:to]
		}
		c.line, c.col = position(lines, from)
		out = append(out, c)
		start = -1
	}
	// header is set between for/if/switch and the opening brace of their
	// block, where semicolons separate clauses instead of statements.
	header := false
	for i, t := range toks {
		switch t.tok {
		case token.FOR, token.IF, token.SWITCH:
			if depth == 0 {
				header = true
			}
		case token.LBRACE:
			if depth == 0 {
				header = false
			}
			depth++
		case token.LPAREN, token.LBRACK:
			depth++
		case token.RPAREN, token.RBRACK, token.RBRACE:
			depth--
		case token.SEMICOLON:
			if depth <= 0 && !header {
				flush(i)
				depth = 0
				continue
			}
		}
		if start < 0 {
			start = i
		}
	}
	flush(len(toks))
	return out
}

// userMainSymbol is what a user-declared func main is renamed to; the
// implicit entry point calls it where it was declared.
const userMainSymbol = "goexecMain"

func classifyChunk(toks []lexeme) chunkKind {
	switch toks[0].tok {
	case token.PACKAGE:
		return chunkPackage
	case token.IMPORT:
		return chunkImport
	case token.TYPE:
		return chunkDecl
	case token.FUNC:
		if len(toks) > 2 && toks[1].tok == token.IDENT {
			if toks[1].lit == "main" && toks[2].tok == token.LPAREN {
				return chunkMain
			}
			return chunkDecl
		}
		if len(toks) > 1 && toks[1].tok == token.LPAREN {
			// func (recv) Name( is a method; func(...) ... { is a literal.
			depth := 0
			for j := 1; j < len(toks); j++ {
				switch toks[j].tok {
				case token.LPAREN:
					depth++
				case token.RPAREN:
					depth--
				}
				if depth == 0 {
					if j+2 < len(toks) && toks[j+1].tok == token.IDENT && toks[j+2].tok == token.LPAREN {
						return chunkDecl
					}
					return chunkStmt
				}
			}
		}
	}
	return chunkStmt
}

func lineStarts(src string) []int {
	starts := []int{0}
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

func position(starts []int, off int) (line, col int) {
	lo, hi := 0, len(starts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if starts[mid] <= off {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo + 1, off - starts[lo] + 1
}

// declaredVars lists the variables a statement declares at its own level.
func declaredVars(stmt string) []string {
	f, err := parser.ParseFile(token.NewFileSet(), "", "package p; func _() {\n"+stmt+"\n}", parser.SkipObjectResolution)
	if err != nil || len(f.Decls) == 0 {
		return nil
	}
	fd, ok := f.Decls[0].(*ast.FuncDecl)
	if !ok || fd.Body == nil {
		return nil
	}
	var names []string
	add := func(id *ast.Ident) {
		if id != nil && id.Name != "_" {
			names = append(names, id.Name)
		}
	}
	for _, s := range fd.Body.List {
		switch s := s.(type) {
		case *ast.AssignStmt:
			if s.Tok != token.DEFINE {
				continue
			}
			for _, lhs := range s.Lhs {
				if id, ok := lhs.(*ast.Ident); ok {
					add(id)
				}
			}
		case *ast.DeclStmt:
			gd, ok := s.Decl.(*ast.GenDecl)
			if !ok || gd.Tok != token.VAR {
				continue
			}
			for _, spec := range gd.Specs {
				for _, id := range spec.(*ast.ValueSpec).Names {
					add(id)
				}
			}
		}
	}
	return names
}

// capturable reports whether stmt is an expression whose value should be
// printed. Print calls already wrote their output.
func capturable(stmt string) bool {
	x, err := parser.ParseExpr(stmt)
	if err != nil {
		return false
	}
	if call, ok := x.(*ast.CallExpr); ok {
		if sel, ok := call.Fun.(*ast.SelectorExpr); ok {
			if pkg, ok := sel.X.(*ast.Ident); ok && (pkg.Name == "fmt" || pkg.Name == "log") {
				return false
			}
		}
		if id, ok := call.Fun.(*ast.Ident); ok && (id.Name == "dump" || id.Name == "print" || id.Name == "println" || id.Name == "panic") {
			return false
		}
	}
	return true
}

// trailingCapture returns the index of the last statement chunk when it is
// a capturable expression, -1 otherwise.
func trailingCapture(chunks []chunk) int {
	for i := len(chunks) - 1; i >= 0; i-- {
		if chunks[i].kind == chunkStmt {
			if capturable(chunks[i].text) {
				return i
			}
			return -1
		}
	}
	return -1
}

type renderedSource struct {
	src    Source
	chunks []chunk
}

func (advancedVariant) render(in Input, a attempt) (*layout, error) {
	sources := append(append([]Source(nil), in.Replays...), in.Source)
	rendered := make([]renderedSource, len(sources))
	var texts []string
	for i, s := range sources {
		rendered[i] = renderedSource{src: s, chunks: splitChunks(s.Text)}
		texts = append(texts, s.Text)
	}

	// The last statement of the live source is the capture candidate;
	// replayed sources keep the capture they ran with.
	captureAt := make([]int, len(rendered))
	for ri, rs := range rendered {
		captureAt[ri] = -1
		want := rs.src.Captured
		if ri == len(rendered)-1 {
			want = in.Capture && !a.noCapture
		}
		if want {
			captureAt[ri] = trailingCapture(rs.chunks)
		}
	}

	var user []importSpec
	seen := map[string]bool{}
	var decls, body strings.Builder
	hasBody := false
	for ri, rs := range rendered {
		name := displayName(rs.src.Name)
		if rs.src.Muted {
			body.WriteString("\tgoexecMute()\n")
		}
		for ci, c := range rs.chunks {
			directive := fmt.Sprintf("//line %s:%d:%d\n", name, c.line, c.col)
			switch c.kind {
			case chunkPackage:
			case chunkImport:
				for _, s := range parseImports("package p; " + c.text) {
					key := s.Name + " " + s.Path
					if seen[key] || a.drop[s.Path] {
						continue
					}
					seen[key] = true
					user = append(user, s)
				}
			case chunkDecl:
				decls.WriteString(directive)
				decls.WriteString(c.text)
				decls.WriteString("\n\n")
			case chunkMain:
				decls.WriteString(directive)
				decls.WriteString(c.text)
				decls.WriteString("\n\n")
				body.WriteString("\t" + userMainSymbol + "()\n")
				hasBody = true
			case chunkStmt:
				text := c.text
				col := c.col
				if ci == captureAt[ri] {
					text = "dump(" + text + ")"
					col = max(1, col-len("dump("))
				}
				body.WriteString(fmt.Sprintf("//line %s:%d:%d\n", name, c.line, col))
				body.WriteString(text)
				for _, v := range declaredVars(c.text) {
					body.WriteString("; _ = " + v)
				}
				body.WriteString("\n")
				hasBody = true
			}
		}
		if rs.src.Muted {
			body.WriteString("\tgoexecUnmute()\n")
		}
	}

	dir, pkg := packageDir(a)
	specs := append(append([]importSpec(nil), user...), usingSpecs(in.Usings, selectorRoots(texts...), user, a.drop)...)

	var b strings.Builder
	fmt.Fprintf(&b, "package %s\n\n", pkg)
	if len(specs) > 0 {
		b.WriteString("import (\n")
		for _, s := range specs {
			b.WriteString("\t" + s.String() + "\n")
		}
		b.WriteString(")\n\n")
	}
	b.WriteString(decls.String())
	if (hasBody || in.Interactive) && !a.library {
		b.WriteString("func " + entrySymbol + "() {\n")
		b.WriteString(body.String())
		b.WriteString("}\n")
	}

	name := path.Join(dir, "snippet.go")
	out := &layout{
		files:    map[string][]byte{name: []byte(b.String())},
		user:     []string{name},
		captured: captureAt[len(captureAt)-1] >= 0,
	}
	out.inject(specs)
	return out, nil
}

// displayName is the file name diagnostics report for a source.
func displayName(name string) string {
	name = strings.TrimSpace(filepathToSlash(name))
	if name == "" {
		return "snippet.go"
	}
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == ':' {
			return '_'
		}
		return r
	}, path.Base(name))
}

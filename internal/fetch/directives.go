// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package fetch

import (
	"go/scanner"
	"go/token"
	"strings"
)

var (
	referencePrefixes = []string{"//r:", "// r:", "//reference:", "// reference:"}
	usingPrefixes     = []string{"//u:", "// u:", "//using:", "// using:"}
)

// ScanDirectives reads reference and using directives from the leading
// block of line comments. Scanning stops at the first line that is not a
// line comment.
func ScanDirectives(text string) (refs, usings []string) {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if !strings.HasPrefix(line, "//") {
			break
		}
		if v, ok := cutAny(line, referencePrefixes); ok {
			refs = append(refs, v)
		} else if v, ok := cutAny(line, usingPrefixes); ok {
			usings = append(usings, v)
		}
	}
	return refs, usings
}

func cutAny(line string, prefixes []string) (string, bool) {
	for _, p := range prefixes {
		if v, ok := strings.CutPrefix(line, p); ok {
			v = strings.TrimSpace(v)
			return v, v != ""
		}
	}
	return "", false
}

// FixupInline turns a trailing `expr.Dump()` call into `dump(expr)` and
// makes sure the text ends with a statement terminator.
func FixupInline(text string) string {
	trimmed := strings.TrimRight(text, " \t\r\n;")
	if trimmed == "" {
		return text
	}
	start := lastStatementStart(trimmed)
	stmt := strings.TrimSpace(trimmed[start:])
	if expr, ok := strings.CutSuffix(stmt, ".Dump()"); ok && expr != "" {
		return trimmed[:start] + "dump(" + expr + ")\n"
	}
	return trimmed + "\n"
}

// lastStatementStart returns the offset of the first token of the last
// top-level statement in src. Comments before it are not part of it.
func lastStatementStart(src string) int {
	fset := token.NewFileSet()
	file := fset.AddFile("", fset.Base(), len(src))
	var s scanner.Scanner
	s.Init(file, []byte(src), nil, 0)
	depth, start, needStart := 0, 0, true
	for {
		pos, tok, _ := s.Scan()
		if tok == token.EOF {
			return start
		}
		off := file.Offset(pos)
		switch tok {
		case token.SEMICOLON:
			if depth == 0 && off < len(src) {
				needStart = true
			}
			continue
		case token.LPAREN, token.LBRACK, token.LBRACE:
			depth++
		case token.RPAREN, token.RBRACK, token.RBRACE:
			depth--
		}
		if needStart {
			start, needStart = off, false
		}
	}
}

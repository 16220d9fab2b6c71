// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package repl

import (
	"context"
	"fmt"
	"strings"

	"github.com/pterm/pterm"

	"goexec/cli/internal/logging"
)

var helpRows = [][]string{
	{"Command", "Effect"},
	{"#r <reference>", "add a reference (mod:, folder:, project:, framework:, path or URL) and rebuild"},
	{"#u <import>", "add a global import, e.g. #u strings, #u . math, #u -os"},
	{"#load <source>", "evaluate a file, URL or code:<text> in this session"},
	{"#refs", "list references in effect"},
	{"#usings", "list the global imports"},
	{"#source", "print the accepted snippets"},
	{"#reset", "forget every accepted snippet"},
	{"#help", "show this help"},
	{"#exit, #quit, #q", "leave the session"},
	{"<expr>.", "list members of <expr>"},
}

// meta runs a meta-command and reports whether the loop should exit.
func (r *REPL) meta(ctx context.Context, line string) bool {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch strings.ToLower(name) {
	case "#exit", "#quit", "#q":
		return true
	case "#help", "#?":
		_ = pterm.DefaultTable.WithHasHeader().WithWriter(r.out).WithData(helpRows).Render()
	case "#r", "#reference":
		evalCtx, stop := r.interrupt(ctx)
		defer stop()
		if err := r.session.AddReference(evalCtx, arg); err != nil {
			r.report(err)
			return false
		}
		pterm.Fprintln(r.out, pterm.Green("referenced "+arg))
		r.reader.AppendHistory(line)
	case "#u", "#using":
		evalCtx, stop := r.interrupt(ctx)
		defer stop()
		if err := r.session.AddUsing(evalCtx, arg); err != nil {
			r.report(err)
			return false
		}
		r.reader.AppendHistory(line)
	case "#load":
		if arg == "" {
			pterm.Fprintln(r.out, "usage: #load <source>")
			return false
		}
		evalCtx, stop := r.interrupt(ctx)
		defer stop()
		if err := r.session.Load(evalCtx, arg); err != nil {
			r.report(err)
			return false
		}
		r.reader.AppendHistory(line)
	case "#refs":
		r.list(r.session.References())
	case "#usings":
		r.list(r.session.Usings())
	case "#source":
		for i, src := range r.session.Source() {
			pterm.Fprintln(r.out, pterm.Gray(fmt.Sprintf("// in%d", i+1)))
			pterm.Fprintln(r.out, logging.Mask(src))
		}
	case "#reset":
		r.session.Reset()
		pterm.Fprintln(r.out, "session reset.")
	default:
		pterm.Fprintln(r.out, "unknown command. Type #help for help.")
	}
	return false
}

func (r *REPL) list(items []string) {
	if len(items) == 0 {
		pterm.Fprintln(r.out, pterm.Gray("(none)"))
		return
	}
	for _, it := range items {
		pterm.Fprintln(r.out, "  "+it)
	}
}

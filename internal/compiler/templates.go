// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package compiler

import (
	"bytes"
	"strings"
	"text/template"
)

// EntryEnv names the environment variable that selects the entry to run.
const EntryEnv = "GOEXEC_ENTRY"

// Exit codes of the generated dispatcher.
const (
	ExitEntryError   = 1
	ExitUnknownEntry = 3
)

var entryTemplate = template.Must(template.New("entry").Parse(`// Code generated by goexec. DO NOT EDIT.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
{{- if .Library}}

	{{.Qualifier}} "{{.ImportPath}}"
{{- end}}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	args := os.Args[1:]
	_, _ = ctx, args

	var err error
	switch name := os.Getenv("{{.EntryEnv}}"); name {
{{- range .Calls}}
	case {{printf "%q" .Name}}:
		{{.Stmt}}
{{- end}}
	default:
		fmt.Fprintf(os.Stderr, "goexec: unknown entry %q\n", name)
		os.Exit({{.ExitUnknown}})
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit({{.ExitError}})
	}
}
`))

var helpersTemplate = template.Must(template.New("helpers").Parse(`// Code generated by goexec. DO NOT EDIT.

package {{.Package}}

import (
	"fmt"
	"io"
	"log"
	"os"
)

// dump prints each value on one line, space separated.
func dump(values ...any) {
	for i, v := range values {
		if i > 0 {
			fmt.Print(" ")
		}
		fmt.Printf("%+v", v)
	}
	fmt.Println()
}

var goexecStdout, goexecStderr *os.File

func goexecMute() {
	null, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	if err != nil {
		return
	}
	goexecStdout, goexecStderr = os.Stdout, os.Stderr
	os.Stdout, os.Stderr = null, null
	log.SetOutput(io.Discard)
}

func goexecUnmute() {
	if goexecStdout == nil {
		return
	}
	os.Stdout.Close()
	os.Stdout, os.Stderr = goexecStdout, goexecStderr
	goexecStdout, goexecStderr = nil, nil
	log.SetOutput(os.Stderr)
}

var _ = dump
var _, _ = goexecMute, goexecUnmute
`))

type entryCall struct {
	Name string
	Stmt string
}

// renderEntry generates the dispatcher for entries. qualifier is the
// package name of a library unit, empty for an application unit.
func renderEntry(entries []Entry, library bool, qualifier, importPath string) ([]byte, error) {
	calls := make([]entryCall, 0, len(entries))
	for _, e := range entries {
		calls = append(calls, entryCall{Name: e.Name, Stmt: callStmt(e, qualifier)})
	}
	if library && len(calls) == 0 {
		qualifier = "_"
	}
	var buf bytes.Buffer
	err := entryTemplate.Execute(&buf, map[string]any{
		"Library":     library,
		"Qualifier":   qualifier,
		"ImportPath":  importPath,
		"EntryEnv":    EntryEnv,
		"Calls":       calls,
		"ExitUnknown": ExitUnknownEntry,
		"ExitError":   ExitEntryError,
	})
	return buf.Bytes(), err
}

func callStmt(e Entry, qualifier string) string {
	prefix := ""
	if qualifier != "" {
		prefix = qualifier + "."
	}
	target := prefix + e.Func
	if e.Receiver != "" {
		target = "new(" + prefix + e.Receiver + ")." + e.Func
	}
	var args []string
	if e.Context {
		args = append(args, "ctx")
	}
	if e.Args {
		args = append(args, "args")
	}
	call := target + "(" + strings.Join(args, ", ") + ")"
	if e.Error {
		return "err = " + call
	}
	return call
}

func renderHelpers(pkg string) ([]byte, error) {
	var buf bytes.Buffer
	err := helpersTemplate.Execute(&buf, map[string]string{"Package": pkg})
	return buf.Bytes(), err
}

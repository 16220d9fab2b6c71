// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package compiler

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Severity of a diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic IDs.
const (
	SyntaxError       = "SyntaxError"
	UndeclaredName    = "UndeclaredName"
	UnusedImport      = "UnusedImport"
	UnusedVar         = "UnusedVar"
	NoValue           = "NoValue"
	MissingEntryPoint = "MissingEntryPoint"
	TypeError         = "TypeError"
	BuildFailed       = "BuildFailed"
)

// Diagnostic is one compiler message.
type Diagnostic struct {
	ID       string
	Severity Severity
	File     string
	Line     int
	Column   int
	Message  string
}

// Location formats file:line:col, or just the file when there is no position.
func (d Diagnostic) Location() string {
	if d.Line == 0 {
		return d.File
	}
	return fmt.Sprintf("%s:%d:%d", d.File, d.Line, d.Column)
}

// String renders id-severity-message.
func (d Diagnostic) String() string {
	msg := d.Message
	if loc := d.Location(); loc != "" {
		msg = loc + ": " + msg
	}
	return fmt.Sprintf("%s-%s-%s", d.ID, d.Severity, msg)
}

// Errors returns the error-severity diagnostics.
func Errors(diags []Diagnostic) []Diagnostic {
	var out []Diagnostic
	for _, d := range diags {
		if d.Severity == SeverityError {
			out = append(out, d)
		}
	}
	return out
}

// Warnings returns the warning-severity diagnostics.
func Warnings(diags []Diagnostic) []Diagnostic {
	var out []Diagnostic
	for _, d := range diags {
		if d.Severity == SeverityWarning {
			out = append(out, d)
		}
	}
	return out
}

var (
	rePosition     = regexp.MustCompile(`^(.+?):(\d+):(\d+): (.*)$`)
	reUnusedImport = regexp.MustCompile(`^"([^"]+)" imported (?:as \S+ )?and not used`)
)

// ParseDiagnostics extracts positioned messages from go build output.
// Indented continuation lines are folded into the preceding message; package
// headers ("# pkg") and the "too many errors" trailer are skipped.
func ParseDiagnostics(output string) []Diagnostic {
	var out []Diagnostic
	sc := bufio.NewScanner(strings.NewReader(output))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") || strings.HasSuffix(line, "too many errors") {
			continue
		}
		if (strings.HasPrefix(line, "\t") || strings.HasPrefix(line, "    ")) && len(out) > 0 {
			out[len(out)-1].Message += "\n" + line
			continue
		}
		m := rePosition.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		ln, _ := strconv.Atoi(m[2])
		col, _ := strconv.Atoi(m[3])
		d := Diagnostic{
			File:     strings.TrimPrefix(m[1], "./"),
			Line:     ln,
			Column:   col,
			Message:  m[4],
			Severity: SeverityError,
		}
		if rest, ok := strings.CutPrefix(d.Message, "warning: "); ok {
			d.Severity = SeverityWarning
			d.Message = rest
		}
		d.ID = classify(d.Message)
		out = append(out, d)
	}
	return out
}

func classify(msg string) string {
	switch {
	case strings.HasPrefix(msg, "syntax error"):
		return SyntaxError
	case msg == "undefined: "+entrySymbol || strings.HasSuffix(msg, "undefined: "+entrySymbol):
		return MissingEntryPoint
	case strings.HasPrefix(msg, "undefined:") || strings.Contains(msg, "undefined (type"):
		return UndeclaredName
	case reUnusedImport.MatchString(msg):
		return UnusedImport
	case strings.Contains(msg, "declared and not used"):
		return UnusedVar
	case strings.Contains(msg, "(no value) used as value"):
		return NoValue
	}
	return TypeError
}

// unusedImportPath returns the import path named by an UnusedImport message.
func unusedImportPath(msg string) (string, bool) {
	m := reUnusedImport.FindStringSubmatch(msg)
	if m == nil {
		return "", false
	}
	return m[1], true
}

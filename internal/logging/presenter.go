// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/pterm/pterm"

	"goexec/cli/internal/errors"
	"goexec/cli/internal/httperrors"
)

// PresentError formats an error for user display with masking.
func PresentError(context string, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", context, Mask(err.Error()))
}

// titles maps error kinds to the headline shown above the masked message.
var titles = map[errors.Kind]string{
	errors.InputError:      "Invalid input",
	errors.FetchError:      "Could not load source",
	errors.ResolutionError: "Could not resolve references",
	errors.CompileError:    "Compilation failed",
	errors.ExecutionError:  "Program failed",
	errors.UnhandledPanic:  "Program panicked",
	errors.CancelledError:  "Cancelled",
	errors.ConfigError:     "Configuration error",
}

var hints = map[errors.Kind]string{
	errors.ResolutionError: "check the reference specifiers or run with --no-cache",
	errors.FetchError:      "private repositories need 'goexec token set <host>'",
	errors.ConfigError:     "inspect profiles with 'goexec profile list'",
}

// Present writes a styled, masked description of err to w.
func Present(w io.Writer, err error) {
	if err == nil {
		return
	}
	kind := errors.KindOf(err)
	title, ok := titles[kind]
	if !ok {
		title = "Error"
	}

	var b strings.Builder
	b.WriteString(pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprint(title))
	b.WriteString("\n")
	msg := Mask(err.Error())
	if kind == errors.CompileError {
		if t := ParseBuildFailure(msg); t != BuildFailureUnknown {
			msg = FormatBuildFailure(msg)
		}
	}
	b.WriteString(msg)
	b.WriteString("\n")
	h, ok := hints[kind]
	if kind == errors.FetchError || kind == errors.ResolutionError {
		if specific := httperrors.Hint(err); specific != "" {
			h, ok = specific, true
		}
	}
	if ok {
		b.WriteString(pterm.NewStyle(pterm.FgYellow).Sprint("→ " + h))
		b.WriteString("\n")
	}
	fmt.Fprint(w, b.String())
}

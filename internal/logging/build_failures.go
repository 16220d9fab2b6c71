// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"strings"

	"github.com/pterm/pterm"
)

// BuildFailureType represents the category of a toolchain failure that is
// not a source diagnostic.
type BuildFailureType int

const (
	BuildFailureUnknown BuildFailureType = iota
	BuildFailureNetwork
	BuildFailureModuleNotFound
	BuildFailureToolchain
	BuildFailureChecksum
)

// ParseBuildFailure categorizes go command output.
func ParseBuildFailure(errMsg string) BuildFailureType {
	lower := strings.ToLower(errMsg)

	if strings.Contains(lower, "checksum mismatch") || strings.Contains(lower, "security error") {
		return BuildFailureChecksum
	}
	if strings.Contains(lower, "dial tcp") || strings.Contains(lower, "connection refused") ||
		strings.Contains(lower, "no such host") || strings.Contains(lower, "i/o timeout") {
		return BuildFailureNetwork
	}
	if strings.Contains(lower, "unknown revision") || strings.Contains(lower, "no matching versions") ||
		strings.Contains(lower, "cannot find module providing package") || strings.Contains(lower, "404 not found") {
		return BuildFailureModuleNotFound
	}
	if strings.Contains(lower, "executable file not found") || strings.Contains(lower, "requires go >=") ||
		strings.Contains(lower, "toolchain not available") {
		return BuildFailureToolchain
	}
	return BuildFailureUnknown
}

// FormatBuildFailure formats go command output in a user-friendly way.
func FormatBuildFailure(errMsg string) string {
	var builder strings.Builder

	switch ParseBuildFailure(errMsg) {
	case BuildFailureNetwork:
		builder.WriteString("The module proxy could not be reached.\n")
		builder.WriteString("Check your connection or GOPROXY setting.\n")
	case BuildFailureModuleNotFound:
		builder.WriteString("A referenced module or version does not exist.\n")
		builder.WriteString("Verify the mod: references and their versions.\n")
	case BuildFailureToolchain:
		builder.WriteString("The Go toolchain is missing or too old for this build.\n")
		builder.WriteString("Install a newer Go or pin an installed framework version.\n")
	case BuildFailureChecksum:
		builder.WriteString("Module checksums did not verify.\n")
		builder.WriteString("Run 'goexec cache clean' and try again.\n")
	default:
		return errMsg
	}

	if strings.TrimSpace(errMsg) != "" {
		builder.WriteString("\n")
		builder.WriteString(pterm.NewStyle(pterm.FgGray).Sprint("Technical details: " + errMsg))
	}
	return builder.String()
}

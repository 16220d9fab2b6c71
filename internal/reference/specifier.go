// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package reference

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/module"
)

// Kind represents the type of a reference specifier
type Kind string

const (
	KindModule    Kind = "mod"
	KindFile      Kind = "file"
	KindFolder    Kind = "folder"
	KindProject   Kind = "project"
	KindFramework Kind = "framework"
	KindURL       Kind = "url"
)

// Specifier is a parsed reference string.
type Specifier struct {
	Kind Kind
	// Raw is the text the user wrote.
	Raw string
	// Path is the module path, filesystem path, URL or framework name.
	Path string
	// Version is the requested module version; empty means latest.
	Version string
}

// ParseError represents an error that occurred during specifier parsing
type ParseError struct {
	Spec   string
	Reason string
	Hint   string
}

func (e *ParseError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("invalid reference %q: %s\nHint: %s", e.Spec, e.Reason, e.Hint)
	}
	return fmt.Sprintf("invalid reference %q: %s", e.Spec, e.Reason)
}

// NewParseError creates a new ParseError
func NewParseError(spec, reason, hint string) *ParseError {
	return &ParseError{Spec: spec, Reason: reason, Hint: hint}
}

// DetectKind classifies a specifier by its prefix. Prefix keywords are case
// sensitive. Strings without a prefix are local files unless they are
// well-formed absolute http(s) URLs.
func DetectKind(raw string) Kind {
	raw = strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(raw, "mod:"):
		return KindModule
	case strings.HasPrefix(raw, "file:"):
		return KindFile
	case strings.HasPrefix(raw, "folder:"):
		return KindFolder
	case strings.HasPrefix(raw, "project:"):
		return KindProject
	case strings.HasPrefix(raw, "framework:"):
		return KindFramework
	case isAbsoluteURL(raw):
		return KindURL
	}
	return KindFile
}

// Parse parses and normalizes a reference specifier.
func Parse(raw string) (Specifier, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Specifier{}, NewParseError(raw, "empty reference", "use mod:, file:, folder:, project: or framework:")
	}
	s := Specifier{Kind: DetectKind(trimmed), Raw: trimmed}
	switch s.Kind {
	case KindModule:
		payload := strings.TrimSpace(strings.TrimPrefix(trimmed, "mod:"))
		path, version, _ := strings.Cut(payload, ",")
		s.Path, s.Version = strings.TrimSpace(path), strings.TrimSpace(version)
		if err := module.CheckPath(s.Path); err != nil {
			return Specifier{}, NewParseError(raw, err.Error(), "use mod:<module path>[,<version>]")
		}
	case KindFramework:
		s.Path = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(trimmed, "framework:")))
		if s.Path == "" {
			return Specifier{}, NewParseError(raw, "empty framework name", "try framework:default")
		}
	case KindURL:
		s.Path = trimmed
	default:
		payload := trimmed
		for _, prefix := range []string{"file:", "folder:", "project:"} {
			if strings.HasPrefix(trimmed, prefix) {
				// file:///abs/path is accepted as well as file:/abs/path.
				payload = strings.TrimPrefix(strings.TrimPrefix(trimmed, prefix), "//")
				break
			}
		}
		p, err := normalizePath(payload)
		if err != nil {
			return Specifier{}, NewParseError(raw, err.Error(), "")
		}
		s.Path = p
	}
	return s, nil
}

// Key is the normalized specifier text used as the resolution cache key.
func (s Specifier) Key() string {
	if s.Kind == KindModule {
		v := s.Version
		if v == "" {
			v = "latest"
		}
		return "mod:" + s.Path + "@" + v
	}
	return string(s.Kind) + ":" + s.Path
}

func (s Specifier) String() string { return s.Raw }

func normalizePath(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", fmt.Errorf("empty path")
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		p = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	return filepath.Abs(p)
}

func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

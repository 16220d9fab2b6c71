// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Using is one global import directive.
//
// Accepted text forms:
//
//	path            import "path"
//	alias path      import alias "path"
//	. path          import . "path"
//	static path     import . "path"
//	_ path          import _ "path"
//	-path           remove "path" from the global set
type Using struct {
	Path   string
	Alias  string
	Dot    bool
	Blank  bool
	Remove bool
}

// ParseUsing parses a using directive.
func ParseUsing(s string) (Using, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), ";"))
	var u Using
	if strings.HasPrefix(s, "-") {
		u.Remove = true
		s = strings.TrimSpace(s[1:])
	}
	fields := strings.Fields(s)
	switch len(fields) {
	case 1:
		u.Path = unquote(fields[0])
	case 2:
		u.Path = unquote(fields[1])
		switch fields[0] {
		case ".", "static":
			u.Dot = true
		case "_":
			u.Blank = true
		default:
			if !isIdent(fields[0]) {
				return Using{}, fmt.Errorf("invalid import alias %q", fields[0])
			}
			u.Alias = fields[0]
		}
	default:
		return Using{}, fmt.Errorf("invalid using %q: want [alias] path", s)
	}
	if u.Path == "" {
		return Using{}, fmt.Errorf("invalid using %q: empty path", s)
	}
	return u, nil
}

// Name is the identifier the import binds in file scope. Dot and blank
// imports bind nothing and return "".
func (u Using) Name() string {
	switch {
	case u.Dot, u.Blank:
		return ""
	case u.Alias != "":
		return u.Alias
	}
	return PackageName(u.Path)
}

// Spec renders u as the body of an import spec, e.g. `yaml "gopkg.in/yaml.v3"`.
// An alias is written whenever the guessed package name differs from the
// last path element so the file does not depend on the guess being right.
func (u Using) Spec() string {
	q := strconv.Quote(u.Path)
	switch {
	case u.Dot:
		return ". " + q
	case u.Blank:
		return "_ " + q
	case u.Alias != "":
		return u.Alias + " " + q
	}
	name := PackageName(u.Path)
	if elem := lastElem(u.Path); name != elem {
		return name + " " + q
	}
	return q
}

func (u Using) String() string {
	if u.Remove {
		return "-" + u.Path
	}
	switch {
	case u.Dot:
		return "static " + u.Path
	case u.Blank:
		return "_ " + u.Path
	case u.Alias != "":
		return u.Alias + " " + u.Path
	}
	return u.Path
}

// ResolveUsings applies directives in order and returns the effective set.
// Later additions for the same path replace earlier ones; removals always
// win regardless of where they appear.
func ResolveUsings(directives ...string) ([]Using, error) {
	var out []Using
	index := map[string]int{}
	removed := map[string]bool{}
	for _, d := range directives {
		if strings.TrimSpace(d) == "" {
			continue
		}
		u, err := ParseUsing(d)
		if err != nil {
			return nil, err
		}
		if u.Remove {
			removed[u.Path] = true
			continue
		}
		if i, ok := index[u.Path]; ok {
			out[i] = u
			continue
		}
		index[u.Path] = len(out)
		out = append(out, u)
	}
	kept := out[:0]
	for _, u := range out {
		if !removed[u.Path] {
			kept = append(kept, u)
		}
	}
	return kept, nil
}

// PackageName guesses the package name of an import path the way goimports
// does: the last element, skipping a major version suffix, cut at the first
// dot and stripped of "go-" prefixes and "-go" suffixes.
func PackageName(path string) string {
	elems := strings.Split(strings.Trim(path, "/"), "/")
	name := elems[len(elems)-1]
	if isMajorVersion(name) && len(elems) > 1 {
		name = elems[len(elems)-2]
	}
	if i := strings.IndexByte(name, '.'); i > 0 {
		name = name[:i]
	}
	name = strings.TrimPrefix(name, "go-")
	name = strings.TrimSuffix(name, "-go")
	name = strings.Map(func(r rune) rune {
		if r == '-' {
			return -1
		}
		return r
	}, name)
	return name
}

func lastElem(path string) string {
	path = strings.Trim(path, "/")
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}

func isMajorVersion(s string) bool {
	if len(s) < 2 || s[0] != 'v' {
		return false
	}
	_, err := strconv.Atoi(s[1:])
	return err == nil
}

func isIdent(s string) bool {
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return s != ""
}

func unquote(s string) string {
	if u, err := strconv.Unquote(s); err == nil {
		return u
	}
	return s
}

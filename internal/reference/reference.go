// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package reference turns reference specifiers (module coordinates, local Go
// sources, project descriptors and framework sets) into the concrete inputs
// the compiler needs. Each specifier kind has its own strategy; results are
// cached for the lifetime of the process.
package reference

import (
	"sort"

	"golang.org/x/mod/semver"
)

// Artifact describes what a resolved reference contributes to a build.
type Artifact string

const (
	// ArtifactModule is a module from the module ecosystem.
	ArtifactModule Artifact = "module"
	// ArtifactSource is a Go source file compiled into the snippet package.
	ArtifactSource Artifact = "source"
	// ArtifactLocalModule is a module rooted in a local directory.
	ArtifactLocalModule Artifact = "local-module"
	// ArtifactFramework is an installed Go SDK plus a standard import set.
	ArtifactFramework Artifact = "framework"
)

// Reference is one resolved artifact and the specifier it came from.
type Reference struct {
	Origin   string
	Artifact Artifact

	// Path is the module path, source file path (or URL), local module path
	// or framework name.
	Path    string
	Version string
	// Dir is the module cache directory, the local module root or GOROOT.
	Dir      string
	Sum      string
	GoModSum string
	// Direct marks modules named by a specifier rather than reached through
	// the dependency graph.
	Direct bool

	// Content holds fetched source for remote files. Nil means read Path.
	Content []byte

	// Framework fields.
	Imports   []string
	GoVersion string
	GoBin     string
}

// Modules returns the module references in refs.
func Modules(refs []Reference) []Reference { return filter(refs, ArtifactModule) }

// Sources returns the source file references in refs.
func Sources(refs []Reference) []Reference { return filter(refs, ArtifactSource) }

// LocalModules returns the local module references in refs.
func LocalModules(refs []Reference) []Reference { return filter(refs, ArtifactLocalModule) }

// Framework returns the first framework reference, if any.
func Framework(refs []Reference) (Reference, bool) {
	for _, r := range refs {
		if r.Artifact == ArtifactFramework {
			return r, true
		}
	}
	return Reference{}, false
}

// Usings returns the union of framework import sets, in declaration order.
func Usings(refs []Reference) []string {
	var out []string
	seen := map[string]bool{}
	for _, r := range refs {
		for _, imp := range r.Imports {
			if !seen[imp] {
				seen[imp] = true
				out = append(out, imp)
			}
		}
	}
	return out
}

func filter(refs []Reference, a Artifact) []Reference {
	var out []Reference
	for _, r := range refs {
		if r.Artifact == a {
			out = append(out, r)
		}
	}
	return out
}

// Dedupe collapses duplicate artifacts. Modules keep the highest semver per
// path; a module becomes Direct if any duplicate was. Frameworks keep the
// newest SDK and merge import sets. Everything else keeps the first entry.
func Dedupe(refs []Reference) []Reference {
	out := make([]Reference, 0, len(refs))
	index := map[string]int{}
	for _, r := range refs {
		key := string(r.Artifact) + "\x00" + r.Path
		if r.Artifact == ArtifactFramework {
			key = string(r.Artifact)
		}
		i, ok := index[key]
		if !ok {
			index[key] = len(out)
			r.Imports = append([]string(nil), r.Imports...)
			out = append(out, r)
			continue
		}
		cur := &out[i]
		switch r.Artifact {
		case ArtifactModule:
			direct := cur.Direct || r.Direct
			if semver.Compare(r.Version, cur.Version) > 0 || (r.Version == cur.Version && cur.Dir == "" && r.Dir != "") {
				*cur = r
			}
			cur.Direct = direct
		case ArtifactFramework:
			imports := Usings([]Reference{*cur, r})
			if r.GoVersion != cur.GoVersion && newer(r.GoVersion, cur.GoVersion) {
				cur.Dir, cur.GoVersion, cur.GoBin = r.Dir, r.GoVersion, r.GoBin
			}
			cur.Path = cur.Path + "+" + r.Path
			cur.Imports = imports
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return rank(out[i].Artifact) < rank(out[j].Artifact) })
	return out
}

func rank(a Artifact) int {
	switch a {
	case ArtifactFramework:
		return 0
	case ArtifactModule:
		return 1
	case ArtifactLocalModule:
		return 2
	}
	return 3
}

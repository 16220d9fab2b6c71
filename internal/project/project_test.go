// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package project

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"
)

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestEnrichPackagesAndRemoval(t *testing.T) {
	dir := t.TempDir()
	// Declaration order must not matter.
	docs := []string{
		`
packages:
  - path: github.com/google/uuid
    version: v1.6.0
  - path: gopkg.in/yaml.v3
imports:
  - path: os
    remove: true
`,
		`
imports:
  - path: os
    remove: true
packages:
  - path: gopkg.in/yaml.v3
  - path: github.com/google/uuid
    version: v1.6.0
`,
	}
	for i, doc := range docs {
		path := writeFile(t, filepath.Join(dir, "p", string(rune('a'+i)), "goexec.yaml"), doc)
		e, err := Enrich(path)
		if err != nil {
			t.Fatalf("Enrich() error = %v", err)
		}
		refs := append([]string(nil), e.References...)
		sort.Strings(refs)
		want := []string{"mod:github.com/google/uuid,v1.6.0", "mod:gopkg.in/yaml.v3"}
		if !reflect.DeepEqual(refs, want) {
			t.Errorf("References = %v, want %v", refs, want)
		}
		if len(e.Usings) != 0 {
			t.Errorf("Usings = %v, want none", e.Usings)
		}
		if !reflect.DeepEqual(e.Removals, []string{"-os"}) {
			t.Errorf("Removals = %v, want [-os]", e.Removals)
		}
	}
}

func TestEnrichImportMarkers(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "goexec.yaml"), `
imports:
  - path: strings
    static: true
  - path: github.com/google/uuid
    alias: u
  - path: fmt
`)
	e, err := Enrich(dir)
	if err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}
	want := []string{"static strings", "u github.com/google/uuid", "fmt"}
	if !reflect.DeepEqual(e.Usings, want) {
		t.Errorf("Usings = %v, want %v", e.Usings, want)
	}
}

func TestEnrichCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a", "goexec.yaml"), "projects: [../b]\n")
	writeFile(t, filepath.Join(dir, "b", "goexec.yaml"), "projects: [../a/goexec.yaml]\n")

	_, err := Enrich(filepath.Join(dir, "a"))
	var cycle *CycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("Enrich() error = %v, want CycleError", err)
	}
	if len(cycle.Chain) != 3 {
		t.Errorf("cycle chain = %v, want 3 entries", cycle.Chain)
	}
}

func TestLoadMalformed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "unknown field", doc: "packagez: []\n"},
		{name: "empty package path", doc: "packages:\n  - version: v1.0.0\n"},
		{name: "static with alias", doc: "imports:\n  - path: fmt\n    static: true\n    alias: f\n"},
		{name: "not yaml", doc: "packages: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, filepath.Join(t.TempDir(), "goexec.yaml"), tt.doc)
			if _, err := Load(path); err == nil {
				t.Error("Load() error = nil, want error")
			}
		})
	}
}

func TestLoadGoMod(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "go.mod"), `module example.com/tools

go 1.22

require (
	github.com/google/uuid v1.6.0
	golang.org/x/text v0.14.0 // indirect
)

replace example.com/shared => ../shared
`)
	d, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if d.Format != FormatGoMod || d.Module != "example.com/tools" || d.Go != "1.22" {
		t.Errorf("Load() = %+v", d)
	}
	if got := d.PackageSpecifiers(); !reflect.DeepEqual(got, []string{"mod:github.com/google/uuid,v1.6.0"}) {
		t.Errorf("PackageSpecifiers() = %v", got)
	}
	if got := d.ProjectPaths(); !reflect.DeepEqual(got, []string{filepath.Join(filepath.Dir(dir), "shared")}) {
		t.Errorf("ProjectPaths() = %v", got)
	}
}

func TestLoadGoModLocalReplace(t *testing.T) {
	tests := []struct {
		name         string
		replace      string
		wantPackages []string
		wantProjects int
	}{
		{
			name:         "directory",
			replace:      "replace example.com/shared => ../shared",
			wantPackages: []string{"mod:github.com/google/uuid,v1.6.0"},
			wantProjects: 1,
		},
		{
			name:         "versioned directory",
			replace:      "replace example.com/shared v0.0.0 => ./shared",
			wantPackages: []string{"mod:github.com/google/uuid,v1.6.0"},
			wantProjects: 1,
		},
		{
			name:         "module",
			replace:      "replace example.com/shared => example.com/fork v1.2.0",
			wantPackages: []string{"mod:github.com/google/uuid,v1.6.0", "mod:example.com/shared,v0.0.0"},
			wantProjects: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, filepath.Join(dir, "app", "go.mod"), `module example.com/app

go 1.22

require (
	github.com/google/uuid v1.6.0
	example.com/shared v0.0.0
)

`+tt.replace+"\n")
			d, err := Load(filepath.Join(dir, "app"))
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if got := d.PackageSpecifiers(); !reflect.DeepEqual(got, tt.wantPackages) {
				t.Errorf("PackageSpecifiers() = %v, want %v", got, tt.wantPackages)
			}
			if got := len(d.ProjectPaths()); got != tt.wantProjects {
				t.Errorf("len(ProjectPaths()) = %d, want %d", got, tt.wantProjects)
			}
		})
	}
}

func TestEnrichGoModLocalReplace(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "app", "go.mod"), `module example.com/app

go 1.22

require example.com/shared v0.0.0

replace example.com/shared => ../shared
`)
	writeFile(t, filepath.Join(dir, "shared", "go.mod"), `module example.com/shared

go 1.22

require github.com/google/uuid v1.6.0
`)
	e, err := Enrich(filepath.Join(dir, "app"))
	if err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}
	if want := []string{"mod:github.com/google/uuid,v1.6.0"}; !reflect.DeepEqual(e.References, want) {
		t.Errorf("References = %v, want %v", e.References, want)
	}
}

func TestReferenceSpecifiersAreAbsolute(t *testing.T) {
	d := &Descriptor{Path: "/work/proj/goexec.yaml", References: []string{"folder:lib", "mod:example.com/x", "util.go", "framework:web"}}
	want := []string{"folder:/work/proj/lib", "mod:example.com/x", "/work/proj/util.go", "framework:web"}
	if got := d.ReferenceSpecifiers(); !reflect.DeepEqual(got, want) {
		t.Errorf("ReferenceSpecifiers() = %v, want %v", got, want)
	}
}

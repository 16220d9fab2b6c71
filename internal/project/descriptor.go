// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package project reads snippet project descriptors: a small YAML document
// listing packages, imports and nested references, or a plain go.mod.
package project

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/modfile"
	"gopkg.in/yaml.v3"
)

// Format identifies the kind of descriptor file.
type Format string

const (
	FormatYAML  Format = "yaml"
	FormatGoMod Format = "gomod"
)

// DefaultNames are looked up, in order, when a descriptor path is a directory.
var DefaultNames = []string{"goexec.yaml", "goexec.yml", "go.mod"}

// Descriptor is a parsed project file.
type Descriptor struct {
	Name       string    `yaml:"name"`
	Go         string    `yaml:"go"`
	Packages   []Package `yaml:"packages"`
	Imports    []Import  `yaml:"imports"`
	References []string  `yaml:"references"`
	Projects   []string  `yaml:"projects"`

	// Path is the absolute path of the descriptor file.
	Path   string `yaml:"-"`
	Format Format `yaml:"-"`
	// Module is set for go.mod descriptors: the module itself is a local
	// module rooted next to the descriptor.
	Module string `yaml:"-"`
}

// Package is a declared module dependency.
type Package struct {
	Path    string `yaml:"path"`
	Version string `yaml:"version"`
}

// Import is a declared import for every snippet of the project.
type Import struct {
	Path   string `yaml:"path"`
	Alias  string `yaml:"alias"`
	Static bool   `yaml:"static"`
	Remove bool   `yaml:"remove"`
}

// Using renders the import as a using directive.
func (i Import) Using() string {
	switch {
	case i.Remove:
		return "-" + i.Path
	case i.Static:
		return "static " + i.Path
	case i.Alias != "":
		return i.Alias + " " + i.Path
	}
	return i.Path
}

// Dir is the directory relative entries are resolved against.
func (d *Descriptor) Dir() string { return filepath.Dir(d.Path) }

// PackageSpecifiers returns the declared packages as mod: specifiers.
func (d *Descriptor) PackageSpecifiers() []string {
	out := make([]string, 0, len(d.Packages))
	for _, p := range d.Packages {
		s := "mod:" + p.Path
		if p.Version != "" {
			s += "," + p.Version
		}
		out = append(out, s)
	}
	return out
}

// ReferenceSpecifiers returns declared references with relative paths made
// absolute against the descriptor directory.
func (d *Descriptor) ReferenceSpecifiers() []string {
	out := make([]string, 0, len(d.References))
	for _, r := range d.References {
		out = append(out, d.absolutize(r))
	}
	return out
}

// ProjectPaths returns the absolute paths of nested project descriptors.
func (d *Descriptor) ProjectPaths() []string {
	out := make([]string, 0, len(d.Projects))
	for _, p := range d.Projects {
		p = strings.TrimPrefix(p, "project:")
		if !filepath.IsAbs(p) {
			p = filepath.Join(d.Dir(), p)
		}
		out = append(out, filepath.Clean(p))
	}
	return out
}

// absolutize rewrites the path payload of a path-like specifier.
func (d *Descriptor) absolutize(spec string) string {
	for _, prefix := range []string{"file:", "folder:", "project:"} {
		if strings.HasPrefix(spec, prefix) {
			p := strings.TrimPrefix(spec, prefix)
			if !filepath.IsAbs(p) {
				p = filepath.Join(d.Dir(), p)
			}
			return prefix + filepath.Clean(p)
		}
	}
	if strings.Contains(spec, ":") || filepath.IsAbs(spec) {
		return spec
	}
	return filepath.Join(d.Dir(), spec)
}

// Locate maps a file or directory to a descriptor file path.
func Locate(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if !fi.IsDir() {
		return abs, nil
	}
	for _, name := range DefaultNames {
		candidate := filepath.Join(abs, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no project descriptor in %s (looked for %s)", abs, strings.Join(DefaultNames, ", "))
}

// Load reads and validates a descriptor. Directories are searched for one of
// DefaultNames.
func Load(path string) (*Descriptor, error) {
	file, err := Locate(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	var d *Descriptor
	switch {
	case filepath.Base(file) == "go.mod":
		d, err = parseGoMod(file, data)
	case strings.HasSuffix(file, ".yaml"), strings.HasSuffix(file, ".yml"):
		d, err = parseYAML(data)
	default:
		return nil, fmt.Errorf("%s: unsupported project descriptor (want .yaml, .yml or go.mod)", file)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	d.Path = file
	if err := d.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return d, nil
}

func parseYAML(data []byte) (*Descriptor, error) {
	var d Descriptor
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	d.Format = FormatYAML
	return &d, nil
}

func parseGoMod(file string, data []byte) (*Descriptor, error) {
	f, err := modfile.ParseLax(file, data, nil)
	if err != nil {
		return nil, err
	}
	if f.Module == nil {
		return nil, errors.New("go.mod has no module directive")
	}
	d := &Descriptor{
		Name:   f.Module.Mod.Path,
		Format: FormatGoMod,
		Module: f.Module.Mod.Path,
	}
	if f.Go != nil {
		d.Go = f.Go.Version
	}
	// Only directory replacements point at other local projects. Their
	// requirements come from the nested project, not the module proxy.
	local := make(map[string]bool)
	for _, r := range f.Replace {
		if r.New.Version == "" && modfile.IsDirectoryPath(r.New.Path) {
			local[r.Old.Path] = true
			d.Projects = append(d.Projects, r.New.Path)
		}
	}
	for _, r := range f.Require {
		if r.Indirect || local[r.Mod.Path] {
			continue
		}
		d.Packages = append(d.Packages, Package{Path: r.Mod.Path, Version: r.Mod.Version})
	}
	return d, nil
}

func (d *Descriptor) validate() error {
	for i, p := range d.Packages {
		if strings.TrimSpace(p.Path) == "" {
			return fmt.Errorf("packages[%d]: empty path", i)
		}
	}
	for i, imp := range d.Imports {
		if strings.TrimSpace(imp.Path) == "" {
			return fmt.Errorf("imports[%d]: empty path", i)
		}
		if imp.Static && imp.Alias != "" {
			return fmt.Errorf("imports[%d]: static and alias are mutually exclusive", i)
		}
	}
	for i, p := range d.Projects {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("projects[%d]: empty path", i)
		}
	}
	return nil
}

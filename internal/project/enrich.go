// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package project

import (
	"fmt"
	"strings"

	"goexec/cli/internal/model"
)

// MaxDepth bounds how deep nested project descriptors may go.
const MaxDepth = 16

// Enrichment is what a project descriptor contributes to a request.
type Enrichment struct {
	// References holds one mod: specifier per declared package.
	References []string
	// Usings holds declared imports to add.
	Usings []string
	// Removals holds imports to subtract, each prefixed with "-".
	Removals []string
}

// Apply merges e into req. Removals are appended as using directives so they
// subtract from the final set no matter where the import came from.
func (e *Enrichment) Apply(req *model.Request) {
	req.AddReferences(e.References...)
	req.AddUsings(e.Usings...)
	req.AddUsings(e.Removals...)
}

// CycleError reports a project that references itself, directly or not.
type CycleError struct {
	Chain []string
}

func (e *CycleError) Error() string {
	return "cyclic project reference: " + strings.Join(e.Chain, " -> ")
}

// Enrich loads the descriptor at path and every nested project it lists,
// collecting declared packages and imports.
func Enrich(path string) (*Enrichment, error) {
	e := &Enrichment{}
	if err := enrich(path, nil, e); err != nil {
		return nil, err
	}
	return e, nil
}

func enrich(path string, chain []string, e *Enrichment) error {
	file, err := Locate(path)
	if err != nil {
		return err
	}
	if err := CheckChain(chain, file); err != nil {
		return err
	}
	d, err := Load(file)
	if err != nil {
		return err
	}
	e.References = model.Union(e.References, d.PackageSpecifiers()...)
	for _, imp := range d.Imports {
		if imp.Remove {
			e.Removals = model.Union(e.Removals, imp.Using())
		} else {
			e.Usings = model.Union(e.Usings, imp.Using())
		}
	}
	chain = append(chain, file)
	for _, nested := range d.ProjectPaths() {
		if err := enrich(nested, chain, e); err != nil {
			return err
		}
	}
	return nil
}

// CheckChain fails when file already appears in chain or the chain is too
// deep. chain lists descriptor files from the outermost project inwards.
func CheckChain(chain []string, file string) error {
	for _, p := range chain {
		if p == file {
			cycle := append(append([]string(nil), chain...), file)
			return &CycleError{Chain: cycle}
		}
	}
	if len(chain) >= MaxDepth {
		return fmt.Errorf("project nesting deeper than %d at %s", MaxDepth, file)
	}
	return nil
}

// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package model holds the request shared by the one-shot pipeline and the
// interactive session, plus the ordered-set helpers used to merge reference
// and using lists without reordering what the user typed.
package model

import "strings"

// Compiler variants.
const (
	CompilerSimple    = "simple"
	CompilerWorkspace = "workspace"
	CompilerAdvanced  = "advanced"
)

// Executor variants.
const (
	ExecutorProcess = "process"
	ExecutorDocker  = "docker"
)

// Request is the configuration of a single run. It is built once per
// invocation and only grows while in-source directives are merged.
// Cancellation travels separately as a context.Context.
type Request struct {
	Script      string   `json:"script"`
	References  []string `json:"references,omitempty"`
	Usings      []string `json:"usings,omitempty"`
	Compiler    string   `json:"compiler,omitempty"`
	Executor    string   `json:"executor,omitempty"`
	LangVersion string   `json:"lang_version,omitempty"`
	Entry       string   `json:"entry,omitempty"`
	Debug       bool     `json:"debug,omitempty"`
	NoCache     bool     `json:"no_cache,omitempty"`
	Project     string   `json:"project,omitempty"`
	Args        []string `json:"args,omitempty"`
	DockerImage string   `json:"docker_image,omitempty"`

	// ScriptMode is set by the fetcher for raw expression scripts.
	ScriptMode bool `json:"-"`
}

// WithDefaults fills unset variant selectors.
func (r Request) WithDefaults() Request {
	if r.Compiler == "" {
		r.Compiler = CompilerAdvanced
	}
	if r.Executor == "" {
		r.Executor = ExecutorProcess
	}
	return r
}

// Clone returns a deep copy of r.
func (r Request) Clone() Request {
	c := r
	c.References = append([]string(nil), r.References...)
	c.Usings = append([]string(nil), r.Usings...)
	c.Args = append([]string(nil), r.Args...)
	return c
}

// AddReferences unions refs into the request, keeping existing order.
func (r *Request) AddReferences(refs ...string) {
	r.References = Union(r.References, refs...)
}

// AddUsings unions usings into the request, keeping existing order.
func (r *Request) AddUsings(usings ...string) {
	r.Usings = Union(r.Usings, usings...)
}

// HasFramework reports whether any reference selects a framework set.
func (r *Request) HasFramework() bool {
	for _, ref := range r.References {
		if strings.HasPrefix(strings.TrimSpace(ref), "framework:") {
			return true
		}
	}
	return false
}

// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package compiler

import (
	"path"
	"strings"

	"golang.org/x/tools/txtar"

	"goexec/cli/internal/errors"
)

// workspaceVariant compiles a txtar archive. Files at the archive root form
// the main package; files in sub-directories are packages importable as
// "snippet/<dir>". Local modules are wired through go.work.
type workspaceVariant struct{}

func (workspaceVariant) name() string { return "workspace" }

func (workspaceVariant) render(in Input, a attempt) (*layout, error) {
	if len(in.Replays) > 0 {
		return nil, errors.New(errors.InputError, "the workspace compiler does not support sessions; use the advanced compiler")
	}
	ar := txtar.Parse([]byte(in.Source.Text))
	if len(ar.Files) == 0 {
		ar = &txtar.Archive{Files: []txtar.File{{Name: sourceFileName(in.Source.Name), Data: []byte(in.Source.Text)}}}
	}

	dir, pkg := packageDir(a)
	out := &layout{files: map[string][]byte{}, workspace: true}
	for _, f := range ar.Files {
		name := path.Clean(strings.TrimPrefix(filepathToSlash(strings.TrimSpace(f.Name)), "/"))
		if name == "." || strings.HasPrefix(name, "../") || name == ".." {
			return nil, errors.Newf(errors.InputError, "archive entry %q escapes the workspace", f.Name)
		}
		switch name {
		case "go.mod", "go.sum", "go.work", "go.work.sum":
			// Module files are generated.
			continue
		}
		if path.Dir(name) != "." || path.Ext(name) != ".go" {
			out.files[name] = f.Data
			continue
		}
		text, specs := withUsings(renameMain(string(f.Data), a.library), pkg, in, a)
		out.inject(specs)
		target := path.Join(dir, name)
		if _, dup := out.files[target]; dup {
			return nil, errors.Newf(errors.InputError, "archive entry %q collides with %s", f.Name, target)
		}
		out.files[target] = []byte(text)
		out.user = append(out.user, target)
	}
	if len(out.user) == 0 {
		return nil, errors.New(errors.InputError, "archive has no Go files at its root")
	}
	return out, nil
}

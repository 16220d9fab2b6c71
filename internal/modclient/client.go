// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package modclient resolves Go modules through the go command. It never
// speaks the module proxy protocol itself: downloads, checksums and the
// module cache stay the go command's business.
package modclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"
)

// Module mirrors the JSON printed by `go mod download -json`.
type Module struct {
	Path     string
	Version  string
	Query    string
	Error    string
	Info     string
	GoMod    string
	Zip      string
	Dir      string
	Sum      string
	GoModSum string
}

// runFunc executes a command and returns its stdout and stderr.
type runFunc func(ctx context.Context, dir string, env []string, name string, args ...string) ([]byte, []byte, error)

// Client runs the go command on behalf of the resolver.
type Client struct {
	goBin string
	env   []string
	run   runFunc
}

// New returns a client using goBin, or "go" from PATH when empty.
func New(goBin string) *Client {
	if goBin == "" {
		goBin = "go"
	}
	return &Client{
		goBin: goBin,
		env: append(os.Environ(),
			"GO111MODULE=on",
			"GOWORK=off",
			"GOFLAGS=-mod=mod",
			"GOTOOLCHAIN=local",
		),
		run: runCommand,
	}
}

// Download fetches path at the given version query ("latest", a semver or
// any query the go command accepts) into the module cache.
func (c *Client) Download(ctx context.Context, path, query string) (*Module, error) {
	if err := module.CheckPath(path); err != nil {
		return nil, err
	}
	if query == "" {
		query = "latest"
	}
	stdout, stderr, err := c.run(ctx, os.TempDir(), c.env, c.goBin, "mod", "download", "-json", path+"@"+query)
	var m Module
	if derr := json.Unmarshal(stdout, &m); derr != nil {
		if err != nil {
			return nil, commandError(err, stderr)
		}
		return nil, fmt.Errorf("decode go mod download output: %w", derr)
	}
	if m.Error != "" {
		return nil, errors.New(m.Error)
	}
	if err != nil {
		return nil, commandError(err, stderr)
	}
	return &m, nil
}

// listed mirrors the subset of `go list -m -json` output we need.
type listed struct {
	Path    string
	Version string
	GoMod   string
	Error   *struct {
		Err string
	}
}

// Requirements returns the requirements declared in the go.mod of
// path@version. Only the go.mod is fetched, not the module zip.
func (c *Client) Requirements(ctx context.Context, path, version string) ([]module.Version, error) {
	stdout, stderr, err := c.run(ctx, os.TempDir(), c.env, c.goBin, "list", "-m", "-json", path+"@"+version)
	if err != nil {
		return nil, commandError(err, stderr)
	}
	var l listed
	if err := json.Unmarshal(stdout, &l); err != nil {
		return nil, fmt.Errorf("decode go list output: %w", err)
	}
	if l.Error != nil {
		return nil, errors.New(l.Error.Err)
	}
	if l.GoMod == "" {
		return nil, nil
	}
	data, err := os.ReadFile(l.GoMod)
	if err != nil {
		return nil, err
	}
	return ParseRequirements(l.GoMod, data)
}

// ParseRequirements extracts the require block of a go.mod file.
func ParseRequirements(name string, data []byte) ([]module.Version, error) {
	f, err := modfile.ParseLax(name, data, nil)
	if err != nil {
		return nil, err
	}
	out := make([]module.Version, 0, len(f.Require))
	for _, r := range f.Require {
		out = append(out, r.Mod)
	}
	return out, nil
}

func runCommand(ctx context.Context, dir string, env []string, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Env = env
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

func commandError(err error, stderr []byte) error {
	msg := strings.TrimSpace(string(stderr))
	if msg == "" {
		return err
	}
	return fmt.Errorf("%w: %s", err, msg)
}

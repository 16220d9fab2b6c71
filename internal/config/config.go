// Package config loads and stores named run profiles in the XDG config dir.
// Only non-secret settings are kept here; secrets go to OS keychain.
package config

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"goexec/cli/internal/errors"
	"goexec/cli/internal/model"
	"goexec/cli/internal/xdg"
)

// Profile holds the persisted defaults of a run.
type Profile struct {
	References  []string `json:"references,omitempty"`
	Usings      []string `json:"usings,omitempty"`
	Compiler    string   `json:"compiler,omitempty"`
	Executor    string   `json:"executor,omitempty"`
	LangVersion string   `json:"lang_version,omitempty"`
	Entry       string   `json:"entry,omitempty"`
	Debug       bool     `json:"debug,omitempty"`
	DockerImage string   `json:"docker_image,omitempty"`
}

var nameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,63}$`)

// Store is a directory of <name>.json profiles.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir.
func NewStore(dir string) *Store { return &Store{dir: dir} }

// DefaultStore returns the store under the user's config dir.
func DefaultStore() (*Store, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return nil, errors.Wrap(errors.ConfigError, "config dir", err)
	}
	return NewStore(filepath.Join(dir, "profiles")), nil
}

// path returns the path to the profile file.
func (s *Store) path(name string) (string, error) {
	if !nameRe.MatchString(name) {
		return "", errors.Newf(errors.ConfigError, "invalid profile name %q", name)
	}
	return filepath.Join(s.dir, name+".json"), nil
}

// List returns profile names in lexical order; a missing dir yields none.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Wrap(errors.ConfigError, "list profiles", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if name, ok := strings.CutSuffix(e.Name(), ".json"); ok && nameRe.MatchString(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Get reads a profile.
func (s *Store) Get(name string) (Profile, error) {
	var p Profile
	path, err := s.path(name)
	if err != nil {
		return p, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return p, errors.Newf(errors.ConfigError, "profile %q not found", name)
		}
		return p, errors.Wrap(errors.ConfigError, "read profile", err)
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, errors.Wrap(errors.ConfigError, fmt.Sprintf("profile %q is malformed", name), err)
	}
	return p, nil
}

// Set writes a profile with 0600 permissions.
func (s *Store) Set(name string, p Profile) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return errors.Wrap(errors.ConfigError, "create profile dir", err)
	}
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return errors.Wrap(errors.ConfigError, "write profile", err)
	}
	return nil
}

// Delete removes a profile. Deleting a missing profile is not an error.
func (s *Store) Delete(name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !stderrors.Is(err, os.ErrNotExist) {
		return errors.Wrap(errors.ConfigError, "delete profile", err)
	}
	return nil
}

// Apply layers p under req: list values are prepended, scalars only fill
// fields the request left empty.
func (p Profile) Apply(req model.Request) model.Request {
	out := req.Clone()
	out.References = model.Union(p.References, req.References...)
	out.Usings = model.Union(p.Usings, req.Usings...)
	if out.Compiler == "" {
		out.Compiler = p.Compiler
	}
	if out.Executor == "" {
		out.Executor = p.Executor
	}
	if out.LangVersion == "" {
		out.LangVersion = p.LangVersion
	}
	if out.Entry == "" {
		out.Entry = p.Entry
	}
	if out.DockerImage == "" {
		out.DockerImage = p.DockerImage
	}
	out.Debug = out.Debug || p.Debug
	return out
}

// FromRequest captures the persistable part of req.
func FromRequest(req model.Request) Profile {
	return Profile{
		References:  append([]string(nil), req.References...),
		Usings:      append([]string(nil), req.Usings...),
		Compiler:    req.Compiler,
		Executor:    req.Executor,
		LangVersion: req.LangVersion,
		Entry:       req.Entry,
		Debug:       req.Debug,
		DockerImage: req.DockerImage,
	}
}

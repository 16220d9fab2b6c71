// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package keychain

import (
	"errors"
	"testing"
)

type memBackend map[string]string

func (m memBackend) Set(key, value string) error { m[key] = value; return nil }
func (m memBackend) Get(key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", errors.New("key not found")
	}
	return v, nil
}
func (m memBackend) Delete(key string) error { delete(m, key); return nil }

func TestTokenSource(t *testing.T) {
	mgr := &Manager{backend: memBackend{}}
	if err := mgr.SaveToken("GitHub.com", "from-keychain"); err != nil {
		t.Fatal(err)
	}
	if err := mgr.SaveToken("git.example.org", "private"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		env  map[string]string
		host string
		want string
	}{
		{name: "env wins", env: map[string]string{"GITHUB_TOKEN": "from-env"}, host: "github.com", want: "from-env"},
		{name: "tool specific env first", env: map[string]string{"GITHUB_TOKEN": "b", "GOEXEC_GITHUB_TOKEN": "a"}, host: "github.com", want: "a"},
		{name: "keychain fallback", host: "github.com", want: "from-keychain"},
		{name: "raw host shares github token", host: "raw.githubusercontent.com", want: "from-keychain"},
		{name: "gitlab env", env: map[string]string{"GITLAB_TOKEN": "gl"}, host: "gitlab.com", want: "gl"},
		{name: "other host from keychain", host: "git.example.org", want: "private"},
		{name: "unknown host", host: "example.com", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := TokenSource{
				Lookup:  func(k string) string { return tt.env[k] },
				Manager: func() (*Manager, error) { return mgr, nil },
			}
			got, err := src.Token(tt.host)
			if err != nil {
				t.Fatalf("Token() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Token() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClearToken(t *testing.T) {
	mgr := &Manager{backend: memBackend{}}
	if err := mgr.SaveToken("github.com", "x"); err != nil {
		t.Fatal(err)
	}
	if err := mgr.ClearToken("github.com"); err != nil {
		t.Fatalf("ClearToken() error = %v", err)
	}
	if _, err := mgr.LoadToken("github.com"); err == nil {
		t.Error("LoadToken() after ClearToken() succeeded")
	}
	if err := mgr.SaveToken("", "x"); err == nil {
		t.Error("SaveToken() with empty host succeeded")
	}
}

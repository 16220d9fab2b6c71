// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package keychain

import (
	"os"
	"strings"
)

// envTokens maps host suffixes to the environment variables consulted
// before the keychain.
var envTokens = []struct {
	suffix string
	vars   []string
}{
	{suffix: "github.com", vars: []string{"GOEXEC_GITHUB_TOKEN", "GITHUB_TOKEN", "GH_TOKEN"}},
	{suffix: "githubusercontent.com", vars: []string{"GOEXEC_GITHUB_TOKEN", "GITHUB_TOKEN", "GH_TOKEN"}},
	{suffix: "gitlab.com", vars: []string{"GOEXEC_GITLAB_TOKEN", "GITLAB_TOKEN"}},
}

// TokenSource resolves code host tokens from the environment first and the
// OS keychain second. A missing token is not an error.
type TokenSource struct {
	// Lookup defaults to os.Getenv.
	Lookup func(string) string
	// Manager defaults to the global manager.
	Manager func() (*Manager, error)
}

// Token returns the token for host, or "" when none is configured.
func (s TokenSource) Token(host string) (string, error) {
	lookup := s.Lookup
	if lookup == nil {
		lookup = os.Getenv
	}
	host = strings.ToLower(host)
	for _, e := range envTokens {
		if host != e.suffix && !strings.HasSuffix(host, "."+e.suffix) {
			continue
		}
		for _, v := range e.vars {
			if t := strings.TrimSpace(lookup(v)); t != "" {
				return t, nil
			}
		}
	}

	get := s.Manager
	if get == nil {
		get = GetManager
	}
	m, err := get()
	if err != nil {
		return "", nil
	}
	// raw.githubusercontent.com shares the github.com token.
	for _, h := range []string{host, canonicalHost(host)} {
		if t, err := m.LoadToken(h); err == nil && t != "" {
			return t, nil
		}
	}
	return "", nil
}

func canonicalHost(host string) string {
	if strings.HasSuffix(host, "githubusercontent.com") {
		return "github.com"
	}
	return host
}

// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package fetch obtains snippet source text from inline code, raw scripts,
// local files and remote URLs, and extracts the reference and using
// directives written at the top of the source.
package fetch

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"goexec/cli/internal/errors"
	"goexec/cli/internal/httperrors"
)

const (
	// InlinePrefix marks inline code.
	InlinePrefix = "code:"
	// ScriptPrefix marks a raw expression script.
	ScriptPrefix = "script:"

	maxBodySize  = 8 << 20
	maxRedirects = 10
)

// Source is fetched snippet text plus what its header declared.
type Source struct {
	Text string
	// Name is a short display name used in diagnostics.
	Name string
	// Origin is the path or URL the text came from, or "inline".
	Origin     string
	ScriptMode bool
	References []string
	Usings     []string
}

// TokenSource supplies credentials for private code hosts.
type TokenSource interface {
	Token(host string) (string, error)
}

// Fetcher reads snippet sources.
type Fetcher struct {
	client  *http.Client
	tokens  TokenSource
	maxBody int64
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option { return func(f *Fetcher) { f.client = c } }

// WithTokens sets the credential source for private hosts.
func WithTokens(t TokenSource) Option { return func(f *Fetcher) { f.tokens = t } }

// New returns a Fetcher.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{client: &http.Client{Timeout: 30 * time.Second}, maxBody: maxBodySize}
	for _, opt := range opts {
		opt(f)
	}
	c := *f.client
	c.CheckRedirect = dropCredentials(c.CheckRedirect)
	f.client = &c
	return f
}

// dropCredentials removes token headers from redirects that leave the
// original host, then defers to next.
func dropCredentials(next func(*http.Request, []*http.Request) error) func(*http.Request, []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if len(via) > 0 && req.URL.Host != via[0].URL.Host {
			req.Header.Del("PRIVATE-TOKEN")
			req.Header.Del("Authorization")
		}
		if next != nil {
			return next(req, via)
		}
		if len(via) >= maxRedirects {
			return errors.New(errors.FetchError, "too many redirects")
		}
		return nil
	}
}

// Fetch resolves spec to source text. Inline and script prefixes win over
// URL and path interpretation. Every failure is a fetch error.
func (f *Fetcher) Fetch(ctx context.Context, spec string) (*Source, error) {
	var src *Source
	switch {
	case strings.HasPrefix(spec, InlinePrefix):
		src = &Source{Text: FixupInline(strings.TrimPrefix(spec, InlinePrefix)), Name: "code.go", Origin: "inline"}
	case strings.HasPrefix(spec, ScriptPrefix):
		src = &Source{Text: strings.TrimPrefix(spec, ScriptPrefix), Name: "script.go", Origin: "inline", ScriptMode: true}
	case isHTTP(spec):
		text, err := f.FetchURL(ctx, spec)
		if err != nil {
			return nil, err
		}
		src = &Source{Text: text, Name: urlName(spec), Origin: spec}
	default:
		p := strings.TrimPrefix(spec, "file://")
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, errors.Wrap(errors.FetchError, "read "+p, err)
		}
		abs, _ := filepath.Abs(p)
		src = &Source{Text: string(data), Name: filepath.Base(p), Origin: abs}
	}
	src.References, src.Usings = ScanDirectives(src.Text)
	return src, nil
}

// FetchURL downloads a single file. Browser URLs of known code hosts are
// rewritten to their raw form first.
func (f *Fetcher) FetchURL(ctx context.Context, rawURL string) (string, error) {
	target := RewriteURL(rawURL)
	req, err := http.NewRequestWithContext(ctx, "GET", target, nil)
	if err != nil {
		return "", errors.Wrap(errors.FetchError, "create request", err)
	}
	req.Header.Set("User-Agent", "goexec-cli/1.0")
	f.authorize(req)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", errors.Wrap(errors.FetchError, "fetch "+target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", errors.Wrap(errors.FetchError, "fetch "+target, &httperrors.StatusError{URL: target, Code: resp.StatusCode})
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return "", errors.Wrap(errors.FetchError, "read response", err)
	}
	if int64(len(body)) > f.maxBody {
		return "", errors.Newf(errors.FetchError, "fetch %s: response larger than %d bytes", target, f.maxBody)
	}
	return string(body), nil
}

func (f *Fetcher) authorize(req *http.Request) {
	if f.tokens == nil {
		return
	}
	host := req.URL.Hostname()
	token, err := f.tokens.Token(host)
	if err != nil || token == "" {
		return
	}
	switch {
	case strings.Contains(host, "gitlab"):
		req.Header.Set("PRIVATE-TOKEN", token)
	default:
		req.Header.Set("Authorization", "token "+token)
	}
}

func isHTTP(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func urlName(s string) string {
	u, err := url.Parse(s)
	if err != nil {
		return "remote.go"
	}
	name := filepath.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "remote.go"
	}
	return name
}

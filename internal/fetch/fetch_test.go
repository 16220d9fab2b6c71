// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"goexec/cli/internal/errors"
)

func TestRewriteURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "github blob",
			in:   "https://github.com/acme/tools/blob/main/cmd/hello.go",
			want: "https://raw.githubusercontent.com/acme/tools/main/cmd/hello.go",
		},
		{
			name: "github tree",
			in:   "https://github.com/acme/tools/tree/v1.0.0/hello.go",
			want: "https://raw.githubusercontent.com/acme/tools/v1.0.0/hello.go",
		},
		{
			name: "gitlab blob",
			in:   "https://gitlab.com/acme/tools/-/blob/main/hello.go",
			want: "https://gitlab.com/acme/tools/-/raw/main/hello.go",
		},
		{
			name: "self-hosted gitlab",
			in:   "https://gitlab.example.org/acme/tools/-/blob/main/hello.go?ref_type=heads",
			want: "https://gitlab.example.org/acme/tools/-/raw/main/hello.go?ref_type=heads",
		},
		{
			name: "raw already",
			in:   "https://raw.githubusercontent.com/acme/tools/main/hello.go",
			want: "https://raw.githubusercontent.com/acme/tools/main/hello.go",
		},
		{
			name: "github repo root",
			in:   "https://github.com/acme/tools",
			want: "https://github.com/acme/tools",
		},
		{
			name: "other host",
			in:   "https://example.com/blob/x.go",
			want: "https://example.com/blob/x.go",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RewriteURL(tt.in); got != tt.want {
				t.Errorf("RewriteURL() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScanDirectives(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantRefs   []string
		wantUsings []string
	}{
		{
			name:       "all spellings",
			text:       "//r:mod:github.com/google/uuid\n// r: folder:lib\n//reference:a.go\n// reference: b.go\n//u:strings\n// u: static math\n//using:os\n// using: -fmt\nfmt.Println(1)\n",
			wantRefs:   []string{"mod:github.com/google/uuid", "folder:lib", "a.go", "b.go"},
			wantUsings: []string{"strings", "static math", "os", "-fmt"},
		},
		{
			name:     "stops at first code line",
			text:     "//r:a.go\nx := 1\n//r:b.go\n",
			wantRefs: []string{"a.go"},
		},
		{
			name:     "stops at blank line",
			text:     "//r:a.go\n\n//r:b.go\n",
			wantRefs: []string{"a.go"},
		},
		{
			name:     "plain comments are skipped",
			text:     "// hello\n//r:a.go\r\n",
			wantRefs: []string{"a.go"},
		},
		{
			name: "block comment is not scanned",
			text: "/*\n//r:a.go\n*/\n",
		},
		{
			name: "empty value ignored",
			text: "//r:\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			refs, usings := ScanDirectives(tt.text)
			if !reflect.DeepEqual(refs, tt.wantRefs) {
				t.Errorf("refs = %v, want %v", refs, tt.wantRefs)
			}
			if !reflect.DeepEqual(usings, tt.wantUsings) {
				t.Errorf("usings = %v, want %v", usings, tt.wantUsings)
			}
		})
	}
}

func TestFixupInline(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "trailing dump", in: "(1+1).Dump()", want: "dump((1+1))\n"},
		{name: "dump after statements", in: "x := 2\nx.Dump()", want: "x := 2\ndump(x)\n"},
		{name: "dump after semicolon", in: "x := 2; x.Dump()", want: "x := 2; dump(x)\n"},
		{name: "dump with terminator", in: "x.Dump();", want: "dump(x)\n"},
		{name: "call chain", in: `strings.ToUpper("a").Dump()`, want: "dump(strings.ToUpper(\"a\"))\n"},
		{name: "no dump", in: "fmt.Println(1+1)", want: "fmt.Println(1+1)\n"},
		{name: "dump inside braces untouched", in: "if true { x.Dump() }", want: "if true { x.Dump() }\n"},
		{name: "semicolon inside string", in: `s := "a;b"; s.Dump()`, want: "s := \"a;b\"; dump(s)\n"},
		{name: "comment before dump", in: "// note\nx.Dump()", want: "// note\ndump(x)\n"},
		{name: "empty", in: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FixupInline(tt.in); got != tt.want {
				t.Errorf("FixupInline() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFetchPrefixes(t *testing.T) {
	f := New()
	ctx := context.Background()

	src, err := f.Fetch(ctx, "code://u:static fmt\nPrintln(1+1).Dump()")
	if err != nil {
		t.Fatalf("Fetch(code:) error = %v", err)
	}
	if src.ScriptMode || !strings.HasSuffix(src.Text, "dump(Println(1+1))\n") {
		t.Errorf("Fetch(code:) = %+v", src)
	}
	if !reflect.DeepEqual(src.Usings, []string{"static fmt"}) {
		t.Errorf("Fetch(code:) usings = %v", src.Usings)
	}

	src, err = f.Fetch(ctx, "script:1+1")
	if err != nil {
		t.Fatalf("Fetch(script:) error = %v", err)
	}
	if !src.ScriptMode || src.Text != "1+1" {
		t.Errorf("Fetch(script:) = %+v", src)
	}
}

func TestFetchLocalFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "hello.go")
	if err := os.WriteFile(p, []byte("//r:mod:github.com/google/uuid\npackage main\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	f := New()
	src, err := f.Fetch(context.Background(), p)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if src.Name != "hello.go" || len(src.References) != 1 {
		t.Errorf("Fetch() = %+v", src)
	}
	if _, err := f.Fetch(context.Background(), "file://"+p); err != nil {
		t.Errorf("Fetch(file://) error = %v", err)
	}

	_, err = f.Fetch(context.Background(), filepath.Join(dir, "missing.go"))
	if !errors.Is(err, errors.FetchError) {
		t.Errorf("Fetch(missing) error = %v, want fetch error", err)
	}
}

type staticTokens map[string]string

func (s staticTokens) Token(host string) (string, error) { return s[host], nil }

func TestFetchURL(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		switch r.URL.Path {
		case "/ok.go":
			_, _ = w.Write([]byte("// u: strings\nfmt.Println(strings.ToUpper(\"hi\"))\n"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := New(WithHTTPClient(srv.Client()), WithTokens(staticTokens{"127.0.0.1": "secret"}))
	src, err := f.Fetch(context.Background(), srv.URL+"/ok.go")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if src.Name != "ok.go" || !reflect.DeepEqual(src.Usings, []string{"strings"}) {
		t.Errorf("Fetch() = %+v", src)
	}
	if gotAuth != "token secret" {
		t.Errorf("Authorization = %q, want token header", gotAuth)
	}

	_, err = f.Fetch(context.Background(), srv.URL+"/missing.go")
	if !errors.Is(err, errors.FetchError) || !strings.Contains(err.Error(), "404") {
		t.Errorf("Fetch(404) error = %v, want fetch error with status", err)
	}
}

func TestFetchURLBodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 16)))
	}))
	defer srv.Close()

	tests := []struct {
		limit   int64
		wantErr bool
	}{
		{limit: 16, wantErr: false},
		{limit: 15, wantErr: true},
	}
	for _, tt := range tests {
		f := New(WithHTTPClient(srv.Client()))
		f.maxBody = tt.limit
		text, err := f.FetchURL(context.Background(), srv.URL+"/big.go")
		if tt.wantErr {
			if !errors.Is(err, errors.FetchError) || !strings.Contains(err.Error(), "larger than") {
				t.Errorf("FetchURL() limit %d error = %v, want fetch error", tt.limit, err)
			}
			continue
		}
		if err != nil || len(text) != 16 {
			t.Errorf("FetchURL() limit %d = %d bytes, %v, want 16 bytes", tt.limit, len(text), err)
		}
	}
}

func TestRedirectDropsCredentials(t *testing.T) {
	var gotToken, gotAuth string
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken, gotAuth = r.Header.Get("PRIVATE-TOKEN"), r.Header.Get("Authorization")
		_, _ = w.Write([]byte("fmt.Println(1)\n"))
	})
	other := httptest.NewServer(final)
	defer other.Close()

	mux := http.NewServeMux()
	mux.Handle("/final.go", final)
	mux.HandleFunc("/same.go", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final.go", http.StatusFound)
	})
	mux.HandleFunc("/away.go", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, other.URL+"/final.go", http.StatusFound)
	})
	origin := httptest.NewServer(mux)
	defer origin.Close()

	tests := []struct {
		path     string
		wantKept bool
	}{
		{path: "/same.go", wantKept: true},
		{path: "/away.go", wantKept: false},
	}
	f := New(WithHTTPClient(origin.Client()))
	for _, tt := range tests {
		gotToken, gotAuth = "", ""
		req, err := http.NewRequestWithContext(context.Background(), "GET", origin.URL+tt.path, nil)
		if err != nil {
			t.Fatal(err)
		}
		req.Header.Set("PRIVATE-TOKEN", "secret")
		req.Header.Set("Authorization", "token secret")
		resp, err := f.client.Do(req)
		if err != nil {
			t.Fatalf("Do(%s) error = %v", tt.path, err)
		}
		resp.Body.Close()
		if kept := gotToken != "" || gotAuth != ""; kept != tt.wantKept {
			t.Errorf("%s: credentials kept = %v, want %v (PRIVATE-TOKEN %q, Authorization %q)", tt.path, kept, tt.wantKept, gotToken, gotAuth)
		}
	}
}

func TestNewDoesNotModifyClient(t *testing.T) {
	c := &http.Client{}
	New(WithHTTPClient(c))
	if c.CheckRedirect != nil {
		t.Error("New() changed the caller's client")
	}
}

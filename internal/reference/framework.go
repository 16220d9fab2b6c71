// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package reference

import (
	"bufio"
	"errors"
	"fmt"
	"go/version"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
)

// MinimumGoVersion is the oldest SDK a framework reference accepts.
const MinimumGoVersion = "go1.21"

// SDK is an installed Go toolchain.
type SDK struct {
	Version string
	Root    string
	GoBin   string
}

var frameworkBase = []string{
	"bytes", "context", "errors", "fmt", "io", "log", "math", "os",
	"slices", "maps", "sort", "strconv", "strings", "sync", "time",
}

// frameworks maps a framework name to the imports it brings into scope.
var frameworks = map[string][]string{
	"default": frameworkBase,
	"web": append(append([]string(nil), frameworkBase...),
		"encoding/json", "html/template", "net", "net/http", "net/http/httptest", "net/url"),
	"cli": append(append([]string(nil), frameworkBase...),
		"bufio", "flag", "os/exec", "os/signal", "path/filepath", "text/tabwriter"),
	"data": append(append([]string(nil), frameworkBase...),
		"database/sql", "encoding/csv", "encoding/json", "encoding/xml", "regexp", "unicode"),
}

// Frameworks lists the known framework names.
func Frameworks() []string {
	names := make([]string, 0, len(frameworks))
	for name := range frameworks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FrameworkImports returns the import set of a framework.
func FrameworkImports(name string) ([]string, bool) {
	imports, ok := frameworks[name]
	return imports, ok
}

// installedSDKs runs discovery once per process; the result, including a
// failure, is never re-queried.
var installedSDKs = sync.OnceValues(discoverSDKs)

// InstalledSDKs returns the Go SDKs found on this machine, newest first.
func InstalledSDKs() ([]SDK, error) { return installedSDKs() }

// SelectSDK picks the newest SDK at or above floor.
func SelectSDK(sdks []SDK, floor string) (SDK, bool) {
	var best SDK
	found := false
	for _, s := range sdks {
		if version.Compare(s.Version, floor) < 0 {
			continue
		}
		if !found || version.Compare(s.Version, best.Version) > 0 {
			best, found = s, true
		}
	}
	return best, found
}

func discoverSDKs() ([]SDK, error) {
	var roots []string
	if goBin, err := exec.LookPath("go"); err == nil {
		if out, err := exec.Command(goBin, "env", "GOROOT").Output(); err == nil {
			roots = append(roots, strings.TrimSpace(string(out)))
		}
	}
	if env := os.Getenv("GOROOT"); env != "" {
		roots = append(roots, env)
	}
	roots = append(roots, filepath.SplitList(os.Getenv("GOEXEC_SDK_ROOTS"))...)
	if home, err := os.UserHomeDir(); err == nil {
		matches, _ := filepath.Glob(filepath.Join(home, "sdk", "go*"))
		roots = append(roots, matches...)
	}

	var sdks []SDK
	seen := map[string]bool{}
	for _, root := range roots {
		if root == "" {
			continue
		}
		root = filepath.Clean(root)
		if seen[root] {
			continue
		}
		seen[root] = true
		if sdk, err := inspectSDK(root); err == nil {
			sdks = append(sdks, sdk)
		}
	}
	if len(sdks) == 0 {
		return nil, errors.New("no Go SDK found on PATH, GOROOT, GOEXEC_SDK_ROOTS or ~/sdk")
	}
	sort.Slice(sdks, func(i, j int) bool { return version.Compare(sdks[i].Version, sdks[j].Version) > 0 })
	return sdks, nil
}

// inspectSDK reads GOROOT/VERSION; development toolchains without a release
// version are skipped.
func inspectSDK(root string) (SDK, error) {
	f, err := os.Open(filepath.Join(root, "VERSION"))
	if err != nil {
		return SDK{}, err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		return SDK{}, fmt.Errorf("%s: empty VERSION file", root)
	}
	v := strings.TrimSpace(sc.Text())
	if !version.IsValid(v) {
		return SDK{}, fmt.Errorf("%s: unrecognised version %q", root, v)
	}
	bin := filepath.Join(root, "bin", "go")
	if runtime.GOOS == "windows" {
		bin += ".exe"
	}
	if _, err := os.Stat(bin); err != nil {
		return SDK{}, err
	}
	return SDK{Version: v, Root: root, GoBin: bin}, nil
}

func newer(a, b string) bool {
	return version.Compare(a, b) > 0
}

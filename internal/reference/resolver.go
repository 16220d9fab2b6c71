// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package reference

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"goexec/cli/internal/errors"
	"goexec/cli/internal/modclient"
	"goexec/cli/internal/project"

	"github.com/pterm/pterm"
	"golang.org/x/mod/module"
	"golang.org/x/mod/semver"
	"golang.org/x/sync/errgroup"
)

// PackageClient is the module resolution backend.
type PackageClient interface {
	Download(ctx context.Context, path, query string) (*modclient.Module, error)
	Requirements(ctx context.Context, path, version string) ([]module.Version, error)
}

// RemoteFetcher downloads a single source file by URL.
type RemoteFetcher interface {
	FetchURL(ctx context.Context, rawURL string) (string, error)
}

// Resolver dispatches specifiers to per-kind strategies.
type Resolver struct {
	packages PackageClient
	remote   RemoteFetcher
	sdks     func() ([]SDK, error)
	cache    *Cache
	modules  *Cache
	logger   *pterm.Logger
	limit    int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCache replaces the process-wide cache.
func WithCache(c *Cache) Option { return func(r *Resolver) { r.cache = c } }

// WithRemote sets the fetcher used for URL references.
func WithRemote(f RemoteFetcher) Option { return func(r *Resolver) { r.remote = f } }

// WithSDKs replaces SDK discovery.
func WithSDKs(fn func() ([]SDK, error)) Option { return func(r *Resolver) { r.sdks = fn } }

// WithLogger sets the debug logger.
func WithLogger(l *pterm.Logger) Option { return func(r *Resolver) { r.logger = l } }

// New returns a resolver backed by client.
func New(client PackageClient, opts ...Option) *Resolver {
	r := &Resolver{
		packages: client,
		sdks:     InstalledSDKs,
		cache:    DefaultCache(),
		modules:  NewCache(),
		logger:   pterm.DefaultLogger.WithLevel(pterm.LogLevelWarn),
		limit:    8,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve resolves every specifier. Strategies run concurrently and a failing
// specifier does not stop its siblings: the references that did resolve are
// returned together with an error describing every failure.
//
// With allowCache false each key is resolved again and the fresh result
// replaces the cached one.
func (r *Resolver) Resolve(ctx context.Context, specs []string, allowCache bool) ([]Reference, error) {
	var failures []error
	parsed := make([]Specifier, 0, len(specs))
	for _, raw := range specs {
		s, err := Parse(raw)
		if err != nil {
			failures = append(failures, err)
			continue
		}
		parsed = append(parsed, s)
	}

	results := make([][]Reference, len(parsed))
	errs := make([]error, len(parsed))
	var g errgroup.Group
	g.SetLimit(r.limit)
	for i, s := range parsed {
		g.Go(func() error {
			refs, err := r.resolveCached(ctx, s, allowCache, nil)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", s.Raw, err)
				return nil
			}
			results[i] = refs
			return nil
		})
	}
	_ = g.Wait()

	var all []Reference
	for i := range parsed {
		if errs[i] != nil {
			failures = append(failures, errs[i])
			continue
		}
		all = append(all, results[i]...)
	}
	all = Dedupe(all)
	if len(failures) > 0 {
		msg := fmt.Sprintf("%d of %d references failed to resolve", len(failures), len(specs))
		return all, errors.Wrap(errors.ResolutionError, msg, stderrors.Join(failures...))
	}
	return all, nil
}

func (r *Resolver) resolveCached(ctx context.Context, s Specifier, allowCache bool, chain []string) ([]Reference, error) {
	key := s.Key()
	if !allowCache {
		r.cache.Forget(key)
	}
	refs, shared, err := r.cache.Do(key, func() ([]Reference, error) {
		r.logger.Debug("resolving reference", r.logger.Args("key", key))
		return r.resolveSpec(ctx, s, allowCache, chain)
	})
	if err == nil && shared {
		r.logger.Trace("reference cache hit", r.logger.Args("key", key))
	}
	return refs, err
}

func (r *Resolver) resolveSpec(ctx context.Context, s Specifier, allowCache bool, chain []string) ([]Reference, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch s.Kind {
	case KindModule:
		return r.resolveModule(ctx, s, allowCache)
	case KindFile:
		return resolveFile(s)
	case KindFolder:
		return resolveFolder(s)
	case KindURL:
		return r.resolveRemote(ctx, s)
	case KindProject:
		return r.resolveProject(ctx, s, allowCache, chain)
	case KindFramework:
		return r.resolveFramework(s)
	}
	return nil, NewParseError(s.Raw, "unknown reference kind", "")
}

// resolveModule downloads the requested module and walks its requirement
// graph, keeping the highest version seen for every module path.
func (r *Resolver) resolveModule(ctx context.Context, s Specifier, allowCache bool) ([]Reference, error) {
	if r.packages == nil {
		return nil, fmt.Errorf("module %s: no package client configured", s.Path)
	}
	query := s.Version
	if query == "" {
		query = "latest"
	}
	dlKey := "download:" + s.Path + "@" + query
	if !allowCache {
		r.modules.Forget(dlKey)
	}
	rootRefs, _, err := r.modules.Do(dlKey, func() ([]Reference, error) {
		m, err := r.packages.Download(ctx, s.Path, query)
		if err != nil {
			return nil, err
		}
		return []Reference{{
			Origin:   s.Key(),
			Artifact: ArtifactModule,
			Path:     m.Path,
			Version:  m.Version,
			Dir:      m.Dir,
			Sum:      m.Sum,
			GoModSum: m.GoModSum,
			Direct:   true,
		}}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("module %s: %w", s.Path, err)
	}
	root := rootRefs[0]

	selected := map[string]string{root.Path: root.Version}
	visited := map[module.Version]bool{}
	queue := []module.Version{{Path: root.Path, Version: root.Version}}
	for len(queue) > 0 {
		mv := queue[0]
		queue = queue[1:]
		if visited[mv] {
			continue
		}
		visited[mv] = true
		reqs, err := r.requirements(ctx, mv)
		if err != nil {
			return nil, fmt.Errorf("module %s: requirements of %s@%s: %w", s.Path, mv.Path, mv.Version, err)
		}
		for _, req := range reqs {
			if cur, ok := selected[req.Path]; !ok || semver.Compare(req.Version, cur) > 0 {
				selected[req.Path] = req.Version
			}
			queue = append(queue, req)
		}
	}

	refs := []Reference{root}
	for p, v := range selected {
		if p == root.Path {
			continue
		}
		refs = append(refs, Reference{Origin: s.Key(), Artifact: ArtifactModule, Path: p, Version: v})
	}
	return refs, nil
}

func (r *Resolver) requirements(ctx context.Context, mv module.Version) ([]module.Version, error) {
	key := "requirements:" + mv.Path + "@" + mv.Version
	refs, _, err := r.modules.Do(key, func() ([]Reference, error) {
		reqs, err := r.packages.Requirements(ctx, mv.Path, mv.Version)
		if err != nil {
			return nil, err
		}
		out := make([]Reference, 0, len(reqs))
		for _, req := range reqs {
			out = append(out, Reference{Artifact: ArtifactModule, Path: req.Path, Version: req.Version})
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]module.Version, 0, len(refs))
	for _, ref := range refs {
		out = append(out, module.Version{Path: ref.Path, Version: ref.Version})
	}
	return out, nil
}

func resolveFile(s Specifier) ([]Reference, error) {
	fi, err := os.Stat(s.Path)
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return nil, NewParseError(s.Raw, "path is a directory", "use folder:"+s.Path)
	}
	if filepath.Ext(s.Path) != ".go" {
		return nil, NewParseError(s.Raw, "not a Go source file", "references must be .go files")
	}
	return []Reference{{Origin: s.Key(), Artifact: ArtifactSource, Path: s.Path}}, nil
}

// resolveFolder lists Go sources directly inside the folder. Test files are
// skipped and an empty folder resolves to nothing.
func resolveFolder(s Specifier) ([]Reference, error) {
	entries, err := os.ReadDir(s.Path)
	if err != nil {
		return nil, err
	}
	refs := []Reference{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".go" || strings.HasSuffix(name, "_test.go") {
			continue
		}
		refs = append(refs, Reference{Origin: s.Key(), Artifact: ArtifactSource, Path: filepath.Join(s.Path, name)})
	}
	return refs, nil
}

func (r *Resolver) resolveRemote(ctx context.Context, s Specifier) ([]Reference, error) {
	if r.remote == nil {
		return nil, NewParseError(s.Raw, "remote references are not enabled", "download the file and use file:")
	}
	if path.Ext(strings.SplitN(s.Path, "?", 2)[0]) != ".go" {
		return nil, NewParseError(s.Raw, "not a Go source file", "references must be .go files")
	}
	text, err := r.remote.FetchURL(ctx, s.Path)
	if err != nil {
		return nil, err
	}
	return []Reference{{Origin: s.Key(), Artifact: ArtifactSource, Path: s.Path, Content: []byte(text)}}, nil
}

// resolveProject folds a descriptor's declarations into specifiers and
// resolves them. Nested projects are resolved without the single-flight
// cache so a project chain never waits on itself; the chain check rejects
// cycles before any work is done.
func (r *Resolver) resolveProject(ctx context.Context, s Specifier, allowCache bool, chain []string) ([]Reference, error) {
	file, err := project.Locate(s.Path)
	if err != nil {
		return nil, err
	}
	if err := project.CheckChain(chain, file); err != nil {
		return nil, err
	}
	d, err := project.Load(file)
	if err != nil {
		return nil, err
	}
	chain = append(chain[:len(chain):len(chain)], file)

	var refs []Reference
	if d.Format == project.FormatGoMod {
		refs = append(refs, Reference{Origin: s.Key(), Artifact: ArtifactLocalModule, Path: d.Module, Dir: d.Dir()})
	}
	specs := append(d.PackageSpecifiers(), d.ReferenceSpecifiers()...)
	for _, p := range d.ProjectPaths() {
		specs = append(specs, "project:"+p)
	}

	var failures []error
	for _, raw := range specs {
		ns, err := Parse(raw)
		if err != nil {
			failures = append(failures, err)
			continue
		}
		var nested []Reference
		if ns.Kind == KindProject {
			nested, err = r.resolveSpec(ctx, ns, allowCache, chain)
		} else {
			nested, err = r.resolveCached(ctx, ns, allowCache, chain)
		}
		if err != nil {
			var cycle *project.CycleError
			if stderrors.As(err, &cycle) {
				return nil, err
			}
			failures = append(failures, fmt.Errorf("%s: %w", raw, err))
			continue
		}
		refs = append(refs, nested...)
	}
	if len(failures) > 0 {
		return nil, fmt.Errorf("project %s: %w", file, stderrors.Join(failures...))
	}
	return refs, nil
}

func (r *Resolver) resolveFramework(s Specifier) ([]Reference, error) {
	imports, ok := FrameworkImports(s.Path)
	if !ok {
		return nil, NewParseError(s.Raw, "unknown framework "+s.Path, "known frameworks: "+strings.Join(Frameworks(), ", "))
	}
	sdks, err := r.sdks()
	if err != nil {
		return nil, err
	}
	sdk, ok := SelectSDK(sdks, MinimumGoVersion)
	if !ok {
		found := make([]string, 0, len(sdks))
		for _, s := range sdks {
			found = append(found, s.Version)
		}
		return nil, fmt.Errorf("unsupported framework %s: no installed Go SDK satisfies %s (found %s)",
			s.Path, MinimumGoVersion, strings.Join(found, ", "))
	}
	return []Reference{{
		Origin:    s.Key(),
		Artifact:  ArtifactFramework,
		Path:      s.Path,
		Dir:       sdk.Root,
		Imports:   imports,
		GoVersion: sdk.Version,
		GoBin:     sdk.GoBin,
	}}, nil
}

// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"goexec/cli/internal/compiler"
	"goexec/cli/internal/config"
	"goexec/cli/internal/executor"
	"goexec/cli/internal/fetch"
	"goexec/cli/internal/keychain"
	"goexec/cli/internal/logging"
	"goexec/cli/internal/modclient"
	"goexec/cli/internal/model"
	"goexec/cli/internal/pipeline"
	"goexec/cli/internal/reference"
	"goexec/cli/internal/terminal"
)

// runFlags are the request flags shared by the root and repl commands.
type runFlags struct {
	references  []string
	usings      []string
	compiler    string
	executor    string
	langVersion string
	entry       string
	project     string
	profile     string
	dockerImage string
	debug       bool
	noCache     bool
	verbose     bool
}

func (f *runFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringArrayVarP(&f.references, "reference", "r", nil, "Add a reference: mod:<module>[,<version>], folder:<dir>, project:<path>, framework:<name>, a .go file or URL (repeatable)")
	fs.StringArrayVarP(&f.usings, "using", "u", nil, "Add a global import: path, 'alias path', '. path', '_ path' or -path to remove (repeatable)")
	fs.StringVar(&f.compiler, "compiler", "", "Compiler: simple, workspace or advanced (default advanced)")
	fs.StringVar(&f.executor, "executor", "", "Executor: process or docker (default process)")
	fs.StringVar(&f.langVersion, "lang-version", "", "Go language version written to the unit's go.mod, e.g. 1.22")
	fs.StringVar(&f.entry, "entry", "", "Entry point to run: a function name or Type.Method")
	fs.StringVar(&f.project, "project", "", "Project descriptor (snippet YAML or go.mod) whose packages and imports are added")
	fs.StringVar(&f.profile, "profile", "", "Load defaults from a saved profile")
	fs.StringVar(&f.dockerImage, "docker-image", "", "Image used by the docker executor")
	fs.BoolVar(&f.debug, "debug", false, "Build without optimizations and keep the build directory")
	fs.BoolVar(&f.noCache, "no-cache", false, "Resolve references again instead of using cached results")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "Enable verbose debug output")
}

// request builds a request for script, layered over the selected profile.
func (f *runFlags) request(script string, args []string) (model.Request, error) {
	if f.verbose || f.debug {
		logging.SetVerbose(true)
	}
	req := model.Request{
		Script:      script,
		References:  model.Union(nil, f.references...),
		Usings:      model.Union(nil, f.usings...),
		Compiler:    f.compiler,
		Executor:    f.executor,
		LangVersion: f.langVersion,
		Entry:       f.entry,
		Debug:       f.debug,
		NoCache:     f.noCache,
		Project:     f.project,
		Args:        args,
		DockerImage: f.dockerImage,
	}
	if f.profile != "" {
		store, err := config.DefaultStore()
		if err != nil {
			return req, err
		}
		p, err := store.Get(f.profile)
		if err != nil {
			return req, err
		}
		req = p.Apply(req)
	}
	return req, nil
}

// programArgs drops the "--" separating the script from its arguments.
func programArgs(args []string) []string {
	if len(args) > 0 && args[0] == "--" {
		return args[1:]
	}
	return args
}

func newFetcher() *fetch.Fetcher {
	return fetch.New(fetch.WithTokens(keychain.TokenSource{}))
}

func newResolver(f *fetch.Fetcher) *reference.Resolver {
	return reference.New(modclient.New(""),
		reference.WithRemote(f),
		reference.WithLogger(logging.Logger()),
	)
}

func newCompiler(kind string) (compiler.Compiler, error) {
	return compiler.New(kind, compiler.WithLogger(logging.Logger()))
}

func newExecutor(req model.Request) (pipeline.Executor, error) {
	opts := []executor.Option{executor.WithLogger(logging.Logger())}
	if img := strings.TrimSpace(req.DockerImage); img != "" {
		opts = append(opts, executor.WithImage(img))
	}
	e, err := executor.New(req.Executor, opts...)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// interactive reports whether stderr is a terminal, which decides whether
// spinners are drawn.
func interactive() bool {
	return terminal.IsTerminal(os.Stderr) && os.Getenv("CI") == ""
}

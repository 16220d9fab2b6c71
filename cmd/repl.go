// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"goexec/cli/internal/errors"
	"goexec/cli/internal/logging"
	"goexec/cli/internal/project"
	"goexec/cli/internal/repl"
)

var (
	replFlags runFlags
	preload   []string
)

// replCmd opens an interactive session.
var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive Go session",
	Long: `The repl command starts an interactive session. Each input is compiled
together with every input accepted before it, so declarations stay visible
to later inputs. Inputs that fail to compile or run are not kept.

Lines starting with # are commands; type #help for the list. An input ending
in "." lists the members of the expression before it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := replFlags.request("", nil)
		if err != nil {
			return err
		}
		req = req.WithDefaults()
		if req.Project != "" {
			enr, err := project.Enrich(req.Project)
			if err != nil {
				return errors.Wrap(errors.ResolutionError, "project "+req.Project, err)
			}
			enr.Apply(&req)
		}
		comp, err := newCompiler(req.Compiler)
		if err != nil {
			return err
		}
		exec, err := newExecutor(req)
		if err != nil {
			return err
		}
		fetcher := newFetcher()

		stop := func() {}
		if interactive() && !logging.Verbose() {
			stop = startInlineSpinner(os.Stderr, "starting session", spinnerFrames, 120*time.Millisecond)
		}
		session, err := repl.NewSession(cmd.Context(), repl.Config{
			Request:  req,
			Fetcher:  fetcher,
			Resolver: newResolver(fetcher),
			Compiler: comp,
			Executor: exec,
			Logger:   logging.Logger(),
		})
		stop()
		if err != nil {
			return err
		}

		// From here Ctrl+C cancels the running evaluation only; the loop keeps going.
		ctx, cancel := signal.NotifyContext(context.WithoutCancel(cmd.Context()), syscall.SIGTERM)
		defer cancel()

		term := repl.NewTerminal(session)
		defer term.Close()
		loop := repl.New(session, term, os.Stdout)
		loop.Banner(Version)
		loop.Preload(ctx, preload)
		return loop.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(replCmd)
	replFlags.bind(replCmd)
	replCmd.Flags().StringArrayVar(&preload, "preload", nil, "Load a file, URL or code:<text> into the session before the prompt (repeatable)")
}

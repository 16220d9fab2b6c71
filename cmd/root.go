// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface for goexec. The root
// command compiles and runs a Go snippet, file or URL; subcommands open an
// interactive session and manage profiles, code-host tokens and the build
// cache. Commands are built with Cobra and print through pterm.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"goexec/cli/internal/errors"
	"goexec/cli/internal/logging"
	"goexec/cli/internal/pipeline"
)

var (
	rootFlags   runFlags
	showTimings bool
)

// rootCmd compiles and runs a single script.
var rootCmd = &cobra.Command{
	Use:   "goexec [flags] <script> [-- args...]",
	Short: "Compile and run Go snippets, files and URLs",
	Long: `goexec compiles a Go snippet into a throwaway module and runs it.

The script is a path to a .go file, an http(s) URL (GitHub and GitLab blob
links are rewritten to raw content), "code:<source>" for an inline snippet
or "script:<expression>" for an expression whose value is printed.

References add packages, local folders, project descriptors or framework
import sets; usings add global imports. Both may also be declared inside the
source with "//r:<reference>" and "//u:<import>" comment lines at the top.

Everything after the script (or after "--") is passed to the program.`,
	Example: `  goexec hello.go
  goexec 'code:fmt.Println(strings.ToUpper("hi"))' -u strings
  goexec -r mod:github.com/google/uuid 'script:uuid.NewString()' -u github.com/google/uuid
  goexec https://github.com/user/repo/blob/main/tool.go -- --flag value`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		req, err := rootFlags.request(args[0], programArgs(args[1:]))
		if err != nil {
			return err
		}

		ui := newProgressUI(os.Stderr, interactive() && !logging.Verbose())
		defer ui.stopSpinner()

		fetcher := newFetcher()
		orch := pipeline.New(fetcher, newResolver(fetcher), newCompiler, newExecutor,
			pipeline.WithNotifier(ui.handle),
			pipeline.WithLogger(logging.Logger()),
		)
		rep, err := orch.Run(cmd.Context(), req)
		ui.stopSpinner()
		if showTimings && rep != nil {
			renderTimings(os.Stderr, rep)
		}
		return err
	},
}

// Execute runs the CLI and exits with the status the failure maps to.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}
	if errors.KindOf(err) != "" {
		logging.Present(os.Stderr, err)
		os.Exit(pipeline.ExitCode(err))
	}
	fmt.Fprintln(os.Stderr, logging.Mask(err.Error()))
	os.Exit(1)
}

func init() {
	rootCmd.Flags().SetInterspersed(false)
	rootFlags.bind(rootCmd)
	rootCmd.Flags().BoolVar(&showTimings, "timings", false, "Print how long each stage took")
}

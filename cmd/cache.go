// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"goexec/cli/internal/compiler"
)

var cacheOlderThan time.Duration

// cacheCmd groups the build cache subcommands.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the build unit cache",
}

var cacheCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove build units left by --debug runs or interrupted builds",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := compiler.UnitsDir()
		if err != nil {
			return err
		}
		n, err := compiler.Prune(dir, cacheOlderThan)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d build unit(s) from %s\n", n, dir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheCleanCmd)
	cacheCleanCmd.Flags().DurationVar(&cacheOlderThan, "older-than", 0, "Only remove units last modified before this long ago, e.g. 24h")
}

// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"goexec/cli/internal/config"
)

var profileFlags runFlags

// profileCmd groups the profile subcommands.
var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage saved run profiles",
	Long: `Profiles are named sets of defaults (references, usings, compiler,
executor, language version, entry point, debug) stored as JSON in the user
config directory. Select one with --profile; explicit flags win.`,
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := config.DefaultStore()
		if err != nil {
			return err
		}
		names, err := store.List()
		if err != nil {
			return err
		}
		if len(names) == 0 {
			pterm.Fprintln(cmd.OutOrStdout(), pterm.Gray("no profiles"))
			return nil
		}
		for _, n := range names {
			fmt.Fprintln(cmd.OutOrStdout(), n)
		}
		return nil
	},
}

var profileGetCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Print a profile as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := config.DefaultStore()
		if err != nil {
			return err
		}
		p, err := store.Get(args[0])
		if err != nil {
			return err
		}
		b, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return nil
	},
}

var profileSetCmd = &cobra.Command{
	Use:   "set <name> [flags]",
	Short: "Save the given flags as a profile",
	Example: `  goexec profile set web -r framework:web -u net/http --lang-version 1.22
  goexec --profile web server.go`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		profileFlags.profile = ""
		req, err := profileFlags.request("", nil)
		if err != nil {
			return err
		}
		store, err := config.DefaultStore()
		if err != nil {
			return err
		}
		if err := store.Set(args[0], config.FromRequest(req)); err != nil {
			return err
		}
		pterm.Fprintln(cmd.OutOrStdout(), pterm.Green("saved profile "+args[0]))
		return nil
	},
}

var profileDeleteCmd = &cobra.Command{
	Use:     "delete <name>",
	Aliases: []string{"rm"},
	Short:   "Delete a profile",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := config.DefaultStore()
		if err != nil {
			return err
		}
		if err := store.Delete(args[0]); err != nil {
			return err
		}
		pterm.Fprintln(cmd.OutOrStdout(), "deleted profile "+args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileListCmd, profileGetCmd, profileSetCmd, profileDeleteCmd)
	profileFlags.bind(profileSetCmd)
}

// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"goexec/cli/internal/keychain"
	"goexec/cli/internal/terminal"
)

// tokenCmd groups the code-host token subcommands.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage code-host tokens for private source URLs",
	Long: `Tokens are sent when fetching sources from a host, for example private
GitHub or GitLab files. They are stored in the OS keychain. GITHUB_TOKEN and
GITLAB_TOKEN take precedence when set.`,
}

var tokenSetCmd = &cobra.Command{
	Use:     "set <host>",
	Short:   "Store a token for a host",
	Example: "  goexec token set github.com",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		host := strings.ToLower(strings.TrimSpace(args[0]))
		promptText := fmt.Sprintf("Enter token for %s: ", host)
		fmt.Print(promptText)
		var token string
		if terminal.IsTerminal(os.Stdin) {
			b, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Println()
			if err != nil {
				return err
			}
			token = string(b)
		} else {
			line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
			token = line
		}
		token = strings.TrimSpace(token)

		// Clear the prompt from terminal
		terminal.ClearPreviousLines(len(promptText))

		if token == "" {
			return errors.New("token is required")
		}
		km, err := keychain.GetManager()
		if err != nil {
			fmt.Println("❌ Secure storage is not available on this system.")
			return err
		}
		if err := km.SaveToken(host, token); err != nil {
			fmt.Println("❌ Failed to save the token securely.")
			return err
		}
		pterm.Println(pterm.Green("✅ Token saved for " + host))
		return nil
	},
}

var tokenClearCmd = &cobra.Command{
	Use:   "clear <host>",
	Short: "Remove the token for a host",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		km, err := keychain.GetManager()
		if err != nil {
			return err
		}
		if err := km.ClearToken(args[0]); err != nil {
			return err
		}
		fmt.Println("✅ Token removed for " + args[0])
		return nil
	},
}

var tokenListCmd = &cobra.Command{
	Use:   "list",
	Short: "List hosts with a stored token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		km, err := keychain.GetManager()
		if err != nil {
			return err
		}
		hosts, err := km.Hosts()
		if err != nil {
			return err
		}
		if len(hosts) == 0 {
			pterm.Println(pterm.Gray("no stored tokens"))
			return nil
		}
		for _, h := range hosts {
			fmt.Println(h)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenSetCmd, tokenClearCmd, tokenListCmd)
}

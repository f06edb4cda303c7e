// Copyright (c) 2025 AskDB
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"askdb/cli/internal/config"
)

var (
	envFile  string
	envAll   bool
	envLimit int
)

// envCmd prints environment variables with secrets masked.
var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Show environment variables with secrets masked",
	Long: `The env command lists the variables of a dotenv file, or of the active environment
when the file is missing or empty. Without --all the active environment is filtered to
names that look like secrets. Values of likely secrets are always masked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, total, origin := config.EnvListing(envFile, envAll, envLimit)
		pterm.Println("Source: " + origin)
		if total == 0 {
			pterm.Println("No variables to show.")
			return nil
		}

		rows := make([][]string, len(entries))
		for i, e := range entries {
			rows[i] = []string{e.Key, e.Value}
		}
		if err := printTable([]string{"Variable", "Value"}, rows); err != nil {
			return err
		}
		if len(entries) < total {
			pterm.Println(fmt.Sprintf("showing %d of %d variables; raise --limit to see more", len(entries), total))
		}
		return nil
	},
}

func init() {
	envCmd.Flags().StringVar(&envFile, "file", ".env", "Dotenv file to list")
	envCmd.Flags().BoolVar(&envAll, "all", false, "List the whole active environment")
	envCmd.Flags().IntVar(&envLimit, "limit", 100, "Maximum number of variables to show (0 for no limit)")
	rootCmd.AddCommand(envCmd)
}

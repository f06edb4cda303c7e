// Copyright (c) 2025 AskDB
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"errors"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"askdb/cli/internal/config"
	"askdb/cli/internal/keychain"
	"askdb/cli/internal/logging"
)

var connectionsCmd = &cobra.Command{
	Use:     "connections",
	Aliases: []string{"conn"},
	Short:   "Manage saved and recent connections",
}

var connectionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved connections",
	RunE: func(cmd *cobra.Command, args []string) error {
		conns, err := app.store.Connections()
		if err != nil {
			return err
		}
		if len(conns) == 0 {
			pterm.Println("No saved connections. Run: askdb connect --name <name>")
			return nil
		}
		return printTable([]string{"Name", "Type", "Target"}, connectionRows(conns, true))
	},
}

var connectionsRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List recently verified connections",
	RunE: func(cmd *cobra.Command, args []string) error {
		conns, err := app.store.Recents()
		if err != nil {
			return err
		}
		if len(conns) == 0 {
			pterm.Println("No recent connections.")
			return nil
		}
		return printTable([]string{"#", "Type", "Target"}, connectionRows(conns, false))
	},
}

var connectionsRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a saved connection and its stored password",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		removed, err := app.store.Delete(name)
		if err != nil {
			return err
		}
		if !removed {
			pterm.Warning.Printfln("No saved connection named %q", name)
			return nil
		}
		if app.keys != nil {
			if err := app.keys.Delete(keychain.DBPasswordKey(name)); err != nil && !errors.Is(err, keychain.ErrNotFound) {
				pterm.Warning.Println("Failed to remove the stored password: " + logging.Mask(err.Error()))
			}
		}
		pterm.Success.Printfln("Removed %q", name)
		return nil
	},
}

func connectionRows(conns []config.Connection, named bool) [][]string {
	rows := make([][]string, len(conns))
	for i, c := range conns {
		first := strconv.Itoa(i + 1)
		if named {
			first = c.SavedName
		}
		rows[i] = []string{first, c.Type, logging.Mask(c.Label())}
	}
	return rows
}

func init() {
	connectionsCmd.AddCommand(connectionsListCmd, connectionsRecentCmd, connectionsRemoveCmd)
	rootCmd.AddCommand(connectionsCmd)
}

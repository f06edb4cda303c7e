// Copyright (c) 2025 AskDB
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"askdb/cli/internal/config"
	apperrors "askdb/cli/internal/errors"
	"askdb/cli/internal/keychain"
)

// secretNames maps the names accepted by set-secret to keychain keys.
var secretNames = map[string]string{
	"openai":    keychain.KeyOpenAIAPIKey,
	"langsmith": keychain.KeyLangSmithAPIKey,
	"agent":     keychain.KeyAgentToken,
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show and change askdb settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		keys := config.Keys()
		rows := make([][]string, len(keys))
		for i, k := range keys {
			rows[i] = []string{k, app.settings.Get(k)}
		}
		if err := printTable([]string{"Setting", "Value"}, rows); err != nil {
			return err
		}

		names := sortedSecretNames()
		secrets := make([][]string, len(names))
		for i, name := range names {
			state := "not set"
			if app.keys == nil {
				state = "keychain unavailable"
			} else if v, err := app.keys.Get(secretNames[name]); err == nil && v != "" {
				state = "stored"
			}
			secrets[i] = []string{name, state}
		}
		pterm.Println()
		return printTable([]string{"Secret", "State"}, secrets)
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a setting",
	Long:  "Known keys: " + strings.Join(config.Keys(), ", "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.settings.Set(args[0], args[1]); err != nil {
			return err
		}
		pterm.Success.Printfln("%s = %s", args[0], app.settings.Get(args[0]))
		return nil
	},
}

var settingsSetSecretCmd = &cobra.Command{
	Use:   "set-secret <openai|langsmith|agent>",
	Short: "Store an API key or token in the OS keychain",
	Long: `The set-secret command reads a secret without echo and stores it in the OS keychain.
An empty value removes the stored secret.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, ok := secretNames[strings.ToLower(args[0])]
		if !ok {
			return apperrors.New(apperrors.Config,
				fmt.Sprintf("unknown secret %q; expected one of %s", args[0], strings.Join(sortedSecretNames(), ", ")))
		}
		if app.keys == nil {
			return apperrors.New(apperrors.Config, "secure storage is not available on this system")
		}
		value, err := promptSecret(args[0] + ": ")
		if err != nil {
			return err
		}
		if err := app.keys.Set(key, value); err != nil {
			return apperrors.Wrap(apperrors.Config, "cannot store secret", err)
		}
		if value == "" {
			pterm.Success.Printfln("Removed %s secret", args[0])
		} else {
			pterm.Success.Printfln("Stored %s secret in the OS keychain", args[0])
		}
		return nil
	},
}

var settingsPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the settings file path",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(app.settings.Path())
	},
}

func sortedSecretNames() []string {
	names := make([]string, 0, len(secretNames))
	for n := range secretNames {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd, settingsSetSecretCmd, settingsPathCmd)
	rootCmd.AddCommand(settingsCmd)
}

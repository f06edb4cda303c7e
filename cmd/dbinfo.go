// Copyright (c) 2025 AskDB
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"askdb/cli/internal/dsn"
	"askdb/cli/internal/logging"
)

// dbinfoCmd shows the resolved connection for the selected target.
// The password is masked.
var dbinfoCmd = &cobra.Command{
	Use:   "dbinfo",
	Short: "Show the resolved database connection",
	Long: `The dbinfo command resolves the selected target (flags, saved connection or
environment) into the canonical connection URL askdb would use and prints it with the
password masked, together with the pool options. It does not connect.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, source, err := resolveTarget()
		if err != nil {
			return err
		}
		url, err := dsn.Resolve(d)
		if err != nil {
			return err
		}

		pterm.Println("Using " + source)
		pterm.Println()
		pterm.DefaultBox.
			WithTitle(pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint("Database Connection")).
			WithPadding(1).
			Println(logging.Mask(url))
		pterm.Println()
		pterm.Println(formatPoolOptions(d.Pool))
		pterm.Println()
		pterm.Println("To save a connection, run: askdb connect --name <name>")
		return nil
	},
}

func init() {
	addTargetFlags(dbinfoCmd)
	rootCmd.AddCommand(dbinfoCmd)
}

func formatPoolOptions(o dsn.PoolOptions) string {
	recycle := "off"
	if o.RecycleSeconds >= 0 {
		recycle = fmt.Sprintf("%ds", o.RecycleSeconds)
	}
	lines := []string{
		fmt.Sprintf("pool size:      %d (+%d overflow)", o.MaxPoolSize, o.MaxOverflow),
		fmt.Sprintf("idle timeout:   %ds", o.IdleTimeoutSeconds),
		fmt.Sprintf("recycle:        %s", recycle),
		fmt.Sprintf("pre-ping:       %t", o.PreflightCheck),
	}
	if len(o.ExtraDriverArgs) > 0 {
		keys := make([]string, 0, len(o.ExtraDriverArgs))
		for k := range o.ExtraDriverArgs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, len(keys))
		for i, k := range keys {
			v := o.ExtraDriverArgs[k]
			if logging.IsLikelySecret(k) {
				v = logging.MaskValue(v)
			}
			pairs[i] = k + "=" + v
		}
		lines = append(lines, "driver args:    "+strings.Join(pairs, " "))
	}
	return strings.Join(lines, "\n")
}

// Copyright (c) 2025 AskDB
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"askdb/cli/internal/render"
	"askdb/cli/internal/sqlexec"
)

var queryJSON bool

// queryCmd runs one SQL statement and prints the result.
var queryCmd = &cobra.Command{
	Use:   "query <sql>",
	Short: "Run one SQL statement",
	Long: `The query command runs a single SQL statement against the selected database and
prints the rows as a table, or as JSON with --json. Failures in --json mode are reported
inside the payload.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sql := strings.Join(args, " ")

		p, _, _, err := openTarget(ctx)
		if err != nil {
			return err
		}
		exec := sqlexec.New(p, app.log)

		if queryJSON {
			out, err := exec.ExecuteJSON(ctx, sql)
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		}

		stop := render.StartSpinner(os.Stdout, "running query", 100*time.Millisecond)
		res, err := exec.Run(ctx, sql)
		stop()
		if err != nil {
			return err
		}
		fmt.Println(render.FormatResult(res, app.settings.Values().MaxResultRows))
		return nil
	},
}

func init() {
	addTargetFlags(queryCmd)
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "Print the result as JSON")
	rootCmd.AddCommand(queryCmd)
}

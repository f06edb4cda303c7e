// Copyright (c) 2025 AskDB
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"askdb/cli/internal/dsn"
	"askdb/cli/internal/sqlitedriver"
)

var (
	// Version holds the CLI version information.
	// This value is typically set at build time using -ldflags.
	Version = "0.0.0-dev"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		printVersion()
	},
}

func printVersion() {
	sqliteDriver := "mattn/go-sqlite3"
	if sqlitedriver.Pure {
		sqliteDriver = "modernc.org/sqlite"
	}
	fmt.Printf("askdb %s (%s %s/%s)\n", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	fmt.Printf("databases: %s (sqlite via %s)\n", strings.Join(dsn.SupportedKinds(), ", "), sqliteDriver)
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

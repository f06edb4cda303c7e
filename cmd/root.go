// Copyright (c) 2025 AskDB
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface for askdb: an interactive chat
// session that turns questions into SQL, one-shot queries, and commands to manage
// connections, settings and secrets. It uses the Cobra CLI framework.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"askdb/cli/internal/config"
	apperrors "askdb/cli/internal/errors"
	"askdb/cli/internal/keychain"
	"askdb/cli/internal/logging"
	"askdb/cli/internal/pool"
	"askdb/cli/internal/xdg"
)

var (
	showVersion bool
	logLevel    string
	logFile     string
)

// appContext holds the process-wide collaborators built before any command runs.
type appContext struct {
	fs       afero.Fs
	settings *config.Settings
	store    *config.Store
	keys     *keychain.Manager // nil when no OS keychain is available
	pools    *pool.Cache
	log      *zap.Logger
}

var app *appContext

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "askdb",
	Short: "Ask questions about your database in plain language",
	Long: `askdb turns natural-language questions into SQL with an AI agent, runs the SQL
against PostgreSQL, MySQL or SQLite, and shows the results as the agent works.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupApp,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			printVersion()
			return nil
		}
		return cmd.Help()
	},
}

// Execute runs the CLI application. Interrupts cancel the command's context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := execute(ctx, rootCmd); err != nil {
		fmt.Fprintln(os.Stderr, logging.PresentError("", err))
		stop()
		os.Exit(1)
	}
}

// execute runs cmd and releases the app's pools and logger whether or not it failed.
func execute(ctx context.Context, cmd *cobra.Command) error {
	err := cmd.ExecuteContext(ctx)
	teardownApp()
	return err
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Show version information")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default from settings)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", `Log file path, "-" for stderr (default: state dir askdb.log)`)
}

func setupApp(cmd *cobra.Command, args []string) error {
	fsys := afero.NewOsFs()
	loaded, err := config.LoadDotEnv(fsys)
	if err != nil {
		return err
	}

	dir, err := xdg.ConfigDir()
	if err != nil {
		return apperrors.Wrap(apperrors.Config, "cannot resolve config directory", err)
	}
	settings, err := config.LoadSettings(fsys, dir, nil)
	if err != nil {
		return err
	}

	level := logLevel
	if level == "" {
		level = settings.Values().LogLevel
	}
	log, err := logging.New(logging.Options{Level: level, File: logFile})
	if err != nil {
		return apperrors.Wrap(apperrors.Config, "cannot open log file", err)
	}
	settings.SetLogger(log)
	log.Debug("starting", zap.String("command", cmd.CommandPath()), zap.Strings("dotenv", loaded))

	keys, err := keychain.GetManager()
	if err != nil {
		log.Warn("keychain unavailable", zap.Error(err))
		keys = nil
	}

	app = &appContext{
		fs:       fsys,
		settings: settings,
		store:    config.NewStore(fsys, dir),
		keys:     keys,
		pools:    pool.NewCache(pool.WithLogger(log)),
		log:      log,
	}
	return nil
}

func teardownApp() {
	if app == nil {
		return
	}
	app.pools.Close()
	_ = app.log.Sync()
}

// Copyright (c) 2025 AskDB
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"askdb/cli/internal/config"
	"askdb/cli/internal/dsn"
	apperrors "askdb/cli/internal/errors"
	"askdb/cli/internal/keychain"
	"askdb/cli/internal/pool"
	"askdb/cli/internal/render"
)

// targetFlags select the database a command talks to.
type targetFlags struct {
	url        string
	kind       string
	host       string
	port       int
	database   string
	user       string
	connection string
	envPrefix  string
}

var target targetFlags

func addTargetFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&target.url, "url", "", "Connection URL (overrides every other target flag)")
	f.StringVar(&target.kind, "type", "", "Database type: postgres, mysql or sqlite")
	f.StringVar(&target.host, "host", "", "Database host")
	f.IntVar(&target.port, "port", 0, "Database port")
	f.StringVar(&target.database, "database", "", "Database name, or file path for sqlite")
	f.StringVar(&target.user, "user", "", "Database user")
	f.StringVarP(&target.connection, "connection", "c", "", "Saved connection name")
	f.StringVar(&target.envPrefix, "env-prefix", config.DefaultEnvPrefix, "Prefix of the environment variables describing the target")
}

// resolveTarget picks the target in order: --url or --type flags, --connection,
// then the environment. It returns the descriptor and a description of its source.
func resolveTarget() (dsn.Descriptor, string, error) {
	switch {
	case target.url != "":
		kind, ok := dsn.DetectKind(target.url)
		if target.kind != "" {
			k, err := dsn.ParseKind(target.kind)
			if err != nil {
				return dsn.Descriptor{}, "", err
			}
			kind, ok = k, true
		}
		if !ok {
			return dsn.Descriptor{}, "", apperrors.New(apperrors.InvalidTarget,
				"cannot tell the database type from the URL; pass --type")
		}
		return dsn.Descriptor{Kind: kind, RawOverride: target.url, Pool: dsn.DefaultPoolOptions()}, "--url", nil

	case target.kind != "":
		kind, err := dsn.ParseKind(target.kind)
		if err != nil {
			return dsn.Descriptor{}, "", err
		}
		return dsn.Descriptor{
			Kind:     kind,
			Host:     target.host,
			Port:     target.port,
			Database: target.database,
			User:     target.user,
			Password: os.Getenv(target.envPrefix + "PASSWORD"),
			Pool:     dsn.DefaultPoolOptions(),
		}, "flags", nil

	case target.connection != "":
		c, ok, err := app.store.Get(target.connection)
		if err != nil {
			return dsn.Descriptor{}, "", err
		}
		if !ok {
			return dsn.Descriptor{}, "", apperrors.New(apperrors.Config,
				fmt.Sprintf("no saved connection named %q; see 'askdb connections list'", target.connection))
		}
		password := ""
		if app.keys != nil {
			if pw, err := app.keys.LoadDBPassword(target.connection); err == nil {
				password = pw
			} else if !errors.Is(err, keychain.ErrNotFound) {
				app.log.Warn("cannot read connection password", zap.String("connection", target.connection), zap.Error(err))
			}
		}
		d, err := c.Descriptor(password)
		return d, "connection " + target.connection, err

	default:
		d, err := config.FromEnv(target.envPrefix)
		if err != nil {
			if apperrors.Is(err, apperrors.Config) {
				return dsn.Descriptor{}, "", apperrors.New(apperrors.Config,
					"no database selected: pass --url, --type, --connection, or set "+target.envPrefix+"TYPE")
			}
			return dsn.Descriptor{}, "", err
		}
		return d, "environment (" + target.envPrefix + "*)", nil
	}
}

// openTarget resolves the target, obtains its pool from the cache and verifies it
// with SELECT 1 while a spinner runs.
func openTarget(ctx context.Context) (pool.Pool, dsn.Descriptor, string, error) {
	d, source, err := resolveTarget()
	if err != nil {
		return nil, d, source, err
	}

	stop := render.StartSpinner(os.Stdout, "connecting to "+string(d.Kind), 100*time.Millisecond)
	p, err := app.pools.Open(ctx, d)
	if err == nil {
		verifyCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err = pool.QuickTest(verifyCtx, p)
		cancel()
	}
	stop()
	if err != nil {
		return nil, d, source, err
	}
	app.log.Info("database ready", zap.String("kind", string(d.Kind)), zap.String("source", source))
	return p, d, source, nil
}

// Copyright (c) 2025 AskDB
// Licensed under the MIT License. See LICENSE file in the project root for details.

package config

import (
	"errors"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"

	"askdb/cli/internal/dsn"
	apperrors "askdb/cli/internal/errors"
	"askdb/cli/internal/logging"
)

// DefaultEnvPrefix prefixes the database target variables, e.g. DB_TYPE.
const DefaultEnvPrefix = "DB_"

// LoadDotEnv loads .env and then .env.local from the working directory of fsys;
// values in .env.local override, values in .env never replace variables that are
// already set. Missing files are skipped. It returns the files loaded.
func LoadDotEnv(fsys afero.Fs) ([]string, error) {
	var loaded []string
	for _, f := range []struct {
		name     string
		override bool
	}{{".env", false}, {".env.local", true}} {
		ok, err := loadEnvFile(fsys, f.name, f.override)
		if err != nil {
			return loaded, apperrors.Wrap(apperrors.Config, "cannot load "+f.name, err)
		}
		if ok {
			loaded = append(loaded, f.name)
		}
	}
	return loaded, nil
}

func loadEnvFile(fsys afero.Fs, name string, override bool) (bool, error) {
	file, err := fsys.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer file.Close()

	vars, err := godotenv.Parse(file)
	if err != nil {
		return false, err
	}
	for k, v := range vars {
		if _, set := os.LookupEnv(k); set && !override {
			continue
		}
		if err := os.Setenv(k, v); err != nil {
			return false, err
		}
	}
	return true, nil
}

// FromEnv builds a target descriptor from prefixed environment variables: TYPE,
// HOST, PORT, NAME, USER, PASSWORD, URL, POOL_SIZE, MAX_OVERFLOW, POOL_TIMEOUT and
// POOL_RECYCLE. Integers that do not parse fall back to their defaults.
func FromEnv(prefix string) (dsn.Descriptor, error) {
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}
	getenv := func(key string) string { return os.Getenv(prefix + key) }
	getenvInt := func(key string, def int) int {
		raw, ok := os.LookupEnv(prefix + key)
		if !ok {
			return def
		}
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return def
		}
		return n
	}

	typ := strings.TrimSpace(getenv("TYPE"))
	if typ == "" {
		return dsn.Descriptor{}, apperrors.New(apperrors.Config, prefix+"TYPE is not set")
	}
	kind, err := dsn.ParseKind(typ)
	if err != nil {
		return dsn.Descriptor{}, err
	}

	pool := dsn.DefaultPoolOptions()
	pool.MaxPoolSize = getenvInt("POOL_SIZE", pool.MaxPoolSize)
	pool.MaxOverflow = getenvInt("MAX_OVERFLOW", pool.MaxOverflow)
	pool.IdleTimeoutSeconds = getenvInt("POOL_TIMEOUT", pool.IdleTimeoutSeconds)
	pool.RecycleSeconds = getenvInt("POOL_RECYCLE", pool.RecycleSeconds)

	return dsn.Descriptor{
		Kind:        kind,
		Host:        getenv("HOST"),
		Port:        getenvInt("PORT", 0),
		Database:    getenv("NAME"),
		User:        getenv("USER"),
		Password:    getenv("PASSWORD"),
		RawOverride: getenv("URL"),
		Pool:        pool,
	}, nil
}

// EnvEntry is one environment variable prepared for display.
type EnvEntry struct {
	Key    string
	Value  string
	Masked bool
}

// EnvListing collects variables for display. When path names a readable dotenv file
// its variables are listed; otherwise the process environment is, filtered to likely
// secrets unless all is set. Likely secrets are masked. It returns the entries (at most
// limit when limit > 0), the total count and a description of the source.
func EnvListing(path string, all bool, limit int) ([]EnvEntry, int, string) {
	source := map[string]string{}
	origin := ""
	fromFile := false
	if path != "" {
		if m, err := godotenv.Read(path); err == nil && len(m) > 0 {
			source, origin, fromFile = m, ".env ("+path+")", true
		}
	}
	if !fromFile {
		for _, kv := range os.Environ() {
			k, v, _ := strings.Cut(kv, "=")
			source[k] = v
		}
		origin = "active environment"
		if !all {
			origin += " (filtered to likely secrets)"
		}
	}

	keys := make([]string, 0, len(source))
	for k := range source {
		if fromFile || all || logging.IsLikelySecret(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	total := len(keys)
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}

	out := make([]EnvEntry, len(keys))
	for i, k := range keys {
		e := EnvEntry{Key: k, Value: source[k]}
		if logging.IsLikelySecret(k) {
			e.Value, e.Masked = logging.MaskValue(e.Value), true
		}
		out[i] = e
	}
	return out, total, origin
}

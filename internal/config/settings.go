// Copyright (c) 2025 AskDB
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package config loads and stores askdb configuration in the XDG config dir:
// settings, saved connections and recently used connections.
// Only non-secret values are kept here; secrets go to the OS keychain.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	apperrors "askdb/cli/internal/errors"
	"askdb/cli/internal/logging"
)

// SettingsFile is the settings file name inside the config dir.
const SettingsFile = "settings.json"

// EnvPrefix prefixes environment overrides, e.g. ASKDB_MODEL_NAME.
const EnvPrefix = "ASKDB"

// Setting keys.
const (
	KeyModelName        = "model_name"
	KeyEnableTracing    = "enable_tracing"
	KeyLangSmithProject = "langsmith_project"
	KeyAgentEndpoint    = "agent_endpoint"
	KeyLogLevel         = "log_level"
	KeyMaxResultRows    = "max_result_rows"
)

var defaults = map[string]any{
	KeyModelName:        "gpt-4o-mini",
	KeyEnableTracing:    false,
	KeyLangSmithProject: "",
	KeyAgentEndpoint:    "",
	KeyLogLevel:         "info",
	KeyMaxResultRows:    200,
}

// Values is a typed snapshot of the settings.
type Values struct {
	ModelName        string
	EnableTracing    bool
	LangSmithProject string
	AgentEndpoint    string
	LogLevel         string
	MaxResultRows    int
}

// Settings wraps a viper instance bound to settings.json and ASKDB_* variables.
type Settings struct {
	mu   sync.RWMutex
	v    *viper.Viper
	fs   afero.Fs
	path string
	log  *zap.Logger
}

// Keys returns the known setting keys, sorted.
func Keys() []string {
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LoadSettings reads dir/settings.json from fsys. A missing file yields defaults.
func LoadSettings(fsys afero.Fs, dir string, log *zap.Logger) (*Settings, error) {
	v := viper.New()
	v.SetFs(fsys)
	path := filepath.Join(dir, SettingsFile)
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetConfigPermissions(0o600)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, apperrors.Wrap(apperrors.Config, "cannot read "+path, err)
		}
	}
	return &Settings{v: v, fs: fsys, path: path, log: logging.OrNop(log)}, nil
}

// SetLogger replaces the logger used for reload reports.
func (s *Settings) SetLogger(l *zap.Logger) { s.log = logging.OrNop(l) }

// Path returns the settings file path.
func (s *Settings) Path() string { return s.path }

// Values returns the current settings.
func (s *Settings) Values() Values {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.v.GetInt(KeyMaxResultRows)
	if rows <= 0 {
		rows = defaults[KeyMaxResultRows].(int)
	}
	return Values{
		ModelName:        s.v.GetString(KeyModelName),
		EnableTracing:    s.v.GetBool(KeyEnableTracing),
		LangSmithProject: s.v.GetString(KeyLangSmithProject),
		AgentEndpoint:    s.v.GetString(KeyAgentEndpoint),
		LogLevel:         s.v.GetString(KeyLogLevel),
		MaxResultRows:    rows,
	}
}

// Get returns one setting rendered as text.
func (s *Settings) Get(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.GetString(key)
}

// Set validates and stores one setting, then saves the file.
func (s *Settings) Set(key, value string) error {
	def, ok := defaults[key]
	if !ok {
		return apperrors.New(apperrors.Config, fmt.Sprintf("unknown setting %q (known: %s)", key, strings.Join(Keys(), ", ")))
	}

	var parsed any = value
	switch def.(type) {
	case bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return apperrors.New(apperrors.Config, fmt.Sprintf("%s must be true or false", key))
		}
		parsed = b
	case int:
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return apperrors.New(apperrors.Config, fmt.Sprintf("%s must be a positive integer", key))
		}
		parsed = n
	}

	s.mu.Lock()
	s.v.Set(key, parsed)
	s.mu.Unlock()
	return s.Save()
}

// Save writes the settings file with 0600 permissions.
func (s *Settings) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return apperrors.Wrap(apperrors.Config, "cannot create config dir", err)
	}
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return apperrors.Wrap(apperrors.Config, "cannot write "+s.path, err)
	}
	return nil
}

// Watch reloads the settings when the file changes on disk and calls onChange with
// the new values. It only works on the OS file system.
func (s *Settings) Watch(onChange func(Values)) {
	s.v.OnConfigChange(func(e fsnotify.Event) {
		s.log.Info("settings reloaded", zap.String("file", e.Name), zap.String("op", e.Op.String()))
		if onChange != nil {
			onChange(s.Values())
		}
	})
	s.v.WatchConfig()
}

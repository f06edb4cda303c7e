// Copyright (c) 2025 AskDB
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"askdb/cli/internal/xdg"
)

// LogFileName is the name of the log file inside the XDG state directory.
const LogFileName = "askdb.log"

// Options controls logger construction.
type Options struct {
	// Level is one of debug, info, warn, error. Unknown values mean info.
	Level string
	// File is the log file path. Empty means the default file in the state dir;
	// "-" means stderr.
	File string
}

// New builds a JSON zap logger. The terminal belongs to the interactive UI, so logs
// go to a file unless stderr is requested explicitly.
func New(opts Options) (*zap.Logger, error) {
	var output zapcore.WriteSyncer
	switch opts.File {
	case "-":
		output = zapcore.AddSync(os.Stderr)
	default:
		path := opts.File
		if path == "" {
			dir, err := xdg.StateDir()
			if err != nil {
				return nil, fmt.Errorf("resolve state dir: %w", err)
			}
			path = filepath.Join(dir, LogFileName)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", path, err)
		}
		output = zapcore.AddSync(f)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "ts"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		output,
		ParseLevel(opts.Level),
	)
	return zap.New(core), nil
}

// ParseLevel converts a string log level to a zapcore.Level.
func ParseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zap.DebugLevel
	case "warn":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

// Nop returns a logger that discards everything.
func Nop() *zap.Logger { return zap.NewNop() }

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return Nop()
	}
	return l
}

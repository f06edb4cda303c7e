// Copyright (c) 2025 AskDB
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package dsn turns database target descriptors and user supplied connection URLs into
// canonical, driver-ready connection strings.
package dsn

import (
	"fmt"
	"sort"
	"strings"

	apperrors "askdb/cli/internal/errors"
)

// Kind is the closed set of database kinds askdb can talk to.
type Kind string

const (
	KindPostgres Kind = "postgres"
	KindMySQL    Kind = "mysql"
	KindSQLite   Kind = "sqlite"
)

// registry maps every accepted spelling to its kind.
var registry = map[string]Kind{
	"postgres":   KindPostgres,
	"postgresql": KindPostgres,
	"mysql":      KindMySQL,
	"sqlite":     KindSQLite,
}

// SupportedKinds returns the accepted kind names, sorted.
func SupportedKinds() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseKind looks a kind name up in the registry, ignoring case and surrounding space.
func ParseKind(name string) (Kind, error) {
	if k, ok := registry[strings.ToLower(strings.TrimSpace(name))]; ok {
		return k, nil
	}
	return "", &UnsupportedKindError{Name: name}
}

// PoolOptions tunes the connection pool built for a target.
type PoolOptions struct {
	MaxPoolSize        int               `json:"pool_size"`
	MaxOverflow        int               `json:"max_overflow"`
	IdleTimeoutSeconds int               `json:"pool_timeout"`
	RecycleSeconds     int               `json:"pool_recycle"` // negative disables recycling
	PreflightCheck     bool              `json:"pool_pre_ping"`
	ExtraDriverArgs    map[string]string `json:"connect_args,omitempty"`
}

// DefaultPoolOptions returns the options used when a target does not specify any.
func DefaultPoolOptions() PoolOptions {
	return PoolOptions{
		MaxPoolSize:        5,
		MaxOverflow:        10,
		IdleTimeoutSeconds: 30,
		RecycleSeconds:     -1,
		PreflightCheck:     true,
	}
}

// Descriptor is an immutable description of a database to connect to.
// A non-empty RawOverride supersedes every other connection field.
type Descriptor struct {
	Kind        Kind
	Host        string
	Port        int
	Database    string
	User        string
	Password    string
	RawOverride string
	Pool        PoolOptions
}

// Info contains parsed information from a connection URL.
type Info struct {
	Kind     Kind
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Params   map[string]string
	Original string
}

// String returns the URL the info was parsed from.
func (i *Info) String() string {
	return i.Original
}

// Resolver is implemented once per database kind.
type Resolver interface {
	// Parse parses a connection URL of this kind.
	Parse(raw string) (*Info, error)

	// Normalize renders info as a canonical connection URL.
	Normalize(info *Info) (string, error)

	// Validate checks that raw is a usable URL of this kind.
	Validate(raw string) error
}

// ParseError represents an error that occurred while parsing a connection URL.
type ParseError struct {
	DSN    string
	Reason string
	Hint   string
}

func (e *ParseError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("invalid connection URL: %s\nHint: %s", e.Reason, e.Hint)
	}
	return fmt.Sprintf("invalid connection URL: %s", e.Reason)
}

// Unwrap exposes the error category.
func (e *ParseError) Unwrap() error {
	return apperrors.New(apperrors.InvalidTarget, e.Reason)
}

// NewParseError creates a new ParseError.
func NewParseError(dsn, reason, hint string) *ParseError {
	return &ParseError{
		DSN:    dsn,
		Reason: reason,
		Hint:   hint,
	}
}

// UnsupportedKindError is returned for kinds outside the registry.
type UnsupportedKindError struct {
	Name string
}

func (e *UnsupportedKindError) Error() string {
	return fmt.Sprintf("Unsupported database type '%s'. Supported: %s", e.Name, strings.Join(SupportedKinds(), ", "))
}

// Unwrap exposes the error category.
func (e *UnsupportedKindError) Unwrap() error {
	return apperrors.New(apperrors.UnsupportedKind, e.Error())
}

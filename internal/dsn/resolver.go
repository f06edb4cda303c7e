// Copyright (c) 2025 AskDB
// Licensed under the MIT License. See LICENSE file in the project root for details.

package dsn

import (
	"strconv"
	"strings"
)

// DetectKind detects the database kind from a URL scheme. Driver suffixes such as
// postgresql+psycopg2 or mysql+pymysql are accepted.
func DetectKind(dsn string) (Kind, bool) {
	sep := strings.Index(dsn, "://")
	if sep <= 0 {
		return "", false
	}
	scheme := strings.ToLower(dsn[:sep])
	if plus := strings.Index(scheme, "+"); plus != -1 {
		scheme = scheme[:plus]
	}
	k, ok := registry[scheme]
	return k, ok
}

// ResolverFor returns the resolver of a kind. Adding a kind means extending Kind,
// the registry and this switch.
func ResolverFor(k Kind) (Resolver, error) {
	switch k {
	case KindPostgres:
		return NewPostgreSQLResolver(), nil
	case KindMySQL:
		return NewMySQLResolver(), nil
	case KindSQLite:
		return NewSQLiteResolver(), nil
	default:
		return nil, &UnsupportedKindError{Name: string(k)}
	}
}

// Resolve maps a descriptor to its canonical connection URL.
//
// The kind is checked first, so an unknown kind fails even when an override is
// present. A non-empty RawOverride is validated and returned verbatim.
func Resolve(d Descriptor) (string, error) {
	r, err := ResolverFor(d.Kind)
	if err != nil {
		return "", err
	}

	if override := strings.TrimSpace(d.RawOverride); override != "" {
		if _, err := ParseInfo(override); err != nil {
			return "", err
		}
		return d.RawOverride, nil
	}

	info := &Info{
		Kind:     d.Kind,
		Host:     d.Host,
		User:     d.User,
		Password: d.Password,
		Database: d.Database,
	}
	if d.Port > 0 {
		info.Port = strconv.Itoa(d.Port)
	}
	if d.Kind == KindSQLite {
		info.Host, info.Port, info.User, info.Password = "", "", "", ""
	}
	return r.Normalize(info)
}

// Parse parses a connection URL of any supported kind and returns its canonical form.
func Parse(dsn string) (string, error) {
	info, err := ParseInfo(dsn)
	if err != nil {
		return "", err
	}
	r, err := ResolverFor(info.Kind)
	if err != nil {
		return "", err
	}
	return r.Normalize(info)
}

// Validate validates a connection URL without normalizing it.
func Validate(dsn string) error {
	if dsn == "" {
		return NewParseError(dsn, "empty URL", "provide a valid database connection URL")
	}
	k, ok := DetectKind(dsn)
	if !ok {
		return NewParseError(dsn, "unknown database type", "use postgresql://, mysql:// or sqlite:///")
	}
	r, err := ResolverFor(k)
	if err != nil {
		return err
	}
	return r.Validate(dsn)
}

// ParseInfo parses a connection URL and returns its parts.
// Useful for inspecting connection details.
func ParseInfo(dsn string) (*Info, error) {
	if dsn == "" {
		return nil, NewParseError(dsn, "empty URL", "provide a valid database connection URL")
	}
	k, ok := DetectKind(dsn)
	if !ok {
		return nil, NewParseError(dsn, "unknown database type", "use postgresql://, mysql:// or sqlite:///")
	}
	r, err := ResolverFor(k)
	if err != nil {
		return nil, err
	}
	return r.Parse(dsn)
}

// Copyright (c) 2025 AskDB
// Licensed under the MIT License. See LICENSE file in the project root for details.

package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"askdb/cli/internal/dsn"
	apperrors "askdb/cli/internal/errors"
)

const (
	ConnectionsFile = "connections.json"
	RecentsFile     = "recents.json"

	// DefaultMaxRecents bounds the recent connections list.
	DefaultMaxRecents = 20
)

// Connection is a saved connection profile. It never carries a password.
type Connection struct {
	SavedName   string           `json:"saved_name,omitempty"`
	Type        string           `json:"db_type"`
	Host        string           `json:"host,omitempty"`
	Port        int              `json:"port,omitempty"`
	Name        string           `json:"name,omitempty"`
	User        string           `json:"user,omitempty"`
	URLOverride string           `json:"url_override,omitempty"`
	Pool        *dsn.PoolOptions `json:"pool,omitempty"`
}

// Descriptor turns the profile into a target descriptor with the given password.
// A password is put into the override URL when the URL carries none.
func (c Connection) Descriptor(password string) (dsn.Descriptor, error) {
	kind, err := dsn.ParseKind(c.Type)
	if err != nil {
		return dsn.Descriptor{}, err
	}
	d := dsn.Descriptor{
		Kind:        kind,
		Host:        c.Host,
		Port:        c.Port,
		Database:    c.Name,
		User:        c.User,
		Password:    password,
		RawOverride: c.URLOverride,
		Pool:        dsn.DefaultPoolOptions(),
	}
	if c.Pool != nil {
		d.Pool = *c.Pool
	}
	if d.RawOverride != "" && password != "" {
		d.RawOverride = JoinPassword(d.RawOverride, password)
	}
	return d, nil
}

// ConnectionFrom builds a profile from a descriptor, dropping the password.
func ConnectionFrom(d dsn.Descriptor) Connection {
	c := Connection{
		Type:        string(d.Kind),
		Host:        d.Host,
		Port:        d.Port,
		Name:        d.Database,
		User:        d.User,
		URLOverride: d.RawOverride,
	}
	if !isDefaultPool(d.Pool) {
		p := d.Pool
		c.Pool = &p
	}
	return c
}

func isDefaultPool(p dsn.PoolOptions) bool {
	d := dsn.DefaultPoolOptions()
	return len(p.ExtraDriverArgs) == 0 &&
		p.MaxPoolSize == d.MaxPoolSize &&
		p.MaxOverflow == d.MaxOverflow &&
		p.IdleTimeoutSeconds == d.IdleTimeoutSeconds &&
		p.RecycleSeconds == d.RecycleSeconds &&
		p.PreflightCheck == d.PreflightCheck
}

// Label is a short human-readable description of the target.
func (c Connection) Label() string {
	if c.URLOverride != "" {
		return c.URLOverride
	}
	if c.Type == string(dsn.KindSQLite) {
		return "sqlite:" + c.Name
	}
	var b strings.Builder
	b.WriteString(c.Type)
	b.WriteString("://")
	if c.User != "" {
		b.WriteString(c.User + "@")
	}
	b.WriteString(c.Host)
	if c.Port != 0 {
		b.WriteString(":" + strconv.Itoa(c.Port))
	}
	b.WriteString("/" + c.Name)
	return b.String()
}

func (c Connection) recentKey() string {
	port := ""
	if c.Port != 0 {
		port = strconv.Itoa(c.Port)
	}
	return strings.Join([]string{c.Type, c.URLOverride, c.Host, port, c.Name, c.User}, "|")
}

// SplitPassword removes the password from a connection URL and returns it separately.
func SplitPassword(raw string) (clean, password string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", apperrors.Wrap(apperrors.InvalidTarget, "connection URL could not be parsed; percent-encode special characters in the password", err)
	}
	if u.User == nil {
		return raw, "", nil
	}
	password, ok := u.User.Password()
	if !ok {
		return raw, "", nil
	}
	u.User = url.User(u.User.Username())
	return u.String(), password, nil
}

// JoinPassword puts password into a connection URL that has a user but no password.
func JoinPassword(raw, password string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		return raw
	}
	u.User = url.UserPassword(u.User.Username(), password)
	return u.String()
}

// Store persists saved and recent connections as JSON files.
type Store struct {
	Fs         afero.Fs
	Dir        string
	MaxRecents int

	mu sync.Mutex
}

// NewStore creates a store rooted at dir.
func NewStore(fsys afero.Fs, dir string) *Store {
	return &Store{Fs: fsys, Dir: dir, MaxRecents: DefaultMaxRecents}
}

// Connections returns the saved connections in insertion order.
func (s *Store) Connections() ([]Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ConnectionsFile)
}

// Get returns the saved connection with the given name.
func (s *Store) Get(name string) (Connection, bool, error) {
	conns, err := s.Connections()
	if err != nil {
		return Connection{}, false, err
	}
	for _, c := range conns {
		if c.SavedName == name {
			return c, true, nil
		}
	}
	return Connection{}, false, nil
}

// AddOrUpdate saves c under name, replacing an existing profile of that name in place.
func (s *Store) AddOrUpdate(name string, c Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conns, err := s.load(ConnectionsFile)
	if err != nil {
		return err
	}
	c.SavedName = name
	replaced := false
	for i := range conns {
		if conns[i].SavedName == name {
			conns[i] = c
			replaced = true
			break
		}
	}
	if !replaced {
		conns = append(conns, c)
	}
	return s.save(ConnectionsFile, conns)
}

// Delete removes the profile with the given name and reports whether it existed.
func (s *Store) Delete(name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conns, err := s.load(ConnectionsFile)
	if err != nil {
		return false, err
	}
	kept := conns[:0]
	for _, c := range conns {
		if c.SavedName != name {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(conns) {
		return false, nil
	}
	return true, s.save(ConnectionsFile, kept)
}

// Recents returns recently used connections, newest first.
func (s *Store) Recents() ([]Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(RecentsFile)
}

// AddRecent records c as the most recent connection. An existing entry for the same
// target moves to the front; the list is trimmed to MaxRecents.
func (s *Store) AddRecent(c Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recents, err := s.load(RecentsFile)
	if err != nil {
		return err
	}
	c.SavedName = ""
	key := c.recentKey()

	out := make([]Connection, 0, len(recents)+1)
	out = append(out, c)
	for _, r := range recents {
		if r.recentKey() != key {
			out = append(out, r)
		}
	}
	limit := s.MaxRecents
	if limit <= 0 {
		limit = DefaultMaxRecents
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return s.save(RecentsFile, out)
}

func (s *Store) load(name string) ([]Connection, error) {
	p := filepath.Join(s.Dir, name)
	data, err := afero.ReadFile(s.Fs, p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, apperrors.Wrap(apperrors.Config, "cannot read "+p, err)
	}
	var conns []Connection
	if err := json.Unmarshal(data, &conns); err != nil {
		return nil, apperrors.Wrap(apperrors.Config, p+" is not valid JSON", err)
	}
	return conns, nil
}

func (s *Store) save(name string, conns []Connection) error {
	if conns == nil {
		conns = []Connection{}
	}
	if err := s.Fs.MkdirAll(s.Dir, 0o700); err != nil {
		return apperrors.Wrap(apperrors.Config, "cannot create "+s.Dir, err)
	}
	b, err := json.MarshalIndent(conns, "", "  ")
	if err != nil {
		return err
	}
	p := filepath.Join(s.Dir, name)
	if err := afero.WriteFile(s.Fs, p, b, 0o600); err != nil {
		return apperrors.Wrap(apperrors.Config, "cannot write "+p, err)
	}
	return nil
}

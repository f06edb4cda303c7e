// Copyright (c) 2025 AskDB
// Licensed under the MIT License. See LICENSE file in the project root for details.

package dsn

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var rePort = regexp.MustCompile(`^\d+$`)

// NetworkResolver handles URLs of server databases reached over host:port
// (PostgreSQL and MySQL).
type NetworkResolver struct {
	kind        Kind
	scheme      string
	defaultPort int
	defaultDB   string
}

// NewPostgreSQLResolver creates a resolver for postgres:// and postgresql:// URLs.
func NewPostgreSQLResolver() *NetworkResolver {
	return &NetworkResolver{kind: KindPostgres, scheme: "postgresql", defaultPort: 5432, defaultDB: "postgres"}
}

// NewMySQLResolver creates a resolver for mysql:// URLs.
func NewMySQLResolver() *NetworkResolver {
	return &NetworkResolver{kind: KindMySQL, scheme: "mysql", defaultPort: 3306, defaultDB: "mysql"}
}

// Parse parses a connection URL and returns its parts.
func (r *NetworkResolver) Parse(dsn string) (*Info, error) {
	if dsn == "" {
		return nil, NewParseError(dsn, "empty URL", "provide a valid "+string(r.kind)+" connection URL")
	}

	sep := strings.Index(dsn, "://")
	if sep == -1 {
		return nil, NewParseError(dsn, "missing or invalid scheme", r.example())
	}
	if k, ok := DetectKind(dsn); !ok || k != r.kind {
		return nil, NewParseError(dsn, "missing or invalid scheme", r.example())
	}
	remainder := dsn[sep+3:]

	// Try standard URL parsing first
	parsed, err := url.Parse(dsn)
	if err == nil {
		return r.extractFromURL(parsed, dsn)
	}

	// Standard parsing failed, most likely because of unencoded special characters
	// in the password.
	return r.manualParse(remainder, dsn)
}

// extractFromURL extracts info from a successfully parsed URL.
func (r *NetworkResolver) extractFromURL(parsed *url.URL, originalDSN string) (*Info, error) {
	info := &Info{
		Kind:     r.kind,
		Host:     parsed.Hostname(),
		Port:     parsed.Port(),
		Database: strings.TrimSpace(strings.TrimPrefix(parsed.Path, "/")),
		Params:   make(map[string]string),
		Original: originalDSN,
	}
	if parsed.User != nil {
		info.User = parsed.User.Username()
		info.Password, _ = parsed.User.Password()
	}

	for key, values := range parsed.Query() {
		if len(values) > 0 {
			info.Params[key] = values[0]
		}
	}

	if info.Port == "" {
		info.Port = strconv.Itoa(r.defaultPort)
	}

	if strings.TrimSpace(info.Host) == "" {
		return nil, NewParseError(originalDSN, "missing host", r.example())
	}

	return info, nil
}

// manualParse splits [user[:password]@]host[:port][/database][?params] by hand.
func (r *NetworkResolver) manualParse(remainder, originalDSN string) (*Info, error) {
	info := &Info{
		Kind:     r.kind,
		Port:     strconv.Itoa(r.defaultPort),
		Params:   make(map[string]string),
		Original: originalDSN,
	}

	// The password may itself contain '@', the host never does.
	hostAndDB := remainder
	if atIndex := strings.LastIndex(remainder, "@"); atIndex != -1 {
		authPart := remainder[:atIndex]
		hostAndDB = remainder[atIndex+1:]

		if colonIndex := strings.Index(authPart, ":"); colonIndex == -1 {
			info.User = authPart
		} else {
			info.User = authPart[:colonIndex]
			info.Password = authPart[colonIndex+1:]
		}
	}

	hostPart, dbAndParams := hostAndDB, ""
	if slashIndex := strings.Index(hostAndDB, "/"); slashIndex != -1 {
		hostPart = hostAndDB[:slashIndex]
		dbAndParams = hostAndDB[slashIndex+1:]
	} else if qIndex := strings.Index(hostAndDB, "?"); qIndex != -1 {
		hostPart = hostAndDB[:qIndex]
		dbAndParams = hostAndDB[qIndex:]
	}

	if strings.Contains(hostPart, ":") {
		parts := strings.SplitN(hostPart, ":", 2)
		info.Host = parts[0]
		info.Port = parts[1]
	} else {
		info.Host = hostPart
	}

	questionIndex := strings.Index(dbAndParams, "?")
	if questionIndex == -1 {
		info.Database = strings.TrimSpace(dbAndParams)
	} else {
		info.Database = strings.TrimSpace(dbAndParams[:questionIndex])
		for _, param := range strings.Split(dbAndParams[questionIndex+1:], "&") {
			if kv := strings.SplitN(param, "=", 2); len(kv) == 2 {
				info.Params[kv[0]] = kv[1]
			}
		}
	}

	if strings.TrimSpace(info.Host) == "" {
		return nil, NewParseError(originalDSN, "missing host", r.example())
	}

	return info, nil
}

// Normalize renders info as a canonical URL with escaped credentials.
// Missing host, port and database fall back to the kind's defaults.
func (r *NetworkResolver) Normalize(info *Info) (string, error) {
	if info == nil {
		return "", NewParseError("", "nil connection info", "")
	}

	host := info.Host
	if host == "" {
		host = "localhost"
	}
	port := info.Port
	if port == "" {
		port = strconv.Itoa(r.defaultPort)
	}
	if !rePort.MatchString(port) {
		return "", NewParseError(info.Original, fmt.Sprintf("invalid port number: %s", port), "port must be numeric")
	}
	database := info.Database
	if database == "" {
		database = r.defaultDB
	}

	u := url.URL{
		Scheme: r.scheme,
		Host:   net.JoinHostPort(host, port),
		Path:   "/" + database,
	}
	if info.User != "" {
		if info.Password != "" {
			u.User = url.UserPassword(info.User, info.Password)
		} else {
			u.User = url.User(info.User)
		}
	}
	if len(info.Params) > 0 {
		q := url.Values{}
		for k, v := range info.Params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// Validate checks that dsn parses and carries a numeric port.
func (r *NetworkResolver) Validate(dsn string) error {
	info, err := r.Parse(dsn)
	if err != nil {
		return err
	}
	if info.Host == "" {
		return NewParseError(dsn, "empty host", "")
	}
	if info.Port != "" && !rePort.MatchString(info.Port) {
		return NewParseError(dsn, fmt.Sprintf("invalid port number: %s", info.Port), "port must be numeric")
	}
	return nil
}

func (r *NetworkResolver) example() string {
	return fmt.Sprintf("use %s://user:password@host:%d/database", r.scheme, r.defaultPort)
}

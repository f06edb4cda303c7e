// Copyright (c) 2025 AskDB
// Licensed under the MIT License. See LICENSE file in the project root for details.

package pool

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"askdb/cli/internal/dsn"
)

// Params is the driver-facing form of dsn.PoolOptions.
type Params struct {
	// MaxIdle is the number of connections kept open.
	MaxIdle int
	// MaxConns caps open connections: the pool size plus the overflow.
	MaxConns int
	// IdleTimeout closes connections idle for longer. Zero keeps them.
	IdleTimeout time.Duration
	// Recycle is the maximum connection age, honored only when RecycleSet.
	Recycle    time.Duration
	RecycleSet bool
	// Preflight pings every borrowed connection before handing it out.
	Preflight  bool
	DriverArgs map[string]string
}

// NewParams converts pool options. A negative recycle age is not forwarded to the driver.
func NewParams(o dsn.PoolOptions) Params {
	p := Params{
		MaxIdle:     max(o.MaxPoolSize, 1),
		IdleTimeout: time.Duration(max(o.IdleTimeoutSeconds, 0)) * time.Second,
		Preflight:   o.PreflightCheck,
		DriverArgs:  o.ExtraDriverArgs,
	}
	p.MaxConns = max(p.MaxIdle+max(o.MaxOverflow, 0), 1)
	if o.RecycleSeconds >= 0 {
		p.Recycle = time.Duration(o.RecycleSeconds) * time.Second
		p.RecycleSet = true
	}
	return p
}

// optionPairs renders the options as sorted key=value pairs. Options that are not
// forwarded to the driver do not take part, so recycle -1 and -5 share a pool.
func optionPairs(o dsn.PoolOptions) []string {
	pairs := []string{
		fmt.Sprintf("pool_size=%d", o.MaxPoolSize),
		fmt.Sprintf("max_overflow=%d", o.MaxOverflow),
		fmt.Sprintf("pool_timeout=%d", o.IdleTimeoutSeconds),
		fmt.Sprintf("pool_pre_ping=%t", o.PreflightCheck),
	}
	if o.RecycleSeconds >= 0 {
		pairs = append(pairs, fmt.Sprintf("pool_recycle=%d", o.RecycleSeconds))
	}
	for k, v := range o.ExtraDriverArgs {
		pairs = append(pairs, fmt.Sprintf("connect_args.%s=%s", k, v))
	}
	sort.Strings(pairs)
	return pairs
}

// cacheKey identifies a pool: the canonical URL plus the canonical option list.
type cacheKey struct {
	url     string
	options string
}

func newKey(url string, o dsn.PoolOptions) cacheKey {
	return cacheKey{url: url, options: strings.Join(optionPairs(o), "&")}
}

func (k cacheKey) String() string {
	return k.url + "#" + k.options
}

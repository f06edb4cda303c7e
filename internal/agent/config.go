// Copyright (c) 2025 AskDB
// Licensed under the MIT License. See LICENSE file in the project root for details.

package agent

import (
	"os"
	"strings"
)

// Defaults for Config.
const (
	DefaultModel         = "gpt-4o-mini"
	DefaultBaseURL       = "https://api.openai.com/v1"
	DefaultTopK          = 10
	DefaultMaxIterations = 15
)

// Environment variables read or written by the agent.
const (
	EnvOpenAIKey      = "OPENAI_API_KEY"
	EnvOpenAIBaseURL  = "OPENAI_BASE_URL"
	EnvTracing        = "LANGCHAIN_TRACING_V2"
	EnvTracingKey     = "LANGCHAIN_API_KEY"
	EnvTracingProject = "LANGCHAIN_PROJECT"
)

// Tracing configures run tracing.
type Tracing struct {
	Enabled bool
	APIKey  string
	Project string
}

// Config holds everything needed to construct a SQL agent.
type Config struct {
	Model   string
	APIKey  string
	BaseURL string
	Tracing Tracing
	// TopK caps the rows the agent asks for unless the user wants more.
	TopK int
	// MaxIterations caps model round trips per prompt.
	MaxIterations int
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.BaseURL == "" {
		c.BaseURL = os.Getenv(EnvOpenAIBaseURL)
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.TopK <= 0 {
		c.TopK = DefaultTopK
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	return c
}

// ApplyEnvironment writes the credentials and tracing switches of cfg into the process
// environment. This is a process-wide side effect: a non-empty API key is exported,
// enabling tracing exports its key and project when set, and disabling tracing unsets
// the tracing switch.
func ApplyEnvironment(cfg Config) {
	if cfg.APIKey != "" {
		os.Setenv(EnvOpenAIKey, cfg.APIKey)
	}
	if !cfg.Tracing.Enabled {
		os.Unsetenv(EnvTracing)
		return
	}
	os.Setenv(EnvTracing, "true")
	if cfg.Tracing.APIKey != "" {
		os.Setenv(EnvTracingKey, cfg.Tracing.APIKey)
	}
	if cfg.Tracing.Project != "" {
		os.Setenv(EnvTracingProject, cfg.Tracing.Project)
	}
}

// resolveAPIKey returns the configured key or the one from the environment.
func resolveAPIKey(cfg Config) string {
	if cfg.APIKey != "" {
		return cfg.APIKey
	}
	return os.Getenv(EnvOpenAIKey)
}

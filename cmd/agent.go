// Copyright (c) 2025 AskDB
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"askdb/cli/internal/agent"
	"askdb/cli/internal/agent/remote"
	apperrors "askdb/cli/internal/errors"
	"askdb/cli/internal/keychain"
	"askdb/cli/internal/pool"
	"askdb/cli/internal/session"
)

// EnvAgentToken supplies the agent bridge token when the keychain has none.
const EnvAgentToken = "ASKDB_AGENT_TOKEN"

// agentFactory builds the agent for a session: a gRPC bridge client when
// agent_endpoint is set, otherwise a local SQL agent bound to the pool.
type agentFactory struct {
	pool pool.Pool

	mu      sync.Mutex
	remotes []*remote.Client
}

func (f *agentFactory) init(ctx context.Context) (agent.Agent, error) {
	v := app.settings.Values()

	if v.AgentEndpoint != "" {
		token := keychain.Lookup(app.keys, keychain.KeyAgentToken, EnvAgentToken)
		c, err := remote.Dial(v.AgentEndpoint, token)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.InitFailed, "cannot reach agent bridge at "+v.AgentEndpoint, err)
		}
		f.mu.Lock()
		f.remotes = append(f.remotes, c)
		f.mu.Unlock()
		app.log.Info("using agent bridge", zap.String("endpoint", v.AgentEndpoint))
		return c, nil
	}

	cfg := agent.Config{
		Model:  v.ModelName,
		APIKey: keychain.Lookup(app.keys, keychain.KeyOpenAIAPIKey, agent.EnvOpenAIKey),
		Tracing: agent.Tracing{
			Enabled: v.EnableTracing,
			APIKey:  keychain.Lookup(app.keys, keychain.KeyLangSmithAPIKey, "LANGSMITH_API_KEY", agent.EnvTracingKey),
			Project: v.LangSmithProject,
		},
	}
	a, err := agent.New(ctx, f.pool, cfg, app.log)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (f *agentFactory) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.remotes {
		_ = c.Close()
	}
	f.remotes = nil
}

var _ session.InitFunc = (&agentFactory{}).init

// Copyright (c) 2025 AskDB
// Licensed under the MIT License. See LICENSE file in the project root for details.

package agent

import (
	"context"
	"iter"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "askdb/cli/internal/errors"
	"askdb/cli/internal/logging"
	"askdb/cli/internal/pool"
	"askdb/cli/internal/sqlexec"
)

// MaxIterationsOutput is the answer given when the agent runs out of round trips.
const MaxIterationsOutput = "Agent stopped due to max iterations."

// SQLAgent answers questions about one database with a tool-calling chat model.
type SQLAgent struct {
	cfg    Config
	client *chatClient
	tools  *toolbox
	log    *zap.Logger
}

// New builds a SQL agent bound to a pool. It applies cfg to the environment, requires
// an API key from cfg or OPENAI_API_KEY, and reads the table list so an unreachable
// database fails here rather than on the first prompt.
func New(ctx context.Context, p pool.Pool, cfg Config, log *zap.Logger) (*SQLAgent, error) {
	ApplyEnvironment(cfg)
	cfg = cfg.withDefaults()
	log = logging.OrNop(log)

	key := resolveAPIKey(cfg)
	if key == "" {
		return nil, apperrors.New(apperrors.InitFailed,
			"OpenAI API key is not set. Run 'askdb settings set-secret openai' or export OPENAI_API_KEY.")
	}

	inspector := sqlexec.NewInspector(p)
	tables, err := inspector.ListTables(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.InitFailed, "cannot read database tables: "+logging.Mask(err.Error()), err)
	}
	log.Info("sql agent ready", zap.String("model", cfg.Model), zap.String("kind", string(p.Kind())), zap.Int("tables", len(tables)))

	a := &SQLAgent{
		cfg:    cfg,
		client: newChatClient(cfg.BaseURL, key),
		log:    log,
	}
	a.tools = &toolbox{
		kind:      p.Kind(),
		inspector: inspector,
		executor:  sqlexec.New(p, log),
		checker:   a.ask,
	}
	return a, nil
}

// Stream runs the tool-calling loop for one prompt. Every model turn that calls tools
// yields an "actions" chunk and then a "steps" chunk; the final answer is an "output" chunk.
func (a *SQLAgent) Stream(ctx context.Context, prompt string) iter.Seq2[Chunk, error] {
	return func(yield func(Chunk, error) bool) {
		log := a.log
		if a.cfg.Tracing.Enabled {
			log = log.With(zap.String("run_id", uuid.NewString()), zap.String("project", a.cfg.Tracing.Project))
			log.Info("agent run started", zap.Int("prompt_chars", len(prompt)))
		}

		messages := []chatMessage{
			{Role: "system", Content: systemPrompt(a.tools.kind, a.cfg.TopK)},
			{Role: "user", Content: prompt},
		}
		for range a.cfg.MaxIterations {
			msg, err := a.client.complete(ctx, &chatRequest{
				Model:       a.cfg.Model,
				Messages:    messages,
				Temperature: 0,
				Tools:       toolDefs(),
			})
			if err != nil {
				yield(nil, err)
				return
			}

			if len(msg.ToolCalls) == 0 {
				if a.cfg.Tracing.Enabled {
					log.Info("agent run finished")
				}
				yield(Chunk{KeyOutput: msg.Content}, nil)
				return
			}

			actions := make([]Action, len(msg.ToolCalls))
			for i, call := range msg.ToolCalls {
				actions[i] = Action{
					Tool:      call.Function.Name,
					ToolInput: decodeInput(call.Function.Arguments),
					Log:       msg.Content,
				}
			}
			if !yield(Chunk{KeyActions: actions}, nil) {
				return
			}

			messages = append(messages, *msg)
			steps := make([]Step, len(actions))
			for i, action := range actions {
				if a.cfg.Tracing.Enabled {
					log.Info("tool call", zap.String("tool", action.Tool))
				}
				obs := a.tools.run(ctx, action)
				steps[i] = Step{Action: action, Observation: obs}
				messages = append(messages, chatMessage{Role: "tool", Content: obs, ToolCallID: msg.ToolCalls[i].ID})
			}
			if !yield(Chunk{KeySteps: steps}, nil) {
				return
			}
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
		}
		yield(Chunk{KeyOutput: MaxIterationsOutput}, nil)
	}
}

// ask sends a single prompt without tools and returns the reply.
func (a *SQLAgent) ask(ctx context.Context, prompt string) (string, error) {
	msg, err := a.client.complete(ctx, &chatRequest{
		Model:       a.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0,
	})
	if err != nil {
		return "", err
	}
	return msg.Content, nil
}

// Copyright (c) 2025 AskDB
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package agent defines the reasoning agent boundary and a SQL agent that turns
// natural-language questions into SQL with an OpenAI-compatible chat model.
//
// An agent produces a stream of chunks. Each chunk is a mapping that may carry an
// "actions" list (tool calls about to run), a "steps" list (tool calls with their
// observations) and an "output" string (the final answer).
package agent

import (
	"context"
	"iter"
)

// Chunk keys.
const (
	KeyActions  = "actions"
	KeySteps    = "steps"
	KeyNextStep = "next_step"
	KeyOutput   = "output"
)

// Chunk is one unit of the agent's event stream.
type Chunk map[string]any

// Action is a tool invocation chosen by the agent.
type Action struct {
	Tool      string `json:"tool"`
	ToolInput any    `json:"tool_input"`
	Log       string `json:"log,omitempty"`
}

// Step is an action paired with what the tool returned.
type Step struct {
	Action      Action `json:"action"`
	Observation string `json:"observation"`
}

// Agent answers prompts with a stream of chunks.
type Agent interface {
	// Stream starts answering prompt. Iteration blocks on the model and the database,
	// and stops early when ctx is cancelled. A non-nil error ends the stream.
	Stream(ctx context.Context, prompt string) iter.Seq2[Chunk, error]
}

// Func adapts a function to the Agent interface.
type Func func(ctx context.Context, prompt string) iter.Seq2[Chunk, error]

// Stream calls f.
func (f Func) Stream(ctx context.Context, prompt string) iter.Seq2[Chunk, error] {
	return f(ctx, prompt)
}

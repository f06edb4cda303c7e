// Copyright (c) 2025 AskDB
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package stream classifies the chunks of an agent stream into status updates and
// discovered SQL queries, in the order the agent produced them.
package stream

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"askdb/cli/internal/agent"
	apperrors "askdb/cli/internal/errors"
	"askdb/cli/internal/logging"
)

const snippetLimit = 80

// EventKind classifies an Event.
type EventKind int

const (
	// StatusUpdate carries text for the message being answered.
	StatusUpdate EventKind = iota
	// DiscoveredQuery carries a SQL statement the agent ran.
	DiscoveredQuery
	// Completed marks the end of a stream that did not fail.
	Completed
)

func (k EventKind) String() string {
	switch k {
	case StatusUpdate:
		return "status"
	case DiscoveredQuery:
		return "query"
	case Completed:
		return "completed"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is one notification derived from the stream.
type Event struct {
	Kind EventKind
	Text string
}

// Status returns a StatusUpdate event.
func Status(text string) Event { return Event{Kind: StatusUpdate, Text: text} }

// Query returns a DiscoveredQuery event.
func Query(sql string) Event { return Event{Kind: DiscoveredQuery, Text: sql} }

// Interpreter turns chunks into events. It remembers the final output so it can be
// repeated when the stream ends. Not safe for concurrent use.
type Interpreter struct {
	log       *zap.Logger
	final     string
	haveFinal bool
}

// NewInterpreter creates an Interpreter. A nil logger discards malformed-chunk reports.
func NewInterpreter(log *zap.Logger) *Interpreter {
	return &Interpreter{log: logging.OrNop(log)}
}

// Feed interprets one chunk. A malformed chunk is logged and skipped; the events it
// produced before the problem was found are still returned.
func (in *Interpreter) Feed(chunk agent.Chunk) (events []Event) {
	defer func() {
		if r := recover(); r != nil {
			in.log.Warn("skipping malformed agent chunk", zap.Strings("keys", chunkKeys(chunk)), zap.Any("panic", r))
		}
	}()

	emit := func(ev Event) { events = append(events, ev) }
	if err := in.feed(chunk, emit); err != nil {
		in.log.Warn("skipping malformed agent chunk", zap.Strings("keys", chunkKeys(chunk)), zap.Error(err))
	}
	return events
}

// Finish repeats the final output, if one was seen, and marks completion.
func (in *Interpreter) Finish() []Event {
	var events []Event
	if in.haveFinal {
		events = append(events, Status(in.final))
	}
	return append(events, Event{Kind: Completed})
}

func (in *Interpreter) feed(chunk agent.Chunk, emit func(Event)) error {
	if raw, ok := chunk[agent.KeyActions]; ok && !isEmpty(raw) {
		actions, err := toActions(raw)
		if err != nil {
			return err
		}
		names := make([]string, len(actions))
		for i, a := range actions {
			names[i] = a.Tool
		}
		emit(Status("Running: " + strings.Join(names, ", ") + "…"))
		for _, a := range actions {
			if q := queryOf(a); q != "" {
				emit(Query(q))
			}
		}
	}

	raw, ok := chunk[agent.KeySteps]
	if !ok || isEmpty(raw) {
		raw, ok = chunk[agent.KeyNextStep]
	}
	if ok && !isEmpty(raw) {
		steps, err := toSteps(raw)
		if err != nil {
			return err
		}
		for _, s := range steps {
			if s.action.Tool != "" {
				emit(Status("Running: " + s.action.Tool + "…"))
			}
			if q := queryOf(s.action); q != "" {
				emit(Query(q))
			}
			if s.hasObservation {
				if snippet := Snippet(s.observation); snippet != "" {
					emit(Status("Analyzing: " + snippet))
				}
			}
		}
	}

	if out, ok := chunk[agent.KeyOutput].(string); ok {
		in.final, in.haveFinal = out, true
		emit(Status(out))
	}
	return nil
}

// Snippet flattens an observation to one line of at most 80 characters.
func Snippet(observation string) string {
	s := strings.ReplaceAll(observation, "\n", " ")
	if utf8.RuneCountInString(s) > snippetLimit {
		r := []rune(s)
		s = string(r[:snippetLimit-3]) + "…"
	}
	return s
}

// MergeStatus applies a status update to the text accumulated so far. Progress lines
// starting with Thinking, Analyzing or Planning are appended; anything else replaces.
func MergeStatus(prev, text string) string {
	if strings.HasPrefix(text, "Thinking") || strings.HasPrefix(text, "Analyzing") || strings.HasPrefix(text, "Planning") {
		if prev != "" {
			return strings.TrimSpace(prev + "\n" + text)
		}
		return strings.TrimSpace(text)
	}
	return text
}

// Run feeds every chunk of a stream through a fresh interpreter and emits the events in
// order. An error from the source ends the run as a StreamFailed error; events already
// emitted stand.
func Run(ctx context.Context, chunks iter.Seq2[agent.Chunk, error], log *zap.Logger, emit func(Event)) error {
	in := NewInterpreter(log)
	for chunk, err := range chunks {
		if err != nil {
			return apperrors.Wrap(apperrors.StreamFailed, err.Error(), err)
		}
		for _, ev := range in.Feed(chunk) {
			emit(ev)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	for _, ev := range in.Finish() {
		emit(ev)
	}
	return nil
}

// queryOf returns the SQL of a SQL tool action, or "".
func queryOf(a agent.Action) string {
	if a.Tool != agent.ToolQuery {
		return ""
	}
	switch in := a.ToolInput.(type) {
	case string:
		return in
	case map[string]any:
		for _, k := range []string{"query", "sql", "input"} {
			if s, ok := in[k].(string); ok {
				return s
			}
		}
	case map[string]string:
		for _, k := range []string{"query", "sql", "input"} {
			if s, ok := in[k]; ok {
				return s
			}
		}
	}
	return ""
}

type step struct {
	action         agent.Action
	observation    string
	hasObservation bool
}

func toActions(raw any) ([]agent.Action, error) {
	switch v := raw.(type) {
	case []agent.Action:
		return v, nil
	case []any:
		out := make([]agent.Action, 0, len(v))
		for _, item := range v {
			out = append(out, toAction(item))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("actions: unexpected type %T", raw)
	}
}

// toAction reads anything action-shaped. Values that are not actions have no tool name.
func toAction(v any) agent.Action {
	switch a := v.(type) {
	case agent.Action:
		return a
	case *agent.Action:
		if a != nil {
			return *a
		}
	case map[string]any:
		tool, _ := a["tool"].(string)
		log, _ := a["log"].(string)
		return agent.Action{Tool: tool, ToolInput: a["tool_input"], Log: log}
	}
	return agent.Action{}
}

func toSteps(raw any) ([]step, error) {
	switch v := raw.(type) {
	case []agent.Step:
		out := make([]step, len(v))
		for i, s := range v {
			out[i] = step{action: s.Action, observation: s.Observation, hasObservation: true}
		}
		return out, nil
	case []any:
		out := make([]step, 0, len(v))
		for _, item := range v {
			out = append(out, toStep(item))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("steps: unexpected type %T", raw)
	}
}

func toStep(v any) step {
	switch s := v.(type) {
	case agent.Step:
		return step{action: s.Action, observation: s.Observation, hasObservation: true}
	case []any:
		// (action, observation) pair
		var st step
		if len(s) > 0 {
			st.action = toAction(s[0])
		}
		if len(s) > 1 && s[1] != nil {
			st.observation, st.hasObservation = fmt.Sprint(s[1]), true
		}
		return st
	case map[string]any:
		if a, ok := s["action"]; ok {
			st := step{action: toAction(a)}
			if obs, ok := s["observation"]; ok && obs != nil {
				st.observation, st.hasObservation = fmt.Sprint(obs), true
			}
			return st
		}
		return step{action: toAction(s)}
	}
	return step{action: toAction(v)}
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case []any:
		return len(x) == 0
	case []agent.Action:
		return len(x) == 0
	case []agent.Step:
		return len(x) == 0
	}
	return false
}

func chunkKeys(c agent.Chunk) []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}

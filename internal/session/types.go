// Copyright (c) 2025 AskDB
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"fmt"

	"askdb/cli/internal/sqlexec"
)

// Role identifies who wrote a transcript message.
type Role int

const (
	RoleUser Role = iota
	RoleAI
	RoleError
)

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAI:
		return "AI"
	case RoleError:
		return "Error"
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// Message is one transcript entry. Queries holds the SQL the agent ran while
// producing an AI message, in discovery order.
type Message struct {
	Role    Role
	Text    string
	Queries []string
	// Pending is true for an AI message that has not received any update yet.
	Pending bool
	// Queued is true while the prompt of a pending AI message waits for the agent.
	Queued bool
}

func (m Message) clone() Message {
	m.Queries = append([]string(nil), m.Queries...)
	return m
}

// NoSource marks a query the user typed rather than one the agent discovered.
const NoSource = -1

// QueryEntry is one entry of the discovered-query log.
type QueryEntry struct {
	SQL string
	// Source is the transcript index of the AI message that produced the query, or NoSource.
	Source int
}

// Presenter receives every notification the session emits. All calls are made from
// the session's loop goroutine, one at a time.
type Presenter interface {
	TranscriptChanged(index int, msg Message)
	QueryListChanged(entries []QueryEntry)
	SQLResultReady(res *sqlexec.Result)
	SQLFailed(message string)
	AgentInitFailed(message string)
}

type pendingPrompt struct {
	index  int
	prompt string
}

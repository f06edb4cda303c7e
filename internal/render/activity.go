// Copyright (c) 2025 AskDB
// Licensed under the MIT License. See LICENSE file in the project root for details.

package render

import "sync"

// Activity tracks what has been shown for each AI message so repeated transcript
// notifications print only what is new.
type Activity struct {
	mu sync.Mutex
	// last line printed per message index
	shown map[int]string
	// messages announced as waiting for the agent
	waiting map[int]struct{}
	// number of query log entries already printed
	queries int
}

// NewActivity creates an empty tracker.
func NewActivity() *Activity {
	return &Activity{
		shown:   make(map[int]string),
		waiting: make(map[int]struct{}),
	}
}

// Observe records line as the latest output for message idx and reports whether it
// differs from what was shown before.
func (a *Activity) Observe(idx int, line string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if prev, ok := a.shown[idx]; ok && prev == line {
		return false
	}
	a.shown[idx] = line
	return true
}

// MarkWaiting records that message idx is waiting and reports whether this is new.
func (a *Activity) MarkWaiting(idx int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.waiting[idx]; ok {
		return false
	}
	a.waiting[idx] = struct{}{}
	return true
}

// NewQueries returns how many entries of a log of length n have not been shown yet,
// and marks them shown.
func (a *Activity) NewQueries(n int) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n <= a.queries {
		return 0
	}
	fresh := n - a.queries
	a.queries = n
	return fresh
}

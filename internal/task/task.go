// Copyright (c) 2025 AskDB
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package task runs blocking units of work on their own goroutine and reports
// exactly one terminal outcome per task.
//
// Cancellation is hard: Cancel cancels the task's context and marks the outcome as
// Cancelled even if the work keeps running for a while and returns a value later.
// The runner does not serialize tasks of the same kind; callers supersede or refuse.
package task

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle state of a task.
type State int32

const (
	Idle State = iota
	Running
	Completed
	Failed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Kind names what a task does, e.g. "init", "stream", "exec".
type Kind string

// Outcome is the single terminal notification of a task.
type Outcome[T any] struct {
	State State
	Value T
	Err   error
}

// Handle controls a started task.
type Handle struct {
	id     string
	kind   Kind
	state  atomic.Int32
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// ID returns the task's unique id.
func (h *Handle) ID() string { return h.id }

// Kind returns the task's kind.
func (h *Handle) Kind() Kind { return h.kind }

// State returns the current state.
func (h *Handle) State() State { return State(h.state.Load()) }

// IsRunning reports whether the task has not reached a terminal state.
func (h *Handle) IsRunning() bool { return h.State() == Running }

// Cancel requests cancellation. The task's outcome will be Cancelled unless it
// already finished.
func (h *Handle) Cancel() {
	h.once.Do(func() {
		h.state.CompareAndSwap(int32(Running), int32(Cancelled))
		h.cancel()
	})
}

// Done is closed after the outcome has been delivered.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the task is done or the timeout elapses, and reports which happened.
func (h *Handle) Wait(timeout time.Duration) bool {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-h.done:
		return true
	case <-t.C:
		return false
	}
}

// Start runs work on a new goroutine. deliver is called exactly once with the
// terminal outcome; a panic inside work is reported as Failed.
func Start[T any](parent context.Context, kind Kind, work func(ctx context.Context) (T, error), deliver func(Outcome[T])) *Handle {
	ctx, cancel := context.WithCancel(parent)
	h := &Handle{
		id:     uuid.NewString(),
		kind:   kind,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	h.state.Store(int32(Running))

	go func() {
		defer close(h.done)
		defer cancel()

		value, err := run(ctx, work)

		var out Outcome[T]
		switch {
		case h.state.Load() == int32(Cancelled):
			out = Outcome[T]{State: Cancelled, Err: context.Canceled}
		case err != nil:
			h.state.CompareAndSwap(int32(Running), int32(Failed))
			out = Outcome[T]{State: Failed, Err: err}
		default:
			h.state.CompareAndSwap(int32(Running), int32(Completed))
			out = Outcome[T]{State: Completed, Value: value}
		}
		// A Cancel racing with the transitions above wins only if it got there first.
		if s := State(h.state.Load()); s == Cancelled && out.State != Cancelled {
			out = Outcome[T]{State: Cancelled, Err: context.Canceled}
		}
		if deliver != nil {
			deliver(out)
		}
	}()
	return h
}

func run[T any](ctx context.Context, work func(ctx context.Context) (T, error)) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return work(ctx)
}

// Copyright (c) 2025 AskDB
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package session coordinates one conversational session: agent initialization,
// streaming answers into the transcript, and running SQL.
//
// A single loop goroutine owns all session state and makes every Presenter call.
// Workers never touch that state; they post closures to the loop's inbox. Public
// methods do the same, so they are safe to call from any goroutine while Run is active.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"askdb/cli/internal/agent"
	apperrors "askdb/cli/internal/errors"
	"askdb/cli/internal/logging"
	"askdb/cli/internal/sqlexec"
	"askdb/cli/internal/sqlfmt"
	"askdb/cli/internal/stream"
	"askdb/cli/internal/task"
)

// DefaultTeardownWait bounds how long Close waits for cancelled tasks to acknowledge.
const DefaultTeardownWait = 2 * time.Second

const (
	kindInit   task.Kind = "init"
	kindStream task.Kind = "stream"
	kindExec   task.Kind = "exec"
)

// InitFunc constructs the agent. It runs on a worker goroutine.
type InitFunc func(ctx context.Context) (agent.Agent, error)

// ExecFunc runs one SQL statement. It runs on a worker goroutine.
type ExecFunc func(ctx context.Context, sql string) (*sqlexec.Result, error)

// Config wires a session to its collaborators.
type Config struct {
	Init      InitFunc
	Exec      ExecFunc
	Presenter Presenter
	Logger    *zap.Logger
	// FormatQuery is applied to discovered queries. Defaults to sqlfmt.Format.
	FormatQuery  func(string) string
	TeardownWait time.Duration
}

// Session is the orchestrator of one conversation.
type Session struct {
	id  string
	cfg Config
	log *zap.Logger

	inbox    chan func()
	quit     chan struct{}
	quitOnce sync.Once
	done     chan struct{}
	started  atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc

	// Loop-owned state.
	agent          agent.Agent
	pending        []pendingPrompt
	transcript     []Message
	queries        []QueryEntry
	runningInit    *task.Handle
	runningStreams map[int]*task.Handle
	runningExec    *task.Handle
}

// New creates a session. Call Run to start its loop.
func New(cfg Config) *Session {
	if cfg.FormatQuery == nil {
		cfg.FormatQuery = sqlfmt.Format
	}
	if cfg.TeardownWait <= 0 {
		cfg.TeardownWait = DefaultTeardownWait
	}
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		id:             id,
		cfg:            cfg,
		log:            logging.OrNop(cfg.Logger).With(zap.String("session_id", id)),
		inbox:          make(chan func(), 64),
		quit:           make(chan struct{}),
		done:           make(chan struct{}),
		ctx:            ctx,
		cancel:         cancel,
		runningStreams: make(map[int]*task.Handle),
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Run processes the inbox until ctx is cancelled or Close is called, then tears the
// session down.
func (s *Session) Run(ctx context.Context) error {
	s.started.Store(true)
	defer close(s.done)
	defer s.teardown()

	for {
		select {
		case fn := <-s.inbox:
			fn()
		case <-s.quit:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close tears the session down: running tasks are cancelled and waited for briefly.
// The transcript and query log are discarded.
func (s *Session) Close() {
	s.closeQuit()
	if s.started.Load() {
		<-s.done
	}
}

// Submit sends a prompt to the agent, queueing it when the agent is not ready yet.
func (s *Session) Submit(prompt string) {
	s.post(func() { s.submit(prompt) })
}

// RunSQL records user-written SQL in the query log and executes it.
func (s *Session) RunSQL(sql string) {
	s.post(func() { s.runAdHoc(sql) })
}

// Replay re-executes the query log entry at position i (zero based).
func (s *Session) Replay(i int) {
	s.post(func() { s.replay(i) })
}

// RetryInit starts agent initialization again if the agent is not ready and no
// initialization is running.
func (s *Session) RetryInit() {
	s.post(func() {
		if s.agent == nil {
			s.ensureInit()
		}
	})
}

// Transcript returns a copy of the transcript.
func (s *Session) Transcript() []Message {
	var out []Message
	s.call(func() {
		out = make([]Message, len(s.transcript))
		for i, m := range s.transcript {
			out[i] = m.clone()
		}
	})
	return out
}

// Queries returns a copy of the discovered-query log.
func (s *Session) Queries() []QueryEntry {
	var out []QueryEntry
	s.call(func() { out = append([]QueryEntry(nil), s.queries...) })
	return out
}

// post hands fn to the loop. It reports false once the session is shutting down.
func (s *Session) post(fn func()) bool {
	select {
	case <-s.quit:
		return false
	default:
	}
	select {
	case s.inbox <- fn:
		return true
	case <-s.quit:
		return false
	}
}

// call runs fn on the loop and waits for it.
func (s *Session) call(fn func()) {
	ran := make(chan struct{})
	if !s.post(func() { fn(); close(ran) }) {
		return
	}
	select {
	case <-ran:
	case <-s.done:
	}
}

func (s *Session) closeQuit() {
	s.quitOnce.Do(func() { close(s.quit) })
}

func (s *Session) appendMessage(m Message) int {
	s.transcript = append(s.transcript, m)
	idx := len(s.transcript) - 1
	s.notifyMessage(idx)
	return idx
}

func (s *Session) notifyMessage(idx int) {
	if s.cfg.Presenter != nil {
		s.cfg.Presenter.TranscriptChanged(idx, s.transcript[idx].clone())
	}
}

func (s *Session) notifyQueries() {
	if s.cfg.Presenter != nil {
		s.cfg.Presenter.QueryListChanged(append([]QueryEntry(nil), s.queries...))
	}
}

func (s *Session) submit(prompt string) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return
	}
	s.appendMessage(Message{Role: RoleUser, Text: prompt})
	idx := s.appendMessage(Message{Role: RoleAI, Pending: true, Queued: s.agent == nil})

	if s.agent != nil {
		s.startStream(idx, prompt)
		return
	}
	s.pending = append(s.pending, pendingPrompt{index: idx, prompt: prompt})
	s.ensureInit()
}

// ensureInit starts agent initialization unless one is already running.
func (s *Session) ensureInit() {
	if s.runningInit != nil && s.runningInit.IsRunning() {
		return
	}
	if s.cfg.Init == nil {
		return
	}
	s.log.Debug("starting agent initialization")

	var h *task.Handle
	h = task.Start[agent.Agent](s.ctx, kindInit, s.cfg.Init, func(o task.Outcome[agent.Agent]) {
		s.post(func() { s.onInitDone(h, o) })
	})
	s.runningInit = h
}

func (s *Session) onInitDone(h *task.Handle, o task.Outcome[agent.Agent]) {
	if s.runningInit != h {
		return
	}
	s.runningInit = nil

	switch o.State {
	case task.Completed:
		s.agent = o.Value
		pending := s.pending
		s.pending = nil
		s.log.Info("agent ready", zap.Int("queued_prompts", len(pending)))
		for _, p := range pending {
			s.transcript[p.index].Queued = false
			s.startStream(p.index, p.prompt)
		}
	case task.Failed:
		msg := apperrors.Message(o.Err)
		s.log.Warn("agent initialization failed", zap.String("error", logging.Mask(msg)))
		s.appendMessage(Message{Role: RoleError, Text: msg})
		if s.cfg.Presenter != nil {
			s.cfg.Presenter.AgentInitFailed(msg)
		}
	}
}

func (s *Session) startStream(idx int, prompt string) {
	// The sequence is created here so streams start in submission order; it does
	// no work until the worker ranges over it.
	chunks := s.agent.Stream(s.ctx, prompt)
	log := s.log.With(zap.Int("message", idx))

	var h *task.Handle
	h = task.Start(s.ctx, kindStream, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, stream.Run(ctx, chunks, log, func(ev stream.Event) {
			s.post(func() { s.onStreamEvent(idx, ev) })
		})
	}, func(o task.Outcome[struct{}]) {
		s.post(func() { s.onStreamDone(idx, h, o) })
	})
	s.runningStreams[idx] = h
}

func (s *Session) onStreamEvent(idx int, ev stream.Event) {
	if idx < 0 || idx >= len(s.transcript) {
		return
	}
	msg := &s.transcript[idx]

	switch ev.Kind {
	case stream.StatusUpdate:
		msg.Text = stream.MergeStatus(msg.Text, ev.Text)
		msg.Pending = false
		s.notifyMessage(idx)
	case stream.DiscoveredQuery:
		sql := s.cfg.FormatQuery(ev.Text)
		msg.Queries = append(msg.Queries, sql)
		s.queries = append(s.queries, QueryEntry{SQL: sql, Source: idx})
		s.notifyQueries()
	}
}

func (s *Session) onStreamDone(idx int, h *task.Handle, o task.Outcome[struct{}]) {
	if s.runningStreams[idx] == h {
		delete(s.runningStreams, idx)
	}

	switch o.State {
	case task.Completed:
		if qs := s.transcript[idx].Queries; len(qs) > 0 {
			s.startExec(qs[len(qs)-1])
		}
	case task.Failed:
		msg := apperrors.Message(o.Err)
		s.log.Warn("agent stream failed", zap.Int("message", idx), zap.String("error", logging.Mask(msg)))
		s.appendMessage(Message{Role: RoleError, Text: msg})
	}
}

func (s *Session) runAdHoc(sql string) {
	sql = strings.TrimSpace(sql)
	if sql == "" {
		return
	}
	s.queries = append(s.queries, QueryEntry{SQL: sql, Source: NoSource})
	s.notifyQueries()
	s.startExec(sql)
}

func (s *Session) replay(i int) {
	if i < 0 || i >= len(s.queries) {
		if s.cfg.Presenter != nil {
			s.cfg.Presenter.SQLFailed(fmt.Sprintf("no query #%d in the query log", i+1))
		}
		return
	}
	s.startExec(s.queries[i].SQL)
}

// startExec supersedes any running execution: it is cancelled, and its outcome is
// ignored because it is no longer the current handle.
func (s *Session) startExec(sql string) {
	if s.runningExec != nil && s.runningExec.IsRunning() {
		s.log.Debug("superseding running statement", zap.String("task", s.runningExec.ID()))
		s.runningExec.Cancel()
	}

	var h *task.Handle
	h = task.Start(s.ctx, kindExec, func(ctx context.Context) (*sqlexec.Result, error) {
		return s.cfg.Exec(ctx, sql)
	}, func(o task.Outcome[*sqlexec.Result]) {
		s.post(func() { s.onExecDone(h, o) })
	})
	s.runningExec = h
}

func (s *Session) onExecDone(h *task.Handle, o task.Outcome[*sqlexec.Result]) {
	if s.runningExec != h {
		return
	}
	s.runningExec = nil
	if s.cfg.Presenter == nil {
		return
	}

	switch o.State {
	case task.Completed:
		s.cfg.Presenter.SQLResultReady(o.Value)
	case task.Failed:
		s.cfg.Presenter.SQLFailed(apperrors.Message(o.Err))
	}
}

func (s *Session) teardown() {
	s.closeQuit()

	var handles []*task.Handle
	if s.runningInit != nil {
		handles = append(handles, s.runningInit)
	}
	for _, h := range s.runningStreams {
		handles = append(handles, h)
	}
	if s.runningExec != nil {
		handles = append(handles, s.runningExec)
	}
	for _, h := range handles {
		h.Cancel()
	}
	s.cancel()

	deadline := time.Now().Add(s.cfg.TeardownWait)
	for _, h := range handles {
		if !h.Wait(time.Until(deadline)) {
			s.log.Warn("task did not stop in time", zap.String("kind", string(h.Kind())), zap.String("task", h.ID()))
		}
	}

	s.agent = nil
	s.pending = nil
	s.transcript = nil
	s.queries = nil
	s.runningInit = nil
	s.runningStreams = make(map[int]*task.Handle)
	s.runningExec = nil
	s.log.Debug("session closed", zap.Int("cancelled_tasks", len(handles)))
}

// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package conds

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"
)

// ScopeState is the lifecycle state of a dynamic extent.
type ScopeState uint8

const (
	// Active is normal execution.
	Active ScopeState = iota
	// Signaled means a Signal call from this extent is searching handlers.
	Signaled
	// Resumed means the last signal returned to its call site.
	// The extent executes normally, as in Active.
	Resumed
	// Unwound means a claimed signal or restart is unwinding past the extent.
	Unwound
	// Exited is terminal.
	Exited
)

func (s ScopeState) String() string {
	switch s {
	case Active:
		return "active"
	case Signaled:
		return "signaled"
	case Resumed:
		return "resumed"
	case Unwound:
		return "unwound"
	case Exited:
		return "exited"
	default:
		return fmt.Sprintf("ScopeState(%d)", uint8(s))
	}
}

// extent is one dynamic extent with its cleanup guards.
type extent struct {
	id     uint64
	state  ScopeState
	guards []func() error
}

// Task is the task-local state of one top-level computation: its handler
// stack, restart stack and chain of extents.
//
// A Task is used by a single goroutine and is not safe for concurrent use.
// Concurrent computations each get their own Task and never observe each
// other's frames.
type Task struct {
	id     uuid.UUID
	ctx    context.Context
	cfg    config
	logger *slog.Logger

	handlers []*handlerFrame
	restarts []*Restart
	extents  []*extent
	pending  *unwinding
	root     *Restart
	seq      uint64

	running     bool
	interrupted bool
	hooked      *Condition
	suppressed  []*Condition
	warnings    []*Condition
}

// NewTask creates an idle task bound to ctx.
func NewTask(ctx context.Context, opts ...Option) *Task {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := newConfig(opts)
	id := cfg.id
	if id == uuid.Nil {
		id = uuid.New()
	}
	return &Task{
		id:     id,
		ctx:    ctx,
		cfg:    cfg,
		logger: cfg.logger.With("task", id.String()),
	}
}

// Run runs body as a new top-level computation in its own task.
func Run(ctx context.Context, body Body, opts ...Option) (Value, error) {
	return NewTask(ctx, opts...).Run(body)
}

// Run runs body as the task's top-level computation.
//
// An error or interrupt condition that nobody handles ends the computation
// with an *UnhandledError. Invoking the top-level "abort" restart ends it
// with ErrAborted. Other Go errors returned by body pass through unchanged.
func (t *Task) Run(body Body) (v Value, err error) {
	if t.running {
		return nil, fmt.Errorf("%w: task %s is already running", ErrScopeViolation, t.id)
	}
	t.running = true
	t.pending = nil
	t.interrupted = false
	t.hooked = nil
	t.suppressed = nil
	t.warnings = nil
	defer func() {
		t.running = false
		t.root = nil
		t.flushWarnings()
	}()

	tok := t.PushRestart(RestartAbort, t.abort)
	t.root = tok.restarts[0]
	v, err = t.within(tok.Release, body)
	v, err = tok.Catch(v, err)
	if u := asUnwinding(err); u != nil {
		t.pending = nil
		return nil, fmt.Errorf("%w: unwind escaped its target: %v", ErrScopeViolation, u)
	}
	return v, err
}

// abort is the top-level restart. With a condition argument it reports that
// condition as unhandled.
func (t *Task) abort(_ *Task, args ...Value) (Value, error) {
	if len(args) == 1 {
		if c, ok := args[0].(*Condition); ok {
			return nil, &UnhandledError{Condition: c, Suppressed: slices.Clone(t.suppressed)}
		}
	}
	return nil, ErrAborted
}

// ID returns the task identifier.
func (t *Task) ID() uuid.UUID { return t.id }

// Context returns the context the task was created with.
func (t *Task) Context() context.Context { return t.ctx }

// Logger returns the task logger.
func (t *Task) Logger() *slog.Logger { return t.logger }

// State returns the state of the innermost active extent, or Exited when the
// task is idle.
func (t *Task) State() ScopeState {
	if n := len(t.extents); n > 0 {
		return t.extents[n-1].state
	}
	return Exited
}

// Depth returns the number of active extents.
func (t *Task) Depth() int { return len(t.extents) }

// Suppressed returns the cleanup failures recorded during the last Run.
func (t *Task) Suppressed() []*Condition { return slices.Clone(t.suppressed) }

// Warnings returns the warnings collected under WarnDeferred.
func (t *Task) Warnings() []*Condition { return slices.Clone(t.warnings) }

func (t *Task) nextID() uint64 {
	t.seq++
	return t.seq
}

// unwind starts a non-local exit and returns it as an error.
func (t *Task) unwind(u *unwinding) error {
	t.pending = u
	t.logger.Debug("unwind", "target", u.target, "reason", u.Error())
	return u
}

// claim completes the in-flight unwind if it targets the token with id.
func (t *Task) claim(id uint64) *unwinding {
	u := t.pending
	if u == nil || u.target != id {
		return nil
	}
	t.pending = nil
	return u
}

func (t *Task) flushWarnings() {
	if t.cfg.warn != WarnDeferred {
		return
	}
	for _, c := range t.warnings {
		t.cfg.reporter.Report(t, c)
	}
}

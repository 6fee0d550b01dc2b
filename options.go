// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package conds

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"code.hybscloud.com/conds/internal/logging"
)

// WarnLevel selects the default disposition of unhandled warnings.
type WarnLevel int

const (
	// WarnIgnore drops unhandled warnings after handlers had their turn.
	WarnIgnore WarnLevel = iota - 1
	// WarnDeferred collects unhandled warnings and reports them when Run returns.
	WarnDeferred
	// WarnImmediate reports unhandled warnings as they are signaled.
	WarnImmediate
	// WarnError turns warnings signaled through Task.Warning into errors.
	WarnError
)

func (l WarnLevel) String() string {
	switch l {
	case WarnIgnore:
		return "ignore"
	case WarnDeferred:
		return "deferred"
	case WarnImmediate:
		return "immediate"
	case WarnError:
		return "error"
	default:
		return fmt.Sprintf("WarnLevel(%d)", int(l))
	}
}

// ParseWarnLevel parses a level name or its numeric form (-1..2).
func ParseWarnLevel(s string) (WarnLevel, error) {
	switch s {
	case "ignore", "-1":
		return WarnIgnore, nil
	case "deferred", "0":
		return WarnDeferred, nil
	case "immediate", "1", "":
		return WarnImmediate, nil
	case "error", "2":
		return WarnError, nil
	}
	return 0, fmt.Errorf("invalid warn level %q: must be ignore, deferred, immediate, or error", s)
}

// Hooks observe dispatch. Nil fields are skipped.
type Hooks struct {
	// OnSignal runs before the handler search of every signal.
	OnSignal func(t *Task, c *Condition)
	// OnHandled runs when a calling handler is invoked or an exiting
	// handler's action is about to run.
	OnHandled func(t *Task, c *Condition, d Discipline)
	// OnRestart runs when a restart is invoked.
	OnRestart func(t *Task, r *Restart)
	// OnUnhandled runs once for every error or interrupt nobody claimed.
	OnUnhandled func(t *Task, c *Condition)
	// OnCleanupFailure runs for every failing cleanup guard.
	OnCleanupFailure func(t *Task, c *Condition)
}

type hookSet []Hooks

func (hs hookSet) signal(t *Task, c *Condition) {
	for _, h := range hs {
		if h.OnSignal != nil {
			h.OnSignal(t, c)
		}
	}
}

func (hs hookSet) handled(t *Task, c *Condition, d Discipline) {
	for _, h := range hs {
		if h.OnHandled != nil {
			h.OnHandled(t, c, d)
		}
	}
}

func (hs hookSet) restart(t *Task, r *Restart) {
	for _, h := range hs {
		if h.OnRestart != nil {
			h.OnRestart(t, r)
		}
	}
}

func (hs hookSet) unhandled(t *Task, c *Condition) {
	for _, h := range hs {
		if h.OnUnhandled != nil {
			h.OnUnhandled(t, c)
		}
	}
}

func (hs hookSet) cleanupFailure(t *Task, c *Condition) {
	for _, h := range hs {
		if h.OnCleanupFailure != nil {
			h.OnCleanupFailure(t, c)
		}
	}
}

type config struct {
	id        uuid.UUID
	logger    *slog.Logger
	reporter  Reporter
	hooks     hookSet
	warn      WarnLevel
	unhandled UnhandledHook
}

// Option configures a Task.
type Option func(*config)

func newConfig(opts []Option) config {
	cfg := config{warn: WarnImmediate}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logging.New(slog.LevelInfo)
	}
	if cfg.reporter == nil {
		cfg.reporter = LogReporter(cfg.logger)
	}
	return cfg
}

// WithLogger sets the structured logger used for dispatch tracing and by
// the default reporter.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithReporter replaces the default reporter of warnings, messages and
// cleanup failures.
func WithReporter(r Reporter) Option {
	return func(c *config) {
		c.reporter = r
	}
}

// WithHooks registers observability hooks. Repeated options accumulate.
func WithHooks(h Hooks) Option {
	return func(c *config) {
		c.hooks = append(c.hooks, h)
	}
}

// WithWarnLevel sets the default disposition of warnings.
func WithWarnLevel(level WarnLevel) Option {
	return func(c *config) {
		c.warn = level
	}
}

// WithUnhandledHook overrides the process-wide unhandled-error hook for
// this task.
func WithUnhandledHook(h UnhandledHook) Option {
	return func(c *config) {
		c.unhandled = h
	}
}

// WithTaskID fixes the task identifier instead of generating one.
func WithTaskID(id uuid.UUID) Option {
	return func(c *config) {
		c.id = id
	}
}

// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package conds

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// Reporter performs the default report of conditions that resume execution
// without a handler (warnings and messages) and of cleanup failures.
type Reporter interface {
	Report(t *Task, c *Condition)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(t *Task, c *Condition)

// Report implements Reporter.
func (f ReporterFunc) Report(t *Task, c *Condition) { f(t, c) }

type logReporter struct {
	logger *slog.Logger
}

// LogReporter reports through logger: messages at Info, warnings at Warn,
// cleanup failures and anything of error severity at Error.
func LogReporter(logger *slog.Logger) Reporter {
	return &logReporter{logger: logger}
}

func (r *logReporter) Report(t *Task, c *Condition) {
	level := slog.LevelInfo
	switch c.Severity() {
	case SeverityWarning:
		level = slog.LevelWarn
	case SeverityError, SeverityInterrupt:
		level = slog.LevelError
	}
	attrs := []slog.Attr{
		slog.String("task", t.ID().String()),
		slog.String("class", c.class()),
	}
	if o := c.Origin(); o != nil {
		attrs = append(attrs, slog.String("origin", o.String()))
	}
	if cause := c.Cause(); cause != nil {
		attrs = append(attrs, slog.Any("error", cause))
	}
	r.logger.LogAttrs(context.Background(), level, c.Message(), attrs...)
}

// Disposition is the choice of an unhandled-error hook.
type Disposition uint8

const (
	// Abort ends the top-level computation. It is the default.
	Abort Disposition = iota
	// Proceed resumes after the signal site, as for a warning.
	// Interrupts ignore it.
	Proceed
)

func (d Disposition) String() string {
	if d == Proceed {
		return "proceed"
	}
	return "abort"
}

// UnhandledHook is consulted once for every error or interrupt condition
// that no handler claimed. A hook may also invoke a restart of t, in which
// case control transfers there and the returned Disposition is ignored.
type UnhandledHook func(t *Task, c *Condition) Disposition

var unhandledHook atomic.Pointer[UnhandledHook]

// OnUnhandledError installs the process-wide unhandled-error hook and
// returns the previous one. A nil hook restores the default, Abort.
func OnUnhandledError(h UnhandledHook) (prev UnhandledHook) {
	var p *UnhandledHook
	if h != nil {
		p = &h
	}
	if old := unhandledHook.Swap(p); old != nil {
		return *old
	}
	return nil
}

func (t *Task) unhandledDisposition(c *Condition) Disposition {
	h := t.cfg.unhandled
	if h == nil {
		if p := unhandledHook.Load(); p != nil {
			h = *p
		}
	}
	if h == nil {
		return Abort
	}
	return h(t, c)
}

// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package conds

import (
	"errors"
	"fmt"
	"slices"
)

// Scope runs body in a new dynamic extent. Cleanup guards registered with
// Defer while the extent is innermost run when it exits, whatever the exit
// path: normal return, a claimed signal or restart unwinding past it, an
// unhandled error, or a Go panic.
func Scope(t *Task, body Body) (v Value, err error) {
	e := &extent{id: t.nextID(), state: Active}
	t.extents = append(t.extents, e)
	defer func() {
		if err = t.exit(e, err); IsUnwinding(err) {
			v = nil
		}
	}()
	return body(t)
}

// exit pops e, runs its guards and restores an in-flight unwind the body
// dropped.
func (t *Task) exit(e *extent, err error) error {
	if i := slices.Index(t.extents, e); i >= 0 {
		clear(t.extents[i:])
		t.extents = t.extents[:i]
	}
	if t.pending != nil {
		e.state = Unwound
	}
	t.runGuards(e)
	e.state = Exited
	if t.pending != nil && asUnwinding(err) != t.pending {
		err = t.pending
	}
	return err
}

// runGuards runs e's guards newest first, each exactly once.
func (t *Task) runGuards(e *extent) {
	for i, g := range slices.Backward(e.guards) {
		e.guards[i] = nil
		t.runGuard(g)
	}
	e.guards = nil
}

// runGuard runs g with any in-flight unwind set aside and an exiting handler
// for errors established, so every failure of g ends up in cleanupFailed.
// An unwind g starts itself replaces the set-aside one only when there was
// none.
func (t *Task) runGuard(g func() error) {
	saved := t.pending
	t.pending = nil
	tok := t.PushHandlers(ExitingHandler(func(_ *Task, c *Condition) (Value, error) {
		return c, nil
	}, ClassError))
	v, err := tok.Catch(nil, t.callGuard(tok, g))
	if c, ok := v.(*Condition); ok && err == nil {
		t.cleanupFailed(c)
	} else if err != nil && !IsUnwinding(err) {
		t.cleanupFailed(err)
	}
	if saved == nil {
		return
	}
	if t.pending != nil {
		t.cleanupFailed(fmt.Errorf("cleanup started %v while unwinding", t.pending))
	}
	t.pending = saved
}

func (t *Task) callGuard(tok *HandlerToken, g func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in cleanup: %v", r)
		}
		if rerr := tok.Release(); rerr != nil {
			err = errors.Join(err, rerr)
		}
	}()
	return g()
}

// cleanupFailed records a failing guard as a secondary condition.
func (t *Task) cleanupFailed(err error) {
	msg := err.Error()
	if c, ok := err.(*Condition); ok {
		msg = c.message
	}
	c := NewCondition([]string{ClassCleanupError, ClassError}, msg, WithCause(err))
	t.suppressed = append(t.suppressed, c)
	t.logger.Debug("cleanup failed", "error", err)
	t.cfg.hooks.cleanupFailure(t, c)
	t.cfg.reporter.Report(t, c)
}

// Defer registers fn to run when the innermost active extent exits.
// Guards of one extent run in reverse registration order. A guard that
// fails, by error or panic, is reported as a cleanup failure and does not
// stop the remaining guards.
//
// Defer panics when t has no active extent.
func (t *Task) Defer(fn func() error) {
	n := len(t.extents)
	if n == 0 {
		panic("conds: Defer outside of an active scope")
	}
	e := t.extents[n-1]
	e.guards = append(e.guards, fn)
}

// TryFinally runs body in a new extent with finally registered as its first
// guard.
func TryFinally(t *Task, body Body, finally func() error) (Value, error) {
	return Scope(t, func(t *Task) (Value, error) {
		t.Defer(finally)
		return body(t)
	})
}

// Bracket provides exception-safe resource acquisition and release:
// acquire → use → release, where release is guaranteed to run once acquire
// succeeded, however use exits.
func Bracket[R any](
	t *Task,
	acquire func(t *Task) (R, error),
	release func(R) error,
	use func(t *Task, resource R) (Value, error),
) (Value, error) {
	return Scope(t, func(t *Task) (Value, error) {
		resource, err := acquire(t)
		if err != nil {
			return nil, err
		}
		t.Defer(func() error { return release(resource) })
		return use(t, resource)
	})
}

// OnError runs cleanup only if body exits with an error or is unwound past.
// The cause passed to cleanup is the error, or the in-flight unwind.
func OnError(t *Task, body Body, cleanup func(cause error) error) (Value, error) {
	return Scope(t, func(t *Task) (Value, error) {
		v, err := body(t)
		cause := err
		if cause == nil && t.pending != nil {
			cause = t.pending
		}
		if cause != nil {
			t.runGuard(func() error { return cleanup(cause) })
		}
		return v, err
	})
}

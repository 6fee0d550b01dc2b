// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package conds

import (
	"context"
	"fmt"
	"slices"
)

// Signal dispatches c to t's handlers and applies the default disposition
// when none claims it.
//
// Handlers are searched from the most recently established outward. A
// matching calling handler runs in place with itself and every newer frame
// hidden, so a signal from inside its action is dispatched outward; when it
// returns normally the search continues. A matching exiting handler ends the
// search: Signal returns the in-flight unwind, which the caller must return.
//
// Without a claim:
//   - error: the unhandled hook is consulted once; by default the
//     computation aborts and Run returns an *UnhandledError.
//   - interrupt: like error, except that the computation always aborts.
//   - warning, message: reported, then Signal returns (Continue, nil).
//   - anything else: Signal returns (Continue, nil).
//
// While an unwind is in flight Signal returns it without dispatching.
func (t *Task) Signal(c *Condition) (Value, error) {
	if t.pending != nil {
		return nil, t.pending
	}
	if !t.running {
		return nil, ErrNoActiveScope
	}
	var e *extent
	var prev ScopeState
	if n := len(t.extents); n > 0 {
		e = t.extents[n-1]
		prev, e.state = e.state, Signaled
	}
	t.logger.Debug("signal", "class", c.class(), "severity", c.severity, "message", c.message)
	t.cfg.hooks.signal(t, c)

	v, err := t.dispatch(c)
	if err == nil && e != nil {
		e.state = Resumed
		if prev == Signaled {
			e.state = Signaled
		}
	}
	return v, err
}

func (t *Task) dispatch(c *Condition) (Value, error) {
	for i := len(t.handlers) - 1; i >= 0; i-- {
		f := t.handlers[i]
		if !c.matches(f.Classes) {
			continue
		}
		if f.Discipline == Exiting {
			return nil, t.unwind(&unwinding{kind: unwindHandler, target: f.owner, action: f.Action, cond: c})
		}
		if f.Action == nil {
			continue
		}
		t.cfg.hooks.handled(t, c, Calling)
		if err := t.call(i, f, c); err != nil {
			return nil, err
		}
		if t.pending != nil {
			return nil, t.pending
		}
	}
	return t.dispose(c)
}

// call runs a calling handler with frames from index i upward hidden.
func (t *Task) call(i int, f *handlerFrame, c *Condition) error {
	saved := t.handlers
	t.handlers = saved[:i:i]
	defer func() { t.handlers = saved }()
	_, err := f.Action(t, c)
	return err
}

// dispose applies the default disposition of an unclaimed condition.
func (t *Task) dispose(c *Condition) (Value, error) {
	switch c.severity {
	case SeverityError, SeverityInterrupt:
		return t.unhandled(c)
	case SeverityWarning:
		t.reportWarning(c)
	case SeverityMessage:
		t.cfg.reporter.Report(t, c)
	}
	return Continue, nil
}

func (t *Task) unhandled(c *Condition) (Value, error) {
	if t.hooked != nil {
		// Signaled by the unhandled hook itself: recorded, and the condition
		// the hook was consulted for aborts.
		t.logger.Debug("unhandled inside hook", "class", c.class(), "message", c.message)
		t.suppressed = append(t.suppressed, c)
		return nil, t.abortWith(t.hooked)
	}
	t.logger.Debug("unhandled", "class", c.class(), "message", c.message)
	d := t.consultHook(c)
	if t.pending != nil {
		return nil, t.pending
	}
	if d == Proceed && c.severity != SeverityInterrupt {
		return Continue, nil
	}
	return nil, t.abortWith(c)
}

func (t *Task) consultHook(c *Condition) Disposition {
	t.hooked = c
	defer func() { t.hooked = nil }()
	t.cfg.hooks.unhandled(t, c)
	return t.unhandledDisposition(c)
}

// abortWith ends the computation with c as the unhandled condition.
func (t *Task) abortWith(c *Condition) error {
	if t.pending != nil {
		return t.pending
	}
	if t.root == nil {
		return &UnhandledError{Condition: c, Suppressed: slices.Clone(t.suppressed)}
	}
	return t.InvokeRestartHandle(t.root, c)
}

func (t *Task) reportWarning(c *Condition) {
	switch t.cfg.warn {
	case WarnIgnore:
	case WarnDeferred:
		t.warnings = append(t.warnings, c)
	default:
		t.cfg.reporter.Report(t, c)
	}
}

// Error signals an error condition with message msg.
func (t *Task) Error(msg string, classes ...string) (Value, error) {
	return t.Signal(NewCondition(append(slices.Clip(classes), ClassError), msg, At(Caller(1))))
}

// Errorf signals an error condition with a formatted message.
func (t *Task) Errorf(format string, args ...any) (Value, error) {
	return t.Signal(NewCondition([]string{ClassError}, fmt.Sprintf(format, args...), At(Caller(1))))
}

// Stop signals err as an error condition. A *Condition in err's chain is
// signaled as is. Stop(nil) signals nothing and returns Continue.
func (t *Task) Stop(err error) (Value, error) {
	if err == nil {
		return Continue, nil
	}
	if c, ok := AsCondition(err); ok {
		return t.Signal(c)
	}
	return t.Signal(NewCondition([]string{ClassGoError, ClassError}, err.Error(), WithCause(err), At(Caller(1))))
}

// Warning signals a warning condition with a muffleWarning restart
// established around the signal. Under WarnError the warning is signaled as
// an error instead.
func (t *Task) Warning(msg string, classes ...string) (Value, error) {
	return t.warn(NewCondition(append(slices.Clip(classes), ClassWarning), msg, At(Caller(1))))
}

// Warningf signals a warning condition with a formatted message.
func (t *Task) Warningf(format string, args ...any) (Value, error) {
	return t.warn(NewCondition([]string{ClassWarning}, fmt.Sprintf(format, args...), At(Caller(1))))
}

func (t *Task) warn(c *Condition) (Value, error) {
	if t.cfg.warn == WarnError {
		classes := slices.DeleteFunc(c.Classes(), func(class string) bool { return class == ClassWarning })
		converted := NewCondition(append(classes, ClassError), "(converted from warning) "+c.message,
			At(c.origin), WithData(c.data), WithCause(c))
		return t.Signal(converted)
	}
	return WithRestart(t, RestartMuffleWarning, muffled, func(t *Task) (Value, error) {
		return t.Signal(c)
	})
}

// Message signals a message condition with a muffleMessage restart
// established around the signal.
func (t *Task) Message(msg string, classes ...string) (Value, error) {
	return t.inform(NewCondition(append(slices.Clip(classes), ClassMessage), msg, At(Caller(1))))
}

// Messagef signals a message condition with a formatted message.
func (t *Task) Messagef(format string, args ...any) (Value, error) {
	return t.inform(NewCondition([]string{ClassMessage}, fmt.Sprintf(format, args...), At(Caller(1))))
}

func (t *Task) inform(c *Condition) (Value, error) {
	return WithRestart(t, RestartMuffleMessage, muffled, func(t *Task) (Value, error) {
		return t.Signal(c)
	})
}

func muffled(*Task, ...Value) (Value, error) { return Continue, nil }

// Interrupt signals an interrupt condition. Unless an exiting handler for
// ClassInterrupt claims it, or a handler invokes a restart, the computation
// aborts.
func (t *Task) Interrupt(cause error) (Value, error) {
	c := NewInterrupt(cause)
	c.origin = Caller(1)
	return t.Signal(c)
}

// Checkpoint turns cancellation of the task's context into an interrupt.
// The interrupt is signaled once per Run; Checkpoint returns nil when the
// context is live or the interrupt was already handled.
func (t *Task) Checkpoint() error {
	if t.pending != nil {
		return t.pending
	}
	if t.interrupted || t.ctx.Err() == nil {
		return nil
	}
	t.interrupted = true
	c := NewInterrupt(context.Cause(t.ctx))
	c.origin = Caller(1)
	_, err := t.Signal(c)
	return err
}

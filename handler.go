// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package conds

import (
	"errors"
	"fmt"
	"slices"
)

// Discipline is how a handler takes part in dispatch.
type Discipline uint8

const (
	// Exiting handlers claim the signal: the stack unwinds to the point where
	// the handler was established and its action's result becomes the result
	// of that WithHandlers call.
	Exiting Discipline = iota
	// Calling handlers run at the signal site without unwinding. A normal
	// return lets the search continue outward.
	Calling
)

func (d Discipline) String() string {
	if d == Calling {
		return "calling"
	}
	return "exiting"
}

// HandlerFunc is a handler action.
//
// For a calling handler the returned value is discarded; a returned error
// (typically from InvokeRestart) stops the search and is returned by Signal.
// For an exiting handler the result is the result of the establishing call.
type HandlerFunc func(t *Task, c *Condition) (Value, error)

// Handler is one handler registration. Empty Classes match every condition.
type Handler struct {
	Discipline Discipline
	Classes    []string
	Action     HandlerFunc
}

// ExitingHandler returns an exiting handler for classes.
func ExitingHandler(action HandlerFunc, classes ...string) Handler {
	return Handler{Discipline: Exiting, Classes: classes, Action: action}
}

// CallingHandler returns a calling handler for classes.
func CallingHandler(action HandlerFunc, classes ...string) Handler {
	return Handler{Discipline: Calling, Classes: classes, Action: action}
}

type handlerFrame struct {
	Handler
	owner uint64
}

// HandlerToken owns the frames pushed by one PushHandlers call.
type HandlerToken struct {
	t        *Task
	id       uint64
	frames   []*handlerFrame
	released bool
}

// PushHandlers registers handlers on t's handler stack.
//
// Frames from one call are searched in registration order, so the first
// matching handler in the list wins. The caller must Release the token in
// LIFO order with respect to other tokens and then pass its body's result
// through Catch.
func (t *Task) PushHandlers(handlers ...Handler) *HandlerToken {
	tok := &HandlerToken{t: t, id: t.nextID(), frames: make([]*handlerFrame, 0, len(handlers))}
	for _, h := range slices.Backward(handlers) {
		tok.frames = append(tok.frames, &handlerFrame{Handler: h, owner: tok.id})
	}
	t.handlers = append(t.handlers, tok.frames...)
	return tok
}

// Release pops the token's frames. It fails with ErrScopeViolation, leaving
// the stack untouched, when the frames are not on top or were released
// already.
func (tok *HandlerToken) Release() error {
	t := tok.t
	if tok.released {
		return fmt.Errorf("%w: handler frames released twice", ErrScopeViolation)
	}
	n, top := len(tok.frames), len(t.handlers)
	if top < n || !slices.Equal(t.handlers[top-n:], tok.frames) {
		return fmt.Errorf("%w: handler frames released out of order", ErrScopeViolation)
	}
	clear(t.handlers[top-n:])
	t.handlers = t.handlers[:top-n]
	tok.released = true
	return nil
}

// Catch completes an exiting claim aimed at the token. When the in-flight
// unwind targets one of its handlers, Catch ends the unwind and returns the
// result of that handler's action; otherwise v and err pass through.
func (tok *HandlerToken) Catch(v Value, err error) (Value, error) {
	t := tok.t
	u := t.claim(tok.id)
	if u == nil {
		return v, err
	}
	t.cfg.hooks.handled(t, u.cond, Exiting)
	if u.action == nil {
		return nil, nil
	}
	return u.action(t, u.cond)
}

// WithHandlers runs body with handlers established.
//
// A claim by one of the exiting handlers unwinds body, running its cleanup
// guards, pops the handlers and then runs the handler's action; the action's
// result is returned.
func WithHandlers(t *Task, body Body, handlers ...Handler) (Value, error) {
	tok := t.PushHandlers(handlers...)
	v, err := t.within(tok.Release, body)
	return tok.Catch(v, err)
}

// within runs body in a new extent and releases frames afterwards, also on
// panic. A release failure joins the body's error.
func (t *Task) within(release func() error, body Body) (v Value, err error) {
	defer func() {
		if rerr := release(); rerr != nil {
			err = errors.Join(err, rerr)
		}
	}()
	return Scope(t, body)
}

// Ignore runs body and returns (nil, nil) when a condition of classes,
// by default any error, is signaled inside it.
func Ignore(t *Task, body Body, classes ...string) (Value, error) {
	return WithHandlers(t, body, ExitingHandler(nil, withDefault(classes, ClassError)...))
}

// SuppressWarnings runs body, muffling the warnings it signals.
func SuppressWarnings(t *Task, body Body, classes ...string) (Value, error) {
	return WithHandlers(t, body, CallingHandler(muffleWith(RestartMuffleWarning), withDefault(classes, ClassWarning)...))
}

// SuppressMessages runs body, muffling the messages it signals.
func SuppressMessages(t *Task, body Body, classes ...string) (Value, error) {
	return WithHandlers(t, body, CallingHandler(muffleWith(RestartMuffleMessage), withDefault(classes, ClassMessage)...))
}

func muffleWith(restart string) HandlerFunc {
	return func(t *Task, _ *Condition) (Value, error) {
		if r := t.FindRestart(restart); r != nil {
			return nil, t.InvokeRestartHandle(r)
		}
		return nil, nil
	}
}

func withDefault(classes []string, class string) []string {
	if len(classes) == 0 {
		return []string{class}
	}
	return classes
}

// Try runs body and returns its value, or the first error condition
// signaled inside it, as an Outcome. Plain Go errors returned by body are
// converted with FromError. Only unwinds aimed at outer frames are returned
// as errors.
func Try[A any](t *Task, body func(t *Task) (A, error)) (Outcome[A], error) {
	var a A
	v, err := WithHandlers(t, func(t *Task) (Value, error) {
		r, err := body(t)
		a = r
		return nil, err
	}, ExitingHandler(func(_ *Task, c *Condition) (Value, error) {
		return c, nil
	}, ClassError))
	switch {
	case IsUnwinding(err):
		return Outcome[A]{}, err
	case err != nil:
		return Outcome[A]{cond: FromError(err)}, nil
	}
	if c, ok := v.(*Condition); ok {
		return Outcome[A]{cond: c}, nil
	}
	return Outcome[A]{value: a}, nil
}

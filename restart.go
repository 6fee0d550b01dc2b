// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package conds

import (
	"fmt"
	"slices"
	"sync/atomic"
)

// Restarts established by the package itself.
const (
	// RestartAbort is established by Task.Run around the whole computation.
	// Invoking it ends the computation with ErrAborted.
	RestartAbort = "abort"
	// RestartMuffleWarning is established around every Task.Warning signal.
	RestartMuffleWarning = "muffleWarning"
	// RestartMuffleMessage is established around every Task.Message signal.
	RestartMuffleMessage = "muffleMessage"
)

// RestartFunc computes the result of the WithRestart call it was
// established by, from the arguments of the invocation.
type RestartFunc func(t *Task, args ...Value) (Value, error)

// RestartSpec describes one restart for WithRestarts and PushRestarts.
type RestartSpec struct {
	Name   string
	Invoke RestartFunc
}

// Restart is a handle to an established restart.
//
// A handle is live while its establishing extent is active. Once the extent
// exits, by any path, the handle is dead for good and invoking it fails with
// ErrNoSuchRestart.
type Restart struct {
	name   string
	invoke RestartFunc
	owner  uint64
	task   *Task
	dead   atomic.Uintptr
}

// Name returns the restart name; anonymous restarts have an empty name.
func (r *Restart) Name() string { return r.name }

// Live reports whether the restart can still be invoked.
func (r *Restart) Live() bool { return r.dead.Load() == 0 }

func (r *Restart) String() string {
	if r.name == "" {
		return "<anonymous>"
	}
	return r.name
}

func (r *Restart) kill() { r.dead.Store(1) }

// RestartToken owns the restarts pushed by one PushRestarts call.
type RestartToken struct {
	t        *Task
	id       uint64
	restarts []*Restart
	released bool
}

// PushRestart establishes one restart. See PushRestarts.
func (t *Task) PushRestart(name string, invoke RestartFunc) *RestartToken {
	return t.PushRestarts(RestartSpec{Name: name, Invoke: invoke})
}

// PushRestarts establishes restarts on t's restart stack. Restarts from one
// call are searched in registration order.
func (t *Task) PushRestarts(specs ...RestartSpec) *RestartToken {
	tok := &RestartToken{t: t, id: t.nextID(), restarts: make([]*Restart, 0, len(specs))}
	for _, s := range slices.Backward(specs) {
		tok.restarts = append(tok.restarts, &Restart{name: s.Name, invoke: s.Invoke, owner: tok.id, task: t})
	}
	t.restarts = append(t.restarts, tok.restarts...)
	return tok
}

// Restarts returns the token's handles in registration order.
func (tok *RestartToken) Restarts() []*Restart {
	out := slices.Clone(tok.restarts)
	slices.Reverse(out)
	return out
}

// Release pops the token's restarts and kills their handles.
func (tok *RestartToken) Release() error {
	t := tok.t
	if tok.released {
		return fmt.Errorf("%w: restarts released twice", ErrScopeViolation)
	}
	n, top := len(tok.restarts), len(t.restarts)
	if top < n || !slices.Equal(t.restarts[top-n:], tok.restarts) {
		return fmt.Errorf("%w: restarts released out of order", ErrScopeViolation)
	}
	for _, r := range tok.restarts {
		r.kill()
	}
	clear(t.restarts[top-n:])
	t.restarts = t.restarts[:top-n]
	tok.released = true
	return nil
}

// Catch completes a restart invocation aimed at the token: it ends the
// unwind and returns the restart function's result. Otherwise v and err pass
// through.
func (tok *RestartToken) Catch(v Value, err error) (Value, error) {
	u := tok.t.claim(tok.id)
	if u == nil {
		return v, err
	}
	if u.restart.invoke == nil {
		if len(u.args) > 0 {
			return u.args[0], nil
		}
		return nil, nil
	}
	return u.restart.invoke(tok.t, u.args...)
}

// WithRestart runs body with a restart named name established. Invoking the
// restart from anywhere inside body unwinds to this call, which then returns
// invoke's result. A nil invoke returns the first argument.
func WithRestart(t *Task, name string, invoke RestartFunc, body Body) (Value, error) {
	return WithRestarts(t, body, RestartSpec{Name: name, Invoke: invoke})
}

// WithRestarts is WithRestart for several restarts at once.
func WithRestarts(t *Task, body Body, restarts ...RestartSpec) (Value, error) {
	tok := t.PushRestarts(restarts...)
	v, err := t.within(tok.Release, body)
	return tok.Catch(v, err)
}

// FindRestart returns the innermost live restart named name, or nil.
func (t *Task) FindRestart(name string) *Restart {
	for _, r := range slices.Backward(t.restarts) {
		if r.name == name && name != "" {
			return r
		}
	}
	return nil
}

// ComputeRestarts returns the live restarts, innermost first.
func (t *Task) ComputeRestarts() []*Restart {
	out := slices.Clone(t.restarts)
	slices.Reverse(out)
	return out
}

// InvokeRestart transfers control to the innermost restart named name.
//
// On success the returned error is the in-flight unwind, which the caller
// must return. When no such restart is live it returns an error wrapping
// ErrNoSuchRestart and nothing unwinds.
func (t *Task) InvokeRestart(name string, args ...Value) error {
	if t.pending != nil {
		return t.pending
	}
	r := t.FindRestart(name)
	if r == nil {
		return fmt.Errorf("%w: %q", ErrNoSuchRestart, name)
	}
	return t.InvokeRestartHandle(r, args...)
}

// InvokeRestartHandle is InvokeRestart for a handle, which also reaches
// anonymous restarts.
func (t *Task) InvokeRestartHandle(r *Restart, args ...Value) error {
	if t.pending != nil {
		return t.pending
	}
	if r == nil {
		return fmt.Errorf("%w: nil handle", ErrNoSuchRestart)
	}
	if r.task != t || !r.Live() {
		return fmt.Errorf("%w: %s is not active", ErrNoSuchRestart, r)
	}
	t.logger.Debug("restart", "name", r.name)
	t.cfg.hooks.restart(t, r)
	return t.unwind(&unwinding{kind: unwindRestart, target: r.owner, restart: r, args: args})
}

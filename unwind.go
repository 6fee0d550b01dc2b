// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package conds

import "errors"

// Value is the type-erased result flowing through bodies, handlers and restarts.
type Value = any

// Body is a computation run inside an extent of a task.
//
// A body that receives an error from Signal, InvokeRestart, Checkpoint or a
// nested construct must return it. Extents restore an in-flight unwind that a
// body drops, but code after the drop still runs.
type Body func(t *Task) (Value, error)

type continueValue struct{}

func (continueValue) String() string { return "continue" }

// Continue is the value Signal returns when execution resumes after the
// signal site: a warning or message reported by default, a plain condition
// nobody claimed, or an error whose unhandled hook chose Proceed.
var Continue Value = continueValue{}

type unwindKind uint8

const (
	unwindHandler unwindKind = iota
	unwindRestart
)

// unwinding is an in-flight non-local exit. It travels up the Go call stack
// as an ordinary error; the token whose id matches target completes it.
type unwinding struct {
	kind    unwindKind
	target  uint64
	action  HandlerFunc
	cond    *Condition
	restart *Restart
	args    []Value
}

func (u *unwinding) Error() string {
	if u.kind == unwindRestart {
		return "conds: unwinding to restart " + u.restart.String()
	}
	return "conds: unwinding to handler for " + u.cond.Error()
}

// IsUnwinding reports whether err is (or wraps) an in-flight unwind.
// Such errors must be returned unchanged to the caller.
func IsUnwinding(err error) bool {
	return asUnwinding(err) != nil
}

func asUnwinding(err error) *unwinding {
	var u *unwinding
	if errors.As(err, &u) {
		return u
	}
	return nil
}

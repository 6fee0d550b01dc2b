// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package conds

import (
	"errors"
	"strconv"
	"strings"
)

// ErrScopeViolation is returned when frames are released out of LIFO order,
// released twice, or a task is entered while already running.
var ErrScopeViolation = errors.New("conds: scope violation")

// ErrNoSuchRestart is returned when no live restart matches an invocation.
var ErrNoSuchRestart = errors.New("conds: no such restart")

// ErrAborted is returned when a computation is abandoned through the
// top-level abort restart.
var ErrAborted = errors.New("conds: computation aborted")

// ErrNoActiveScope is returned when a condition is signaled on a task that
// is not running.
var ErrNoActiveScope = errors.New("conds: no active scope")

// UnhandledError reports an error or interrupt condition that no handler
// claimed. It ends the top-level computation.
type UnhandledError struct {
	// Condition is the condition that nobody handled.
	Condition *Condition

	// Suppressed holds cleanup failures recorded while the task ran.
	Suppressed []*Condition
}

// Error implements error.
func (e *UnhandledError) Error() string {
	var b strings.Builder
	b.WriteString("unhandled ")
	b.WriteString(e.Condition.Error())
	if n := len(e.Suppressed); n > 0 {
		b.WriteString(" (")
		b.WriteString(pluralCleanup(n))
		b.WriteString(")")
	}
	return b.String()
}

func pluralCleanup(n int) string {
	if n == 1 {
		return "1 cleanup failure"
	}
	return strconv.Itoa(n) + " cleanup failures"
}

// Unwrap exposes ErrAborted and the condition.
func (e *UnhandledError) Unwrap() []error {
	return []error{ErrAborted, e.Condition}
}

// IsUnhandled reports whether err carries an *UnhandledError.
// Uses errors.As to handle wrapped errors.
func IsUnhandled(err error) bool {
	var ue *UnhandledError
	return errors.As(err, &ue)
}

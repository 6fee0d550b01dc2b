// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package conds

// Outcome is the result of Try: the value the body produced, or the error
// condition that ended it.
type Outcome[A any] struct {
	cond  *Condition
	value A
}

// Failed reports whether the body ended with a condition.
func (o Outcome[A]) Failed() bool { return o.cond != nil }

// Value returns the body's value and true, or zero and false if it failed.
func (o Outcome[A]) Value() (A, bool) {
	if o.cond != nil {
		var zero A
		return zero, false
	}
	return o.value, true
}

// Condition returns the condition that ended the body, or nil.
func (o Outcome[A]) Condition() *Condition { return o.cond }

// Get returns the value, or the condition as the error.
func (o Outcome[A]) Get() (A, error) {
	if o.cond != nil {
		var zero A
		return zero, o.cond
	}
	return o.value, nil
}

// Or returns the value, or fallback if the body failed.
func (o Outcome[A]) Or(fallback A) A {
	if o.cond != nil {
		return fallback
	}
	return o.value
}

// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package conds

import (
	"errors"
	"fmt"
	"maps"
	"runtime"
	"slices"

	"github.com/mitchellh/mapstructure"
)

// Built-in class tags. Every condition ends in ClassCondition.
const (
	ClassCondition = "condition"
	ClassMessage   = "message"
	ClassWarning   = "warning"
	ClassError     = "error"
	ClassInterrupt = "interrupt"

	// ClassCleanupError tags secondary conditions built from failing guards.
	ClassCleanupError = "cleanupError"
	// ClassGoError tags conditions built from plain Go errors by FromError.
	ClassGoError = "goError"
)

// Severity is the built-in severity of a condition, derived from its classes.
type Severity uint8

const (
	SeverityNone Severity = iota
	SeverityMessage
	SeverityWarning
	SeverityError
	SeverityInterrupt
)

func (s Severity) String() string {
	switch s {
	case SeverityMessage:
		return ClassMessage
	case SeverityWarning:
		return ClassWarning
	case SeverityError:
		return ClassError
	case SeverityInterrupt:
		return ClassInterrupt
	default:
		return "none"
	}
}

func severityOf(class string) Severity {
	switch class {
	case ClassMessage:
		return SeverityMessage
	case ClassWarning:
		return SeverityWarning
	case ClassError:
		return SeverityError
	case ClassInterrupt:
		return SeverityInterrupt
	}
	return SeverityNone
}

// Origin identifies the call site that produced a condition.
// It is diagnostic only and never takes part in matching.
type Origin struct {
	Function string
	File     string
	Line     int
}

func (o Origin) String() string {
	if o.Function == "" {
		return fmt.Sprintf("%s:%d", o.File, o.Line)
	}
	return fmt.Sprintf("%s (%s:%d)", o.Function, o.File, o.Line)
}

// Caller returns the Origin of the function skip frames above Caller's caller.
// It returns nil when the frame is unavailable.
func Caller(skip int) *Origin {
	pc, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return nil
	}
	o := &Origin{File: file, Line: line}
	if fn := runtime.FuncForPC(pc); fn != nil {
		o.Function = fn.Name()
	}
	return o
}

// Condition is an immutable value describing a signaled event.
//
// Classes are ordered most specific first and always end in ClassCondition.
// A *Condition is also an error, so it can travel through ordinary Go error
// returns once a computation gives up on it.
type Condition struct {
	classes  []string
	message  string
	origin   *Origin
	data     map[string]any
	cause    error
	severity Severity
}

// ConditionOption configures a condition under construction.
type ConditionOption func(*Condition)

// At records the site that produced the condition.
func At(origin *Origin) ConditionOption {
	return func(c *Condition) { c.origin = origin }
}

// WithData attaches a payload. The map is copied.
func WithData(data map[string]any) ConditionOption {
	return func(c *Condition) {
		if len(data) > 0 {
			c.data = maps.Clone(data)
		}
	}
}

// WithCause wraps a Go error as the cause of the condition.
func WithCause(err error) ConditionOption {
	return func(c *Condition) { c.cause = err }
}

// NewCondition creates a condition with the given classes and message.
// The root tag is appended when missing; empty and repeated tags are dropped.
func NewCondition(classes []string, message string, opts ...ConditionOption) *Condition {
	c := &Condition{message: message, classes: normalizeClasses(classes)}
	for _, opt := range opts {
		opt(c)
	}
	for _, class := range c.classes {
		c.severity = max(c.severity, severityOf(class))
	}
	return c
}

func normalizeClasses(classes []string) []string {
	out := make([]string, 0, len(classes)+1)
	for _, class := range classes {
		if class == "" || class == ClassCondition || slices.Contains(out, class) {
			continue
		}
		out = append(out, class)
	}
	return append(out, ClassCondition)
}

// NewError creates an error condition. Extra classes precede the severity tag.
func NewError(message string, classes ...string) *Condition {
	return NewCondition(append(slices.Clip(classes), ClassError), message)
}

// NewWarning creates a warning condition.
func NewWarning(message string, classes ...string) *Condition {
	return NewCondition(append(slices.Clip(classes), ClassWarning), message)
}

// NewMessage creates a message condition.
func NewMessage(message string, classes ...string) *Condition {
	return NewCondition(append(slices.Clip(classes), ClassMessage), message)
}

// NewInterrupt creates an interrupt condition caused by cause (may be nil).
func NewInterrupt(cause error) *Condition {
	msg := "interrupted"
	if cause != nil {
		msg = "interrupted: " + cause.Error()
	}
	return NewCondition([]string{ClassInterrupt}, msg, WithCause(cause))
}

// FromError converts a Go error into an error condition.
// If err already wraps a *Condition, that condition is returned.
func FromError(err error) *Condition {
	if err == nil {
		return nil
	}
	if c, ok := AsCondition(err); ok {
		return c
	}
	return NewCondition([]string{ClassGoError, ClassError}, err.Error(), WithCause(err))
}

// AsCondition finds the first *Condition in err's chain.
func AsCondition(err error) (*Condition, bool) {
	var c *Condition
	if errors.As(err, &c) {
		return c, true
	}
	return nil, false
}

// Classes returns a copy of the class list.
func (c *Condition) Classes() []string {
	if len(c.classes) == 0 {
		return []string{ClassCondition}
	}
	return slices.Clone(c.classes)
}

// Message returns the human-readable text.
func (c *Condition) Message() string { return c.message }

// Origin returns the producing call site, or nil.
func (c *Condition) Origin() *Origin { return c.origin }

// Severity returns the highest built-in severity among the classes.
func (c *Condition) Severity() Severity { return c.severity }

// Cause returns the wrapped Go error, or nil.
func (c *Condition) Cause() error { return c.cause }

// Data returns a copy of the payload, or nil.
func (c *Condition) Data() map[string]any { return maps.Clone(c.data) }

// Inherits reports whether class is one of the condition's classes.
func (c *Condition) Inherits(class string) bool {
	if len(c.classes) == 0 {
		return class == ClassCondition
	}
	return slices.Contains(c.classes, class)
}

// matches reports whether any filter class is present. No filters match all.
func (c *Condition) matches(filters []string) bool {
	if len(filters) == 0 {
		return true
	}
	for _, f := range filters {
		if c.Inherits(f) {
			return true
		}
	}
	return false
}

// Decode decodes the payload into out, which must be a pointer to a struct
// or map. Struct fields are matched by their `mapstructure` tags.
func (c *Condition) Decode(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(c.data)
}

// Error implements error.
func (c *Condition) Error() string {
	return c.class() + ": " + c.message
}

// class returns the most specific class.
func (c *Condition) class() string {
	if len(c.classes) == 0 {
		return ClassCondition
	}
	return c.classes[0]
}

// Unwrap returns the cause.
func (c *Condition) Unwrap() error { return c.cause }

// String renders the condition with its origin, if any.
func (c *Condition) String() string {
	if c.origin == nil {
		return c.Error()
	}
	return c.Error() + " at " + c.origin.String()
}

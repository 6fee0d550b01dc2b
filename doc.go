// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package conds provides condition signaling with exiting and calling
// handlers, resumable restarts and guaranteed cleanup.
//
// A computation runs on a [Task], which owns a dynamically scoped handler
// stack, a restart stack and a chain of dynamic extents. Code deep in a call
// chain signals a [Condition]; handlers established further out decide what
// happens, possibly by invoking a restart established between the two.
//
// # Conditions
//
// A [Condition] carries an ordered list of class tags, most specific first
// and always ending in "condition", a message, an optional [Origin] and an
// optional payload:
//
//   - [NewCondition]: Arbitrary classes with [At], [WithData], [WithCause]
//   - [NewError], [NewWarning], [NewMessage], [NewInterrupt]: Severity shorthands
//   - [FromError]: Convert a Go error
//   - [Condition.Inherits]: Exact class membership
//   - [Condition.Decode]: Decode the payload into a struct
//
// # Handlers
//
//   - [WithHandlers]: Run a body with handlers established
//   - [ExitingHandler]: Claims the signal and unwinds to its establishment point
//   - [CallingHandler]: Runs at the signal site; a normal return falls through
//   - [Task.PushHandlers], [HandlerToken]: Explicit LIFO frames
//   - [Try], [Ignore], [SuppressWarnings], [SuppressMessages]: Common shapes
//
// Handlers are searched from the innermost outward. Among handlers registered
// by one call, the first in registration order wins.
//
// # Signaling
//
//   - [Task.Signal]: Dispatch a condition
//   - [Task.Error], [Task.Warning], [Task.Message], [Task.Interrupt]: Severity helpers
//   - [Task.Checkpoint]: Turn context cancellation into an interrupt
//
// Without a claiming handler the severity decides: errors consult the
// unhandled hook ([OnUnhandledError], [WithUnhandledHook]) and abort by
// default; interrupts always abort; warnings and messages are reported and
// execution continues.
//
// # Restarts
//
//   - [WithRestart], [WithRestarts]: Establish restarts around a body
//   - [Task.InvokeRestart], [Task.InvokeRestartHandle]: Transfer control
//   - [Task.FindRestart], [Task.ComputeRestarts]: Introspection
//
// # Cleanup
//
//   - [Task.Defer]: Register a guard on the innermost extent
//   - [Scope], [TryFinally], [Bracket], [OnError]: Extent constructors
//
// Guards run exactly once, newest first, on every exit path.
//
// # Unwinding
//
// Non-local exits travel as ordinary Go errors. Every error returned by
// Signal, InvokeRestart, Checkpoint or a nested construct must be returned by
// the body that received it; [IsUnwinding] reports such errors. Go panics are
// never used for control transfer.
//
// # Running
//
//   - [Run]: Run a body as a top-level computation on a fresh task
//   - [NewTask], [Task.Run]: Keep the task for inspection afterwards
//   - [RunGroup]: Concurrent computations, one task each
//
// An unclaimed error ends Run with an [*UnhandledError].
package conds

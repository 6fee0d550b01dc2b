// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package conds_test

import (
	"context"
	"slices"
	"testing"

	"code.hybscloud.com/conds"
)

// BenchmarkWithHandlersNoSignal measures establishing and releasing a handler.
func BenchmarkWithHandlersNoSignal(b *testing.B) {
	task := conds.NewTask(context.Background(), quiet()...)
	h := conds.ExitingHandler(ret(nil), conds.ClassError)
	body := func(*conds.Task) (conds.Value, error) { return nil, nil }
	_, _ = task.Run(func(task *conds.Task) (conds.Value, error) {
		for b.Loop() {
			_, _ = conds.WithHandlers(task, body, h)
		}
		return nil, nil
	})
}

// BenchmarkExitingHandler measures a signal claimed by an exiting handler.
func BenchmarkExitingHandler(b *testing.B) {
	task := conds.NewTask(context.Background(), quiet()...)
	h := conds.ExitingHandler(ret(1), conds.ClassError)
	c := conds.NewError("boom")
	body := func(task *conds.Task) (conds.Value, error) { return task.Signal(c) }
	_, _ = task.Run(func(task *conds.Task) (conds.Value, error) {
		for b.Loop() {
			_, _ = conds.WithHandlers(task, body, h)
		}
		return nil, nil
	})
}

// BenchmarkCallingFallThrough measures a signal passing ten calling handlers.
func BenchmarkCallingFallThrough(b *testing.B) {
	task := conds.NewTask(context.Background(), quiet()...)
	c := conds.NewCondition([]string{"note"}, "x")
	_, _ = task.Run(func(task *conds.Task) (conds.Value, error) {
		toks := make([]*conds.HandlerToken, 10)
		for i := range toks {
			toks[i] = task.PushHandlers(conds.CallingHandler(ret(nil)))
		}
		for b.Loop() {
			_, _ = task.Signal(c)
		}
		for _, tok := range slices.Backward(toks) {
			_ = tok.Release()
		}
		return nil, nil
	})
}

// BenchmarkInvokeRestart measures a restart round trip.
func BenchmarkInvokeRestart(b *testing.B) {
	task := conds.NewTask(context.Background(), quiet()...)
	body := func(task *conds.Task) (conds.Value, error) {
		return nil, task.InvokeRestart("r", 1)
	}
	_, _ = task.Run(func(task *conds.Task) (conds.Value, error) {
		for b.Loop() {
			_, _ = conds.WithRestart(task, "r", nil, body)
		}
		return nil, nil
	})
}

// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package conds

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Result is the outcome of one body run by RunGroup.
type Result struct {
	Value Value
	Err   error
}

// RunGroup runs each body concurrently as a top-level computation with its
// own Task, so no body observes another's handlers, restarts or guards.
//
// The first body to fail cancels the group context; siblings see an
// interrupt at their next Checkpoint. RunGroup waits for every body and
// returns all results together with the first error.
func RunGroup(ctx context.Context, bodies []Body, opts ...Option) ([]Result, error) {
	g, gctx := errgroup.WithContext(ctx)
	results := make([]Result, len(bodies))
	for i, body := range bodies {
		g.Go(func() error {
			v, err := NewTask(gctx, opts...).Run(body)
			results[i] = Result{Value: v, Err: err}
			return err
		})
	}
	err := g.Wait()
	return results, err
}

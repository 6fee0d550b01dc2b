// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package conds_test

import (
	"context"
	"fmt"
	"strconv"

	"code.hybscloud.com/conds"
)

// parseAll parses entries, signaling a "parse" error for each bad one with a
// "use-value" restart around it.
func parseAll(task *conds.Task, entries []string) ([]int, error) {
	var out []int
	for _, e := range entries {
		v, err := conds.WithRestart(task, "use-value", nil, func(task *conds.Task) (conds.Value, error) {
			n, err := strconv.Atoi(e)
			if err != nil {
				return task.Signal(conds.NewError("bad entry "+strconv.Quote(e), "parse"))
			}
			return n, nil
		})
		if err != nil {
			return nil, err
		}
		out = append(out, v.(int))
	}
	return out, nil
}

func ExampleWithRestart() {
	v, err := conds.Run(context.Background(), func(task *conds.Task) (conds.Value, error) {
		return conds.WithHandlers(task, func(task *conds.Task) (conds.Value, error) {
			return parseAll(task, []string{"1", "x", "3"})
		}, conds.CallingHandler(func(task *conds.Task, c *conds.Condition) (conds.Value, error) {
			fmt.Println("recovering from", c.Message())
			return nil, task.InvokeRestart("use-value", 0)
		}, "parse"))
	})
	fmt.Println(v, err)
	// Output:
	// recovering from bad entry "x"
	// [1 0 3] <nil>
}

func ExampleWithHandlers() {
	v, err := conds.Run(context.Background(), func(task *conds.Task) (conds.Value, error) {
		return conds.WithHandlers(task, func(task *conds.Task) (conds.Value, error) {
			task.Defer(func() error {
				fmt.Println("cleanup")
				return nil
			})
			return task.Error("disk full")
		}, conds.ExitingHandler(func(_ *conds.Task, c *conds.Condition) (conds.Value, error) {
			return "handled " + c.Message(), nil
		}, conds.ClassError))
	})
	fmt.Println(v, err)
	// Output:
	// cleanup
	// handled disk full <nil>
}

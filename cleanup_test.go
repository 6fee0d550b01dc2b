// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package conds_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code.hybscloud.com/conds"
)

// guards registers n guards appending their index to order.
func guards(task *conds.Task, order *[]int, n int) {
	for i := range n {
		task.Defer(func() error {
			*order = append(*order, i)
			return nil
		})
	}
}

func TestDefer_ReverseOrderOnNormalExit(t *testing.T) {
	var order []int
	v, err := conds.Run(context.Background(), func(task *conds.Task) (conds.Value, error) {
		return conds.Scope(task, func(task *conds.Task) (conds.Value, error) {
			guards(task, &order, 3)
			return "done", nil
		})
	}, quiet()...)

	require.NoError(t, err)
	assert.Equal(t, "done", v)
	assert.Equal(t, []int{2, 1, 0}, order)
}

func TestDefer_OnceOnHandledExit(t *testing.T) {
	var order []int
	v, err := conds.Run(context.Background(), func(task *conds.Task) (conds.Value, error) {
		return conds.WithHandlers(task, func(task *conds.Task) (conds.Value, error) {
			return conds.Scope(task, func(task *conds.Task) (conds.Value, error) {
				guards(task, &order, 3)
				return task.Error("boom")
			})
		}, conds.ExitingHandler(ret("handled"), conds.ClassError))
	}, quiet()...)

	require.NoError(t, err)
	assert.Equal(t, "handled", v)
	assert.Equal(t, []int{2, 1, 0}, order)
}

func TestDefer_OnceOnUnhandledExit(t *testing.T) {
	var order []int
	_, err := conds.Run(context.Background(), func(task *conds.Task) (conds.Value, error) {
		guards(task, &order, 2)
		return conds.Scope(task, func(task *conds.Task) (conds.Value, error) {
			task.Defer(func() error {
				order = append(order, 10)
				return nil
			})
			return task.Error("fatal")
		})
	}, quiet()...)

	require.True(t, conds.IsUnhandled(err))
	assert.Equal(t, []int{10, 1, 0}, order)
}

func TestDefer_RunsOnPanic(t *testing.T) {
	var order []int
	task := conds.NewTask(context.Background(), quiet()...)
	func() {
		defer func() {
			assert.Equal(t, "kaboom", recover())
		}()
		_, _ = task.Run(func(task *conds.Task) (conds.Value, error) {
			return conds.Scope(task, func(task *conds.Task) (conds.Value, error) {
				guards(task, &order, 2)
				panic("kaboom")
			})
		})
	}()

	assert.Equal(t, []int{1, 0}, order)
	assert.Equal(t, 0, task.Depth())

	v, err := task.Run(func(*conds.Task) (conds.Value, error) { return "reusable", nil })
	require.NoError(t, err)
	assert.Equal(t, "reusable", v)
}

func TestDefer_FailuresDoNotStopOtherGuards(t *testing.T) {
	rec := &recorder{}
	var ran []string
	task := conds.NewTask(context.Background(), quiet(conds.WithReporter(rec))...)
	v, err := task.Run(func(task *conds.Task) (conds.Value, error) {
		task.Defer(func() error {
			ran = append(ran, "a")
			return nil
		})
		task.Defer(func() error {
			ran = append(ran, "b")
			return errors.New("b failed")
		})
		task.Defer(func() error {
			ran = append(ran, "c")
			panic("c exploded")
		})
		return "value", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "value", v)
	assert.Equal(t, []string{"c", "b", "a"}, ran)
	assert.Equal(t, []string{"panic in cleanup: c exploded", "b failed"}, rec.messages())

	suppressed := task.Suppressed()
	require.Len(t, suppressed, 2)
	for _, c := range suppressed {
		assert.True(t, c.Inherits(conds.ClassCleanupError))
		assert.Equal(t, conds.SeverityError, c.Severity())
	}
}

func TestDefer_ErrorSignaledByGuardDuringUnwind(t *testing.T) {
	rec := &recorder{}
	var guardErr error
	task := conds.NewTask(context.Background(), quiet(conds.WithReporter(rec))...)
	v, err := task.Run(func(task *conds.Task) (conds.Value, error) {
		return conds.WithHandlers(task, func(task *conds.Task) (conds.Value, error) {
			return conds.Scope(task, func(task *conds.Task) (conds.Value, error) {
				task.Defer(func() error {
					_, guardErr = task.Error("close failed")
					return guardErr
				})
				return task.Error("boom")
			})
		}, conds.ExitingHandler(ret("handled"), conds.ClassError))
	})

	require.NoError(t, err)
	assert.Equal(t, "handled", v)
	assert.True(t, conds.IsUnwinding(guardErr))
	assert.Equal(t, []string{"close failed"}, rec.messages())

	suppressed := task.Suppressed()
	require.Len(t, suppressed, 1)
	assert.Equal(t, "close failed", suppressed[0].Message())
	assert.True(t, suppressed[0].Inherits(conds.ClassCleanupError))
	c, ok := conds.AsCondition(suppressed[0].Cause())
	require.True(t, ok)
	assert.Equal(t, "close failed", c.Message())
}

func TestDefer_ErrorSignaledByGuardKeepsResult(t *testing.T) {
	rec := &recorder{}
	var ran []string
	task := conds.NewTask(context.Background(), quiet(conds.WithReporter(rec))...)
	v, err := task.Run(func(task *conds.Task) (conds.Value, error) {
		task.Defer(func() error {
			ran = append(ran, "sibling")
			return nil
		})
		task.Defer(func() error {
			ran = append(ran, "failing")
			_, err := task.Error("close failed")
			return err
		})
		return "done", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "done", v)
	assert.Equal(t, []string{"failing", "sibling"}, ran)
	assert.Equal(t, []string{"close failed"}, rec.messages())
	require.Len(t, task.Suppressed(), 1)
}

func TestDefer_GuardRestartDuringUnwindIsRecorded(t *testing.T) {
	var order []string
	task := conds.NewTask(context.Background(), quiet()...)
	v, err := task.Run(func(task *conds.Task) (conds.Value, error) {
		return conds.WithRestart(task, "elsewhere", nil, func(task *conds.Task) (conds.Value, error) {
			return conds.WithRestart(task, "out", nil, func(task *conds.Task) (conds.Value, error) {
				task.Defer(func() error {
					order = append(order, "guard")
					return task.InvokeRestart("elsewhere", "hijacked")
				})
				return nil, task.InvokeRestart("out", "left")
			})
		})
	})

	require.NoError(t, err)
	assert.Equal(t, "left", v)
	assert.Equal(t, []string{"guard"}, order)
	require.Len(t, task.Suppressed(), 1)
	assert.Contains(t, task.Suppressed()[0].Message(), "while unwinding")
}

func TestUnhandledError_CarriesSuppressed(t *testing.T) {
	_, err := conds.Run(context.Background(), func(task *conds.Task) (conds.Value, error) {
		task.Defer(func() error { return errors.New("close failed") })
		return task.Error("fatal")
	}, quiet()...)

	var ue *conds.UnhandledError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "fatal", ue.Condition.Message())
	require.Len(t, ue.Suppressed, 1)
	assert.Equal(t, "close failed", ue.Suppressed[0].Message())
	assert.Equal(t, "unhandled error: fatal (1 cleanup failure)", err.Error())
}

func TestDefer_OutsideScopePanics(t *testing.T) {
	task := conds.NewTask(context.Background(), quiet()...)
	assert.PanicsWithValue(t, "conds: Defer outside of an active scope", func() {
		task.Defer(func() error { return nil })
	})
}

func TestDefer_InsideGuardAttachesToParent(t *testing.T) {
	var order []string
	_, err := conds.Run(context.Background(), func(task *conds.Task) (conds.Value, error) {
		_, err := conds.Scope(task, func(task *conds.Task) (conds.Value, error) {
			task.Defer(func() error {
				order = append(order, "inner guard")
				task.Defer(func() error {
					order = append(order, "late guard")
					return nil
				})
				return nil
			})
			return nil, nil
		})
		order = append(order, "outer body")
		return nil, err
	}, quiet()...)

	require.NoError(t, err)
	assert.Equal(t, []string{"inner guard", "outer body", "late guard"}, order)
}

func TestTryFinally(t *testing.T) {
	var finished bool
	v, err := conds.Run(context.Background(), func(task *conds.Task) (conds.Value, error) {
		return conds.TryFinally(task, func(*conds.Task) (conds.Value, error) {
			return 5, nil
		}, func() error {
			finished = true
			return nil
		})
	}, quiet()...)

	require.NoError(t, err)
	assert.Equal(t, 5, v)
	assert.True(t, finished)
}

type conn struct {
	closed bool
}

func TestBracket(t *testing.T) {
	var c *conn
	v, err := conds.Run(context.Background(), func(task *conds.Task) (conds.Value, error) {
		return conds.WithHandlers(task, func(task *conds.Task) (conds.Value, error) {
			return conds.Bracket(task,
				func(*conds.Task) (*conn, error) {
					c = &conn{}
					return c, nil
				},
				func(c *conn) error {
					c.closed = true
					return nil
				},
				func(task *conds.Task, c *conn) (conds.Value, error) {
					assert.False(t, c.closed)
					return task.Error("use failed")
				})
		}, conds.ExitingHandler(ret("recovered"), conds.ClassError))
	}, quiet()...)

	require.NoError(t, err)
	assert.Equal(t, "recovered", v)
	require.NotNil(t, c)
	assert.True(t, c.closed)
}

func TestBracket_AcquireFailureSkipsRelease(t *testing.T) {
	errDial := errors.New("dial failed")
	var released bool
	_, err := conds.Run(context.Background(), func(task *conds.Task) (conds.Value, error) {
		return conds.Bracket(task,
			func(*conds.Task) (*conn, error) { return nil, errDial },
			func(*conn) error {
				released = true
				return nil
			},
			func(*conds.Task, *conn) (conds.Value, error) { return nil, nil })
	}, quiet()...)

	assert.ErrorIs(t, err, errDial)
	assert.False(t, released)
}

func TestOnError(t *testing.T) {
	var causes []error
	cleanup := func(cause error) error {
		causes = append(causes, cause)
		return nil
	}
	errBody := errors.New("body failed")

	_, err := conds.Run(context.Background(), func(task *conds.Task) (conds.Value, error) {
		if _, err := conds.OnError(task, func(*conds.Task) (conds.Value, error) { return 1, nil }, cleanup); err != nil {
			return nil, err
		}
		_, err := conds.OnError(task, func(*conds.Task) (conds.Value, error) { return nil, errBody }, cleanup)
		assert.ErrorIs(t, err, errBody)

		return conds.WithRestart(task, "out", nil, func(task *conds.Task) (conds.Value, error) {
			return conds.OnError(task, func(task *conds.Task) (conds.Value, error) {
				return nil, task.InvokeRestart("out")
			}, cleanup)
		})
	}, quiet()...)

	require.NoError(t, err)
	require.Len(t, causes, 2)
	assert.ErrorIs(t, causes[0], errBody)
	assert.True(t, conds.IsUnwinding(causes[1]))
}

func TestScope_SwallowedUnwindIsRestored(t *testing.T) {
	var trace []string
	v, err := conds.Run(context.Background(), func(task *conds.Task) (conds.Value, error) {
		return conds.WithRestart(task, "leave", nil, func(task *conds.Task) (conds.Value, error) {
			v, err := conds.Scope(task, func(task *conds.Task) (conds.Value, error) {
				_ = task.InvokeRestart("leave", "left")
				trace = append(trace, "kept going")
				return "swallowed", nil
			})
			trace = append(trace, "scope returned")
			assert.Nil(t, v)
			return v, err
		})
	}, quiet()...)

	require.NoError(t, err)
	assert.Equal(t, "left", v)
	assert.Equal(t, []string{"kept going", "scope returned"}, trace)
}

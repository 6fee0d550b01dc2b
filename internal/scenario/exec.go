// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scenario

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"code.hybscloud.com/conds"
)

// tracer writes one scenario's trace, remembering the first write error.
type tracer struct {
	w   io.Writer
	err error
}

func (tr *tracer) printf(format string, args ...any) {
	if tr.err != nil {
		return
	}
	_, tr.err = fmt.Fprintf(tr.w, format+"\n", args...)
}

func (tr *tracer) outcome(res conds.Result) {
	var ue *conds.UnhandledError
	switch {
	case errors.As(res.Err, &ue):
		tr.printf("unhandled: %s", ue.Condition.Error())
	case res.Err != nil:
		tr.printf("error: %v", res.Err)
	default:
		tr.printf("result: %s", render(res.Value))
	}
}

func render(v conds.Value) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprint(v)
}

// router reports conditions into the trace of the task that raised them.
type router struct {
	mu     sync.Mutex
	traces map[*conds.Task]*tracer
}

func (r *router) bind(t *conds.Task, tr *tracer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.traces[t] = tr
}

func (r *router) Report(t *conds.Task, c *conds.Condition) {
	r.mu.Lock()
	tr := r.traces[t]
	r.mu.Unlock()
	if tr == nil {
		return
	}
	switch {
	case c.Inherits(conds.ClassCleanupError):
		tr.printf("cleanup failed: %s", c.Message())
	case c.Severity() == conds.SeverityWarning:
		tr.printf("warning: %s", c.Message())
	case c.Severity() == conds.SeverityMessage:
		tr.printf("message: %s", c.Message())
	default:
		tr.printf("%s", c.Error())
	}
}

// Execute runs sc as one top-level computation and writes its trace to w,
// followed by a final line: "result: <value>", "unhandled: <condition>" or
// "error: <err>". The returned error is the computation's error.
func Execute(ctx context.Context, sc *Scenario, w io.Writer, opts ...conds.Option) (conds.Value, error) {
	results, err := ExecuteAll(ctx, []*Scenario{sc}, []io.Writer{w}, opts...)
	if len(results) == 0 {
		return nil, err
	}
	return results[0].Value, err
}

// ExecuteAll runs scenarios concurrently, one task each, writing the trace
// of scs[i] to ws[i]. The first failing scenario interrupts the others at
// their next checkpoint.
func ExecuteAll(ctx context.Context, scs []*Scenario, ws []io.Writer, opts ...conds.Option) ([]conds.Result, error) {
	if len(scs) != len(ws) {
		return nil, fmt.Errorf("scenario: %d scenarios but %d writers", len(scs), len(ws))
	}
	r := &router{traces: make(map[*conds.Task]*tracer, len(scs))}
	tracers := make([]*tracer, len(scs))
	bodies := make([]conds.Body, len(scs))
	for i, sc := range scs {
		tr := &tracer{w: ws[i]}
		tracers[i] = tr
		in := &interp{tr: tr}
		bodies[i] = func(t *conds.Task) (conds.Value, error) {
			r.bind(t, tr)
			return in.run(t, sc.Steps)
		}
	}
	results, err := conds.RunGroup(ctx, bodies, append(slices.Clip(opts), conds.WithReporter(r))...)
	for i, res := range results {
		tracers[i].outcome(res)
		if werr := tracers[i].err; werr != nil {
			err = errors.Join(err, werr)
		}
	}
	return results, err
}

type interp struct {
	tr *tracer
}

func (in *interp) body(steps []Step) conds.Body {
	return func(t *conds.Task) (conds.Value, error) {
		return in.run(t, steps)
	}
}

// run executes steps in order; the value is the last step's value.
func (in *interp) run(t *conds.Task, steps []Step) (conds.Value, error) {
	var v conds.Value
	for i := range steps {
		var err error
		if v, err = in.step(t, &steps[i]); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func (in *interp) step(t *conds.Task, s *Step) (conds.Value, error) {
	switch s.Kind {
	case KindLog:
		in.tr.printf("%s", s.Text)
		return nil, nil
	case KindReturn:
		return s.Value, nil
	case KindSignal:
		sig := s.Signal
		if sig == nil {
			sig = &SignalStep{}
		}
		return t.Signal(conds.NewCondition(sig.Classes, sig.Message, conds.WithData(sig.Data)))
	case KindError:
		return t.Error(s.Text)
	case KindWarning:
		return t.Warning(s.Text)
	case KindMessage:
		return t.Message(s.Text)
	case KindInterrupt:
		var cause error
		if s.Text != "" {
			cause = errors.New(s.Text)
		}
		return t.Interrupt(cause)
	case KindCheckpoint:
		return nil, t.Checkpoint()
	case KindDefer:
		d := DeferStep{}
		if s.Defer != nil {
			d = *s.Defer
		}
		t.Defer(func() error {
			if d.Log != "" {
				in.tr.printf("%s", d.Log)
			}
			if d.Fail != "" {
				return errors.New(d.Fail)
			}
			return nil
		})
		return nil, nil
	case KindWithHandlers:
		w := s.WithHandlers
		handlers := make([]conds.Handler, 0, len(w.Handlers))
		for _, h := range w.Handlers {
			handlers = append(handlers, in.handler(h))
		}
		return conds.WithHandlers(t, in.body(w.Body), handlers...)
	case KindWithRestart:
		w := s.WithRestart
		return conds.WithRestart(t, w.Name, func(_ *conds.Task, args ...conds.Value) (conds.Value, error) {
			if w.Log != "" {
				in.tr.printf("%s", w.Log)
			}
			if w.Return != nil {
				return w.Return, nil
			}
			if len(args) > 0 {
				return args[0], nil
			}
			return nil, nil
		}, in.body(w.Body))
	case KindInvokeRestart:
		return nil, t.InvokeRestart(s.InvokeRestart.Name, s.InvokeRestart.Args...)
	}
	return nil, fmt.Errorf("scenario: unknown step kind %q", s.Kind)
}

// handler builds a handler whose log line may reference the condition as
// {message} and {class}.
func (in *interp) handler(h HandlerSpec) conds.Handler {
	action := func(t *conds.Task, c *conds.Condition) (conds.Value, error) {
		if h.Log != "" {
			in.tr.printf("%s", strings.NewReplacer(
				"{message}", c.Message(),
				"{class}", c.Classes()[0],
			).Replace(h.Log))
		}
		if ir := h.InvokeRestart; ir != nil {
			return nil, t.InvokeRestart(ir.Name, ir.Args...)
		}
		return h.Return, nil
	}
	if h.Discipline == "calling" {
		return conds.CallingHandler(action, h.Classes...)
	}
	return conds.ExitingHandler(action, h.Classes...)
}

// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package conds_test

import (
	"sync"

	"code.hybscloud.com/conds"
	"code.hybscloud.com/conds/internal/logging"
)

// recorder is a Reporter that keeps what it was given.
type recorder struct {
	mu      sync.Mutex
	reports []*conds.Condition
}

func (r *recorder) Report(_ *conds.Task, c *conds.Condition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, c)
}

func (r *recorder) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.reports))
	for _, c := range r.reports {
		out = append(out, c.Message())
	}
	return out
}

// quiet returns opts preceded by a discarding logger and reporter.
func quiet(opts ...conds.Option) []conds.Option {
	return append([]conds.Option{
		conds.WithLogger(logging.NewNop()),
		conds.WithReporter(conds.ReporterFunc(func(*conds.Task, *conds.Condition) {})),
	}, opts...)
}

// ret returns a handler action yielding v.
func ret(v conds.Value) conds.HandlerFunc {
	return func(*conds.Task, *conds.Condition) (conds.Value, error) { return v, nil }
}

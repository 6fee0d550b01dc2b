// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package metrics counts signals, handler activations, restarts, unhandled
// conditions and cleanup failures with Prometheus counters fed by
// conds.Hooks.
package metrics

import (
	"fmt"
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"code.hybscloud.com/conds"
)

// Collector holds the conds counters.
type Collector struct {
	signals   *prometheus.CounterVec
	handled   *prometheus.CounterVec
	restarts  *prometheus.CounterVec
	unhandled *prometheus.CounterVec
	cleanup   prometheus.Counter
}

// New creates the counters and registers them with reg.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		signals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conds_signals_total",
				Help: "Total number of signaled conditions",
			},
			[]string{"severity"},
		),
		handled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conds_handled_total",
				Help: "Total number of handler activations",
			},
			[]string{"discipline"},
		),
		restarts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conds_restarts_total",
				Help: "Total number of restart invocations",
			},
			[]string{"restart"},
		),
		unhandled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conds_unhandled_total",
				Help: "Total number of conditions nobody handled",
			},
			[]string{"severity"},
		),
		cleanup: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "conds_cleanup_failures_total",
			Help: "Total number of failing cleanup guards",
		}),
	}
	for _, col := range []prometheus.Collector{c.signals, c.handled, c.restarts, c.unhandled, c.cleanup} {
		if err := reg.Register(col); err != nil {
			return nil, fmt.Errorf("register conds metrics: %w", err)
		}
	}
	return c, nil
}

// Hooks returns the hooks that feed the counters. Anonymous restarts are
// counted under "anonymous".
func (c *Collector) Hooks() conds.Hooks {
	return conds.Hooks{
		OnSignal: func(_ *conds.Task, cond *conds.Condition) {
			c.signals.WithLabelValues(cond.Severity().String()).Inc()
		},
		OnHandled: func(_ *conds.Task, _ *conds.Condition, d conds.Discipline) {
			c.handled.WithLabelValues(d.String()).Inc()
		},
		OnRestart: func(_ *conds.Task, r *conds.Restart) {
			name := r.Name()
			if name == "" {
				name = "anonymous"
			}
			c.restarts.WithLabelValues(name).Inc()
		},
		OnUnhandled: func(_ *conds.Task, cond *conds.Condition) {
			c.unhandled.WithLabelValues(cond.Severity().String()).Inc()
		},
		OnCleanupFailure: func(*conds.Task, *conds.Condition) {
			c.cleanup.Inc()
		},
	}
}

// WriteTotals writes one "name{labels} value" line per counter series
// gathered from g.
func WriteTotals(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "conds_") {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			series := mf.GetName()
			if len(labels) > 0 {
				series += "{" + strings.Join(labels, ",") + "}"
			}
			if _, err := fmt.Fprintf(w, "%s %g\n", series, m.GetCounter().GetValue()); err != nil {
				return err
			}
		}
	}
	return nil
}

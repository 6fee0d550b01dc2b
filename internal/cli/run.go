// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"code.hybscloud.com/conds"
	"code.hybscloud.com/conds/internal/scenario"
	"code.hybscloud.com/conds/metrics"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	Warn     string
	Parallel bool
	Metrics  bool
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>...",
		Short: "Run scenarios and print their traces",
		Long: `Run each scenario as a top-level computation and print its trace followed by
the outcome. SIGINT and SIGTERM surface as interrupt conditions at the next
checkpoint step.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runScenarios(ctx, rootOpts, opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Warn, "warn", "", "warning disposition (ignore|deferred|immediate|error)")
	cmd.Flags().BoolVar(&opts.Parallel, "parallel", false, "run scenarios concurrently, stopping at the first failure")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print counter totals after the run")

	return cmd
}

func runScenarios(ctx context.Context, rootOpts *RootOptions, opts *RunOptions, paths []string, cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	scs := make([]*scenario.Scenario, 0, len(paths))
	for _, path := range paths {
		sc, err := scenario.Load(path)
		if err != nil {
			return err
		}
		scs = append(scs, sc)
	}

	cfg := rootOpts.Config
	if cmd.Flags().Changed("warn") {
		cfg.Warn = opts.Warn
	}
	taskOpts, err := cfg.Options(rootOpts.Logger)
	if err != nil {
		return err
	}

	var reg *prometheus.Registry
	if opts.Metrics || cfg.Metrics {
		reg = prometheus.NewRegistry()
		col, err := metrics.New(reg)
		if err != nil {
			return err
		}
		taskOpts = append(taskOpts, conds.WithHooks(col.Hooks()))
	}

	var failed int
	if opts.Parallel {
		failed = runParallel(ctx, scs, out, taskOpts)
	} else {
		for _, sc := range scs {
			fmt.Fprintf(out, "== %s\n", sc.Name)
			if _, err := scenario.Execute(ctx, sc, out, taskOpts...); err != nil {
				failed++
			}
		}
	}

	if reg != nil {
		fmt.Fprintln(out, "== metrics")
		if err := metrics.WriteTotals(out, reg); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d scenarios failed", failed, len(scs))
	}
	return nil
}

func runParallel(ctx context.Context, scs []*scenario.Scenario, out io.Writer, taskOpts []conds.Option) int {
	bufs := make([]*bytes.Buffer, len(scs))
	ws := make([]io.Writer, len(scs))
	for i := range scs {
		bufs[i] = new(bytes.Buffer)
		ws[i] = bufs[i]
	}
	results, _ := scenario.ExecuteAll(ctx, scs, ws, taskOpts...)

	var failed int
	for i, sc := range scs {
		fmt.Fprintf(out, "== %s\n", sc.Name)
		_, _ = out.Write(bufs[i].Bytes())
		if i < len(results) && results[i].Err != nil {
			failed++
		}
	}
	return failed
}

// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"code.hybscloud.com/conds/internal/scenario"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <scenario.yaml>...",
		Short: "Check scenario files without running them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			var failed int
			for _, path := range args {
				sc, err := scenario.Load(path)
				if err != nil {
					failed++
					fmt.Fprintf(out, "FAIL %v\n", err)
					continue
				}
				fmt.Fprintf(out, "ok   %s (%d steps)\n", sc.Name, len(sc.Steps))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d scenario files are invalid", failed, len(args))
			}
			return nil
		},
	}
}

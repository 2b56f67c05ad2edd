package internal

import (
	"github.com/goplus/unilib/internal/fmtcheck"
	"github.com/spf13/cobra"
)

func newFmtcheckCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "fmtcheck",
		Short: "Check the formatting of the project's documents and scripts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := e.loadConfig(ctx)
			if err != nil {
				return err
			}
			return fmtcheck.Check(ctx, e.processRunner(), cfg.Root, cfg.Format)
		},
	}
}

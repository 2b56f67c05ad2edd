package internal

import (
	"fmt"
	"strings"

	"github.com/goplus/unilib/internal/build"
	"github.com/spf13/cobra"
)

func newListCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the declared libraries and their targets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := e.loadConfig(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, lib := range cfg.Libraries {
				fmt.Fprintf(out, "%s (%s, %s)\n", lib.Name, lib.Variant, lib.Lib)
				for _, g := range lib.Groups() {
					targets := make([]string, len(g.Targets))
					for i, t := range g.Targets {
						targets[i] = fmt.Sprintf("%s [%s]", t.Arch, t.SDK)
					}
					fmt.Fprintf(out, "  %-6s %s\n", g.Platform+":", strings.Join(targets, ", "))
				}
				if m, err := build.LoadManifest(lib.Layout(cfg.Root).Output); err == nil {
					fmt.Fprintf(out, "  last built %s\n", m.BuildTime.Local().Format("2006-01-02 15:04:05"))
				}
			}
			return nil
		},
	}
}

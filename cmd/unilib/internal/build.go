package internal

import (
	"path/filepath"

	"github.com/goplus/unilib/internal/build"
	"github.com/goplus/unilib/internal/toolchain"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func newBuildCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "build [library...]",
		Short: "Build libraries for every declared target",
		Long: `Build cross-compiles the named libraries, or every declared library when
none is named, for each platform and architecture of its build table and merges
the architectures of each platform into a universal archive.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := e.loadConfig(ctx)
			if err != nil {
				return err
			}
			libs, err := cfg.Select(args)
			if err != nil {
				return err
			}

			runner := e.processRunner()
			builder := build.NewBuilder(build.Options{
				Root:    cfg.Root,
				Tools:   cfg.Tools.BuildTools(),
				Lipo:    cfg.Tools.Lipo,
				Runner:  runner,
				Locator: &toolchain.Xcrun{Runner: runner, Path: cfg.Tools.Xcrun, Dir: cfg.Root},
				HostOS:  e.hostOS,
			})
			results, err := builder.Run(ctx, libs)
			if err != nil {
				return err
			}

			logger := zerolog.Ctx(ctx)
			for _, res := range results {
				for _, u := range res.Merged {
					rel, err := filepath.Rel(cfg.Root, u.Path)
					if err != nil {
						rel = u.Path
					}
					logger.Info().Str("library", res.Library).Msgf("Built %s", rel)
				}
			}
			return nil
		},
	}
}

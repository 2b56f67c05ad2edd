package internal

import (
	"context"
	"io"
	"os"
	"runtime"

	"github.com/goplus/unilib/internal/config"
	"github.com/goplus/unilib/internal/process"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// env is what the commands need from the outside world.
type env struct {
	stdout io.Writer
	stderr io.Writer
	// runner is created from stdout and stderr when nil.
	runner process.Runner
	hostOS string
	wd     string

	configPath string
	root       string
	verbose    bool
	noColor    bool
}

func newRootCmd(e *env) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "unilib",
		Short: "unilib builds static libraries for every Apple platform and architecture",
		Long: `unilib cross-compiles third-party C libraries once per platform and
architecture, collects the per-architecture archives and merges them into one
universal archive per platform.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(e.newLogger().WithContext(cmd.Context()))
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&e.configPath, "config", "c", "", "Configuration file (default: the nearest unilib.{yaml,yml,jsonc,json,star})")
	flags.StringVar(&e.root, "root", "", "Project root the library directories are relative to")
	flags.BoolVarP(&e.verbose, "verbose", "v", false, "Log every query and stream the output of the build tools")
	flags.BoolVar(&e.noColor, "no-color", false, "Disable coloured output")

	rootCmd.AddCommand(newBuildCmd(e), newListCmd(e), newFmtcheckCmd(e))
	return rootCmd
}

func (e *env) newLogger() zerolog.Logger {
	verbose := e.verbose
	zerolog.ErrorMarshalFunc = func(err error) interface{} {
		return eris.ToString(err, verbose)
	}
	level := zerolog.InfoLevel
	if e.verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(NewConsoleWriter(e.stdout, e.noColor)).Level(level)
}

func (e *env) loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Discover(ctx, e.configPath, e.wd, e.root)
	if err != nil {
		return nil, err
	}
	logger := zerolog.Ctx(ctx)
	if cfg.Path == "" {
		logger.Debug().Str("root", cfg.Root).Msg("Using the built-in build table")
	} else {
		logger.Debug().Str("path", cfg.Path).Msgf("Using %s", cfg.Path)
	}
	return cfg, nil
}

func (e *env) processRunner() process.Runner {
	if e.runner != nil {
		return e.runner
	}
	var stdout io.Writer
	if e.verbose {
		stdout = e.stdout
	}
	return process.NewExecRunner(stdout, e.stderr)
}

// run executes the command line args and returns the exit status.
func run(ctx context.Context, e *env, args []string) int {
	rootCmd := newRootCmd(e)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(e.stdout)
	rootCmd.SetErr(e.stderr)

	cmd, err := rootCmd.ExecuteContextC(ctx)
	if err == nil {
		return 0
	}

	if cmdCtx := cmd.Context(); cmdCtx != nil {
		ctx = cmdCtx
	}
	logger := zerolog.Ctx(ctx)
	if logger.GetLevel() == zerolog.Disabled {
		l := e.newLogger()
		logger = &l
	}
	logger.Error().Err(err).Msgf("%s failed", cmd.CommandPath())
	return 1
}

// Execute runs the CLI and exits with its status.
func Execute() {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	e := &env{
		stdout: os.Stdout,
		stderr: os.Stderr,
		hostOS: runtime.GOOS,
		wd:     wd,
	}
	os.Exit(run(context.Background(), e, os.Args[1:]))
}

// Package autotools drives the classic autoreconf/configure/make workflow.
package autotools

import (
	"context"
	"path/filepath"

	"github.com/goplus/unilib/internal/process"
	"github.com/goplus/unilib/internal/toolchain"
	"github.com/goplus/unilib/matrix"
	"github.com/goplus/unilib/pkgs/buildsys"
	"github.com/rotisserie/eris"
)

// BaselineOptions are passed to every configure run: a static-only build
// without dependency tracking.
var BaselineOptions = []string{"--disable-dependency-tracking", "--enable-static", "--disable-shared"}

// AutoTools builds a library out of tree with configure and make.
type AutoTools struct {
	runner    process.Runner
	tools     buildsys.Tools
	sourceDir string
	artifact  string
	options   []string
}

var _ buildsys.BuildSystem = (*AutoTools)(nil)

// New returns the autotools build of lib.
func New(lib *matrix.Library, layout matrix.Layout, runner process.Runner, tools buildsys.Tools) *AutoTools {
	return &AutoTools{
		runner:    runner,
		tools:     tools.WithDefaults(),
		sourceDir: layout.Source,
		artifact:  lib.Artifact,
		options:   lib.Configure,
	}
}

// Prepare regenerates the build system in the source tree. It mutates the
// shared source tree, so it runs once per run rather than once per target.
func (a *AutoTools) Prepare(ctx context.Context) error {
	_, err := process.Exec(ctx, a.runner, process.Command(a.sourceDir, a.tools.Autoreconf, "-vfi"))
	return eris.Wrap(err, "autoreconf failed")
}

// Configure runs <sourceDir>/configure inside dir with the toolchain of tc.
func (a *AutoTools) Configure(ctx context.Context, tc *toolchain.Config, dir string) error {
	args := make([]string, 0, len(BaselineOptions)+len(a.options)+4)
	args = append(args, filepath.Join(a.sourceDir, "configure"))
	args = append(args, BaselineOptions...)
	args = append(args, a.options...)
	args = append(args,
		"CC="+tc.CompilerPath,
		"CFLAGS="+tc.CFlags(),
		"--host="+tc.HostTriple,
	)
	_, err := process.Exec(ctx, a.runner, process.Command(dir, args...))
	return err
}

// Make runs make with optional extra arguments inside dir.
func (a *AutoTools) Make(ctx context.Context, dir string, args ...string) error {
	_, err := process.Exec(ctx, a.runner, process.Command(dir, append([]string{a.tools.Make}, args...)...))
	return err
}

func (a *AutoTools) Build(ctx context.Context, t matrix.Target, tc *toolchain.Config, dir string) (string, error) {
	if err := a.Configure(ctx, tc, dir); err != nil {
		return "", eris.Wrapf(err, "configure failed for %s", t)
	}
	if err := a.Make(ctx, dir); err != nil {
		return "", eris.Wrapf(err, "make failed for %s", t)
	}
	return filepath.Join(dir, a.artifact), nil
}

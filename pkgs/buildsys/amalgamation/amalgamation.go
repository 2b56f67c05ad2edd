// Package amalgamation builds libraries that ship as one generated C file.
// The file is produced once per run; every target then compiles and archives
// it directly, without a per-target configure.
package amalgamation

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/goplus/unilib/internal/process"
	"github.com/goplus/unilib/internal/toolchain"
	"github.com/goplus/unilib/internal/workdir"
	"github.com/goplus/unilib/matrix"
	"github.com/goplus/unilib/pkgs/buildsys"
	"github.com/rotisserie/eris"
)

// Amalgamation compiles a generated single source file for every target.
type Amalgamation struct {
	runner    process.Runner
	tools     buildsys.Tools
	sourceDir string
	genDir    string
	file      string
	artifact  string
	options   []string
}

var _ buildsys.BuildSystem = (*Amalgamation)(nil)

// New returns the direct-compile build of lib.
func New(lib *matrix.Library, layout matrix.Layout, runner process.Runner, tools buildsys.Tools) *Amalgamation {
	artifact := lib.Artifact
	if artifact == "" {
		artifact = lib.Lib + ".a"
	}
	return &Amalgamation{
		runner:    runner,
		tools:     tools.WithDefaults(),
		sourceDir: layout.Source,
		genDir:    layout.Gen,
		file:      lib.Amalgamation,
		artifact:  artifact,
		options:   lib.Configure,
	}
}

// Source returns the path of the generated file.
func (a *Amalgamation) Source() string {
	return filepath.Join(a.genDir, a.file)
}

// Prepare configures the source tree in a clean generation directory and
// makes the amalgamation there.
func (a *Amalgamation) Prepare(ctx context.Context) error {
	if err := workdir.PrepareClean(ctx, a.genDir); err != nil {
		return err
	}
	configure := append([]string{filepath.Join(a.sourceDir, "configure")}, a.options...)
	if _, err := process.Exec(ctx, a.runner, process.Command(a.genDir, configure...)); err != nil {
		return eris.Wrap(err, "configure failed")
	}
	if _, err := process.Exec(ctx, a.runner, process.Command(a.genDir, a.tools.Make, a.file)); err != nil {
		return eris.Wrapf(err, "failed to generate %s", a.file)
	}
	return nil
}

func (a *Amalgamation) Build(ctx context.Context, t matrix.Target, tc *toolchain.Config, dir string) (string, error) {
	stem := strings.TrimSuffix(filepath.Base(a.file), filepath.Ext(a.file))
	obj := filepath.Join(dir, stem+".o")

	cc := make([]string, 0, len(tc.CompilerFlags)+5)
	cc = append(cc, tc.CompilerPath)
	cc = append(cc, tc.CompilerFlags...)
	cc = append(cc, "-c", a.Source(), "-o", obj)
	if _, err := process.Exec(ctx, a.runner, process.Command(dir, cc...)); err != nil {
		return "", eris.Wrapf(err, "compile failed for %s", t)
	}

	ar := tc.ArchiverPath
	if ar == "" {
		ar = "ar"
	}
	out := filepath.Join(dir, a.artifact)
	if _, err := process.Exec(ctx, a.runner, process.Command(dir, ar, "rcs", out, obj)); err != nil {
		return "", eris.Wrapf(err, "archive failed for %s", t)
	}
	return out, nil
}

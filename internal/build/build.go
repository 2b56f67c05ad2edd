// Package build drives a library through its build table: every target is
// built in a clean scratch directory, its artifact collected, and the
// artifacts of each platform merged into one universal archive.
package build

import (
	"context"
	"runtime"

	"github.com/goplus/unilib/internal/process"
	"github.com/goplus/unilib/internal/toolchain"
	"github.com/goplus/unilib/internal/workdir"
	"github.com/goplus/unilib/matrix"
	"github.com/goplus/unilib/pkgs/buildsys"
	"github.com/goplus/unilib/pkgs/buildsys/amalgamation"
	"github.com/goplus/unilib/pkgs/buildsys/autotools"
	"github.com/goplus/unilib/pkgs/buildsys/cmake"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// DefaultLipo is the command that merges per-architecture archives.
var DefaultLipo = []string{"xcrun", "lipo"}

// Options configure a Builder.
type Options struct {
	// Root is the project root library directories are relative to.
	Root    string
	Tools   buildsys.Tools
	Lipo    []string
	Runner  process.Runner
	Locator toolchain.SDKLocator
	// HostOS defaults to runtime.GOOS.
	HostOS string
}

// Builder builds libraries one after another.
type Builder struct {
	opts     Options
	resolver *toolchain.Resolver
}

func NewBuilder(opts Options) *Builder {
	if len(opts.Lipo) == 0 {
		opts.Lipo = DefaultLipo
	}
	if opts.HostOS == "" {
		opts.HostOS = runtime.GOOS
	}
	return &Builder{
		opts:     opts,
		resolver: &toolchain.Resolver{Locator: opts.Locator},
	}
}

// Artifact is the collected archive of one target.
type Artifact struct {
	Target matrix.Target
	Path   string
}

// Universal is the merged archive of one platform.
type Universal struct {
	Platform matrix.Platform
	Path     string
}

// Result is what a successful library build produced.
type Result struct {
	Library   string
	Artifacts []Artifact
	Merged    []Universal
}

// Run checks the host, then builds libs in order. The first failure aborts
// the run.
func (b *Builder) Run(ctx context.Context, libs []*matrix.Library) ([]*Result, error) {
	if err := toolchain.CheckHost(b.opts.HostOS); err != nil {
		return nil, err
	}
	results := make([]*Result, 0, len(libs))
	for _, lib := range libs {
		res, err := b.Build(ctx, lib)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// Build builds every target of lib and merges each platform.
func (b *Builder) Build(ctx context.Context, lib *matrix.Library) (*Result, error) {
	logger := zerolog.Ctx(ctx)
	logger.Info().Msgf("Building %s ...", lib.Name)

	layout := lib.Layout(b.opts.Root)
	bs, err := newBuildSystem(lib, layout, b.opts.Runner, b.opts.Tools)
	if err != nil {
		return nil, err
	}
	if err := bs.Prepare(ctx); err != nil {
		return nil, eris.Wrapf(err, "failed to prepare %s", lib.Name)
	}

	res := &Result{Library: lib.Name}
	for _, g := range lib.Groups() {
		logger.Info().Msgf("Building for %s ...", g.Platform)

		inputs := make([]string, 0, len(g.Targets))
		for _, t := range g.Targets {
			path, err := b.buildTarget(ctx, bs, lib, layout, t)
			if err != nil {
				return nil, err
			}
			inputs = append(inputs, path)
			res.Artifacts = append(res.Artifacts, Artifact{Target: t, Path: path})
		}

		merged := layout.MergedPath(lib.Lib, g.Platform)
		if err := Merge(ctx, b.opts.Runner, b.opts.Lipo, merged, inputs); err != nil {
			return nil, eris.Wrapf(err, "failed to merge %s for %s", lib.Name, g.Platform)
		}
		res.Merged = append(res.Merged, Universal{Platform: g.Platform, Path: merged})
	}

	if err := newManifest(layout, res).Save(layout.Output); err != nil {
		logger.Warn().Err(err).Msg("Failed to write build manifest")
	}
	return res, nil
}

func (b *Builder) buildTarget(ctx context.Context, bs buildsys.BuildSystem, lib *matrix.Library, layout matrix.Layout, t matrix.Target) (string, error) {
	zerolog.Ctx(ctx).Info().Msgf("> Building for %s ...", t)

	tc, err := b.resolver.Resolve(ctx, t)
	if err != nil {
		return "", err
	}
	if err := workdir.PrepareClean(ctx, layout.Build); err != nil {
		return "", err
	}
	produced, err := bs.Build(ctx, t, tc, layout.Build)
	if err != nil {
		return "", err
	}
	dst := layout.ArtifactPath(lib.Lib, t)
	if err := Collect(produced, dst); err != nil {
		return "", err
	}
	return dst, nil
}

func newBuildSystem(lib *matrix.Library, layout matrix.Layout, runner process.Runner, tools buildsys.Tools) (buildsys.BuildSystem, error) {
	switch lib.Variant {
	case matrix.Autotools:
		return autotools.New(lib, layout, runner, tools), nil
	case matrix.Amalgamation:
		return amalgamation.New(lib, layout, runner, tools), nil
	case matrix.CMake:
		return cmake.New(lib, layout, runner, tools), nil
	}
	return nil, eris.Wrapf(matrix.ErrInvalid, "library %s: unknown variant %q", lib.Name, lib.Variant)
}

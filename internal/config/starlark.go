package config

import (
	"context"
	"fmt"

	"github.com/goplus/unilib/matrix"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"go.starlark.net/starlark"
)

// A Starlark configuration declares its table through builtins:
//
//	tools(make = "gmake")
//	format(patterns = ["**/*.md"])
//	library(
//	    name = "oniguruma",
//	    lib = "libonig",
//	    variant = "autotools",
//	    artifact = "src/.libs/libonig.a",
//	    platforms = [
//	        platform("macos", sdk = "macosx", deployment_target = "10.6", archs = ["x86_64", "arm64"]),
//	    ],
//	)

type starCtx struct {
	cfg       *Config
	sawTools  bool
	sawFormat bool
}

func getStarCtx(thread *starlark.Thread) *starCtx {
	return thread.Local("config").(*starCtx)
}

type starlarkIterable interface {
	Len() int
	Iterate() starlark.Iterator
}

func starlarkIterable2stringSlice(input starlarkIterable, field string) ([]string, error) {
	if value, ok := input.(*starlark.List); ok && value == nil {
		return nil, nil
	}

	result := make([]string, 0, input.Len())
	iter := input.Iterate()
	defer iter.Done()

	var item starlark.Value
	for iter.Next(&item) {
		switch value := item.(type) {
		case starlark.String:
			result = append(result, value.GoString())
		default:
			return nil, eris.Errorf("expected all items in %s to be strings but found %s", field, item.Type())
		}
	}
	return result, nil
}

// starPlatform is the value returned by platform().
type starPlatform struct {
	spec matrix.PlatformSpec
}

var _ starlark.Value = (*starPlatform)(nil)

func (p *starPlatform) String() string        { return fmt.Sprintf("platform(%q)", p.spec.Name) }
func (p *starPlatform) Type() string          { return "platform" }
func (p *starPlatform) Freeze()               {}
func (p *starPlatform) Truth() starlark.Bool  { return starlark.True }
func (p *starPlatform) Hash() (uint32, error) { return 0, eris.New("unhashable type: platform") }

func starPlatformFn(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name, sdk, simulatorSDK, deploymentTarget, versionFlag string
	var simulatorArchs, cflags, archs *starlark.List

	err := starlark.UnpackArgs(fn.Name(), args, kwargs,
		"name", &name, "sdk", &sdk, "deployment_target", &deploymentTarget, "archs", &archs,
		"simulator_sdk?", &simulatorSDK, "simulator_archs?", &simulatorArchs,
		"version_flag?", &versionFlag, "cflags?", &cflags)
	if err != nil {
		return nil, err
	}

	p := &starPlatform{spec: matrix.PlatformSpec{
		Name:             matrix.Platform(name),
		SDK:              sdk,
		SimulatorSDK:     simulatorSDK,
		DeploymentTarget: deploymentTarget,
		VersionFlag:      versionFlag,
	}}
	if p.spec.Archs, err = starlarkIterable2stringSlice(archs, "archs"); err != nil {
		return nil, err
	}
	if p.spec.SimulatorArchs, err = starlarkIterable2stringSlice(simulatorArchs, "simulator_archs"); err != nil {
		return nil, err
	}
	if p.spec.CFlags, err = starlarkIterable2stringSlice(cflags, "cflags"); err != nil {
		return nil, err
	}
	return p, nil
}

func starLibrary(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var variant string
	var configure, cflags, platforms *starlark.List
	lib := new(matrix.Library)

	err := starlark.UnpackArgs(fn.Name(), args, kwargs,
		"name", &lib.Name, "lib", &lib.Lib, "variant", &variant, "platforms", &platforms,
		"dir?", &lib.Dir, "source?", &lib.Source, "build_dir?", &lib.BuildDir, "gen_dir?", &lib.GenDir,
		"output_dir?", &lib.OutputDir, "merged_dir?", &lib.MergedDir, "artifact?", &lib.Artifact,
		"amalgamation?", &lib.Amalgamation, "configure?", &configure, "cflags?", &cflags)
	if err != nil {
		return nil, err
	}
	lib.Variant = matrix.Variant(variant)

	if lib.Configure, err = starlarkIterable2stringSlice(configure, "configure"); err != nil {
		return nil, err
	}
	if lib.CFlags, err = starlarkIterable2stringSlice(cflags, "cflags"); err != nil {
		return nil, err
	}

	iter := platforms.Iterate()
	defer iter.Done()
	var item starlark.Value
	for iter.Next(&item) {
		p, ok := item.(*starPlatform)
		if !ok {
			return nil, eris.Errorf("%s: expected all items in platforms to be platform() values but found %s", lib.Name, item.Type())
		}
		lib.Platforms = append(lib.Platforms, p.spec)
	}

	ctx := getStarCtx(thread)
	ctx.cfg.Libraries = append(ctx.cfg.Libraries, lib)
	return starlark.None, nil
}

func starTools(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	ctx := getStarCtx(thread)
	if ctx.sawTools {
		return nil, eris.New("tools() can only be called once")
	}
	ctx.sawTools = true

	t := &ctx.cfg.Tools
	var lipo *starlark.List
	err := starlark.UnpackArgs(fn.Name(), args, kwargs,
		"autoreconf?", &t.Autoreconf, "make?", &t.Make, "cmake?", &t.CMake, "xcrun?", &t.Xcrun, "lipo?", &lipo)
	if err != nil {
		return nil, err
	}
	t.Lipo, err = starlarkIterable2stringSlice(lipo, "lipo")
	if err != nil {
		return nil, err
	}
	return starlark.None, nil
}

func starFormat(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	ctx := getStarCtx(thread)
	if ctx.sawFormat {
		return nil, eris.New("format() can only be called once")
	}
	ctx.sawFormat = true

	var command, patterns *starlark.List
	err := starlark.UnpackArgs(fn.Name(), args, kwargs, "command?", &command, "patterns?", &patterns)
	if err != nil {
		return nil, err
	}
	f := &ctx.cfg.Format
	if f.Command, err = starlarkIterable2stringSlice(command, "command"); err != nil {
		return nil, err
	}
	if f.Patterns, err = starlarkIterable2stringSlice(patterns, "patterns"); err != nil {
		return nil, err
	}
	return starlark.None, nil
}

func parseStarlark(ctx context.Context, filename string, script []byte) (*Config, error) {
	builtins := starlark.StringDict{
		"library":  starlark.NewBuiltin("library", starLibrary),
		"platform": starlark.NewBuiltin("platform", starPlatformFn),
		"tools":    starlark.NewBuiltin("tools", starTools),
		"format":   starlark.NewBuiltin("format", starFormat),
	}

	logger := zerolog.Ctx(ctx)
	thread := &starlark.Thread{
		Name: "config",
		Print: func(thread *starlark.Thread, msg string) {
			logger.Info().Str("thread", thread.Name).Msg(msg)
		},
	}
	sc := &starCtx{cfg: new(Config)}
	thread.SetLocal("config", sc)

	if _, err := starlark.ExecFile(thread, filename, script, builtins); err != nil {
		if evalError, ok := err.(*starlark.EvalError); ok {
			return nil, eris.New(evalError.Backtrace())
		}
		return nil, err
	}
	return sc.cfg, nil
}

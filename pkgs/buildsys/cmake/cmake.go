// Package cmake drives libraries that are built with the cmake CLI.
package cmake

import (
	"context"
	"path/filepath"
	"sort"

	"github.com/goplus/unilib/internal/process"
	"github.com/goplus/unilib/internal/toolchain"
	"github.com/goplus/unilib/matrix"
	"github.com/goplus/unilib/pkgs/buildsys"
	"github.com/rotisserie/eris"
)

type defineValue struct {
	value    string
	typeName string
}

// Defines holds cache entries passed to cmake as -D options.
type Defines map[string]defineValue

// Define sets a plain cache entry.
func (d Defines) Define(key, value string) Defines {
	d[key] = defineValue{value: value}
	return d
}

// DefineBool sets a BOOL cache entry.
func (d Defines) DefineBool(key string, value bool) Defines {
	if value {
		d[key] = defineValue{value: "ON", typeName: "BOOL"}
		return d
	}
	d[key] = defineValue{value: "OFF", typeName: "BOOL"}
	return d
}

// Args renders d as -D options sorted by key.
func (d Defines) Args() []string {
	if len(d) == 0 {
		return nil
	}
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]string, 0, len(keys))
	for _, k := range keys {
		def := d[k]
		if def.typeName != "" {
			args = append(args, "-D"+k+":"+def.typeName+"="+def.value)
			continue
		}
		args = append(args, "-D"+k+"="+def.value)
	}
	return args
}

// CMake configures and builds a library out of tree, one build tree per
// target.
type CMake struct {
	runner    process.Runner
	tools     buildsys.Tools
	sourceDir string
	artifact  string
	options   []string
	buildType string
}

var _ buildsys.BuildSystem = (*CMake)(nil)

// New returns the cmake build of lib.
func New(lib *matrix.Library, layout matrix.Layout, runner process.Runner, tools buildsys.Tools) *CMake {
	return &CMake{
		runner:    runner,
		tools:     tools.WithDefaults(),
		sourceDir: layout.Source,
		artifact:  lib.Artifact,
		options:   lib.Configure,
		buildType: "Release",
	}
}

// BuildType overrides the CMAKE_BUILD_TYPE, Release by default.
func (c *CMake) BuildType(name string) *CMake {
	c.buildType = name
	return c
}

// Prepare does nothing: cmake needs no once-per-run step.
func (c *CMake) Prepare(ctx context.Context) error {
	return nil
}

// Defines returns the cache entries of t.
func (c *CMake) Defines(t matrix.Target, tc *toolchain.Config) Defines {
	d := Defines{}.
		Define("CMAKE_BUILD_TYPE", c.buildType).
		DefineBool("BUILD_SHARED_LIBS", false).
		Define("CMAKE_C_COMPILER", tc.CompilerPath).
		Define("CMAKE_C_FLAGS", tc.CFlags()).
		Define("CMAKE_OSX_SYSROOT", tc.SysrootPath).
		Define("CMAKE_OSX_ARCHITECTURES", t.Arch)
	if t.Platform == matrix.IOS {
		d.Define("CMAKE_SYSTEM_NAME", "iOS")
	}
	return d
}

// Configure generates the build tree of t in dir.
func (c *CMake) Configure(ctx context.Context, t matrix.Target, tc *toolchain.Config, dir string) error {
	args := []string{c.tools.CMake, "-S", c.sourceDir, "-B", dir}
	args = append(args, c.Defines(t, tc).Args()...)
	args = append(args, c.options...)
	_, err := process.Exec(ctx, c.runner, process.Command(dir, args...))
	return err
}

func (c *CMake) Build(ctx context.Context, t matrix.Target, tc *toolchain.Config, dir string) (string, error) {
	if err := c.Configure(ctx, t, tc, dir); err != nil {
		return "", eris.Wrapf(err, "cmake configure failed for %s", t)
	}
	cmd := process.Command(dir, c.tools.CMake, "--build", dir, "--config", c.buildType)
	if _, err := process.Exec(ctx, c.runner, cmd); err != nil {
		return "", eris.Wrapf(err, "cmake build failed for %s", t)
	}
	return filepath.Join(dir, c.artifact), nil
}

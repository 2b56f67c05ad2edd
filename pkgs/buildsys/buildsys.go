// Package buildsys defines how a library's external build tools are driven
// for one build target. Implementations live in the sub packages.
package buildsys

import (
	"context"

	"github.com/goplus/unilib/internal/toolchain"
	"github.com/goplus/unilib/matrix"
)

// BuildSystem captures the lifecycle shared by the build variants.
type BuildSystem interface {
	// Prepare runs the steps that happen once per run, before any target is
	// built (regenerating configure, generating an amalgamation, ...).
	Prepare(ctx context.Context) error

	// Build builds t inside dir, which is empty when Build is called, and
	// returns the path of the produced static library.
	Build(ctx context.Context, t matrix.Target, tc *toolchain.Config, dir string) (string, error)
}

// Tools names the build tools the variants invoke.
type Tools struct {
	Autoreconf string
	Make       string
	CMake      string
}

// WithDefaults fills unset tools with their usual names.
func (t Tools) WithDefaults() Tools {
	if t.Autoreconf == "" {
		t.Autoreconf = "autoreconf"
	}
	if t.Make == "" {
		t.Make = "make"
	}
	if t.CMake == "" {
		t.CMake = "cmake"
	}
	return t
}

// Package matrix describes what gets built: libraries, the platforms they
// target and the architectures of every platform.
package matrix

import (
	"fmt"
	"path/filepath"
	"slices"
)

// -----------------------------------------------------------------------------

// Platform is an Apple platform a library can be built for.
type Platform string

const (
	MacOS Platform = "macos"
	IOS   Platform = "ios"
)

// Valid reports whether p is a supported platform.
func (p Platform) Valid() bool {
	return p == MacOS || p == IOS
}

// DefaultVersionFlag returns the compiler flag that sets the minimum OS version.
func (p Platform) DefaultVersionFlag() string {
	switch p {
	case MacOS:
		return "-mmacosx-version-min"
	case IOS:
		return "-miphoneos-version-min"
	}
	return ""
}

// Variant selects how a library is driven through its external build tools.
type Variant string

const (
	// Autotools regenerates the build system once, then runs configure and
	// make for every target.
	Autotools Variant = "autotools"
	// Amalgamation generates a single source file once, then compiles and
	// archives it directly for every target.
	Amalgamation Variant = "amalgamation"
	// CMake configures and builds every target with the cmake CLI.
	CMake Variant = "cmake"
)

// Valid reports whether v is a known variant.
func (v Variant) Valid() bool {
	return v == Autotools || v == Amalgamation || v == CMake
}

// DefaultSimulatorArchs are the architectures that run on a simulator SDK.
var DefaultSimulatorArchs = []string{"x86_64", "i386"}

// -----------------------------------------------------------------------------

// PlatformSpec is one row of a library's build table.
type PlatformSpec struct {
	Name             Platform `yaml:"name" json:"name"`
	SDK              string   `yaml:"sdk" json:"sdk"`
	SimulatorSDK     string   `yaml:"simulatorSdk,omitempty" json:"simulatorSdk,omitempty"`
	SimulatorArchs   []string `yaml:"simulatorArchs,omitempty" json:"simulatorArchs,omitempty"`
	DeploymentTarget string   `yaml:"deploymentTarget" json:"deploymentTarget"`
	VersionFlag      string   `yaml:"versionFlag,omitempty" json:"versionFlag,omitempty"`
	CFlags           []string `yaml:"cflags,omitempty" json:"cflags,omitempty"`
	Archs            []string `yaml:"archs" json:"archs"`
}

// SDKFor returns the SDK name arch is built against.
// Simulator architectures resolve to SimulatorSDK when the platform has one;
// everything else resolves to SDK.
func (p *PlatformSpec) SDKFor(arch string) string {
	if p.SimulatorSDK == "" {
		return p.SDK
	}
	simArchs := p.SimulatorArchs
	if len(simArchs) == 0 {
		simArchs = DefaultSimulatorArchs
	}
	if slices.Contains(simArchs, arch) {
		return p.SimulatorSDK
	}
	return p.SDK
}

// MinVersionFlag returns the complete minimum-OS-version flag, e.g.
// "-mmacosx-version-min=10.6".
func (p *PlatformSpec) MinVersionFlag() string {
	flag := p.VersionFlag
	if flag == "" {
		flag = p.Name.DefaultVersionFlag()
	}
	return flag + "=" + p.DeploymentTarget
}

// -----------------------------------------------------------------------------

// Library is a third-party library and the table of targets it is built for.
type Library struct {
	// Name identifies the library on the command line, e.g. "oniguruma".
	Name string `yaml:"name" json:"name"`
	// Dir is the library directory, relative to the project root.
	Dir string `yaml:"dir" json:"dir"`
	// Lib is the file name stem of every artifact, e.g. "libonig".
	Lib     string  `yaml:"lib" json:"lib"`
	Variant Variant `yaml:"variant" json:"variant"`

	// Directories below Dir.
	Source    string `yaml:"source,omitempty" json:"source,omitempty"`
	BuildDir  string `yaml:"buildDir,omitempty" json:"buildDir,omitempty"`
	GenDir    string `yaml:"genDir,omitempty" json:"genDir,omitempty"`
	OutputDir string `yaml:"outputDir,omitempty" json:"outputDir,omitempty"`
	MergedDir string `yaml:"mergedDir,omitempty" json:"mergedDir,omitempty"`

	// Artifact is the path of the produced static library relative to the
	// build directory.
	Artifact string `yaml:"artifact,omitempty" json:"artifact,omitempty"`
	// Amalgamation is the generated single source file (amalgamation variant).
	Amalgamation string `yaml:"amalgamation,omitempty" json:"amalgamation,omitempty"`

	Configure []string       `yaml:"configure,omitempty" json:"configure,omitempty"`
	CFlags    []string       `yaml:"cflags,omitempty" json:"cflags,omitempty"`
	Platforms []PlatformSpec `yaml:"platforms" json:"platforms"`
}

// Target is a single (platform, architecture) build of a library.
type Target struct {
	Platform       Platform
	Arch           string
	SDK            string
	MinVersionFlag string
	// CFlags holds the library flags followed by the platform flags.
	CFlags []string
}

func (t Target) String() string {
	return string(t.Platform) + "-" + t.Arch
}

// Group holds the targets of one platform in declared order.
type Group struct {
	Platform Platform
	Targets  []Target
}

// Groups returns the targets of l grouped per platform, in declared order.
func (l *Library) Groups() []Group {
	groups := make([]Group, 0, len(l.Platforms))
	for i := range l.Platforms {
		p := &l.Platforms[i]
		g := Group{Platform: p.Name, Targets: make([]Target, 0, len(p.Archs))}
		for _, arch := range p.Archs {
			cflags := make([]string, 0, len(l.CFlags)+len(p.CFlags))
			cflags = append(cflags, l.CFlags...)
			cflags = append(cflags, p.CFlags...)
			g.Targets = append(g.Targets, Target{
				Platform:       p.Name,
				Arch:           arch,
				SDK:            p.SDKFor(arch),
				MinVersionFlag: p.MinVersionFlag(),
				CFlags:         cflags,
			})
		}
		groups = append(groups, g)
	}
	return groups
}

// Targets returns every target of l in declared order.
func (l *Library) Targets() []Target {
	var ret []Target
	for _, g := range l.Groups() {
		ret = append(ret, g.Targets...)
	}
	return ret
}

// ArtifactName returns the file name of a per-architecture artifact.
func ArtifactName(lib string, platform Platform, arch string) string {
	return fmt.Sprintf("%s-%s-%s.a", lib, platform, arch)
}

// MergedName returns the file name of a platform's universal artifact.
func MergedName(lib string, platform Platform) string {
	return fmt.Sprintf("%s-%s-universe.a", lib, platform)
}

// -----------------------------------------------------------------------------

// Layout holds the absolute directories of a library below a project root.
type Layout struct {
	Root   string
	Source string
	Build  string
	Gen    string
	Output string
	Merged string
}

// Layout resolves the directories of l against root.
func (l *Library) Layout(root string) Layout {
	dir := l.Dir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}
	dir = filepath.Clean(dir)
	join := func(p string) string {
		if filepath.IsAbs(p) {
			return filepath.Clean(p)
		}
		return filepath.Join(dir, p)
	}
	return Layout{
		Root:   dir,
		Source: join(l.Source),
		Build:  join(l.BuildDir),
		Gen:    join(l.GenDir),
		Output: join(l.OutputDir),
		Merged: join(l.MergedDir),
	}
}

// ArtifactPath returns where the artifact of t is collected.
func (lo Layout) ArtifactPath(lib string, t Target) string {
	return filepath.Join(lo.Output, ArtifactName(lib, t.Platform, t.Arch))
}

// MergedPath returns where the universal artifact of platform is written.
func (lo Layout) MergedPath(lib string, platform Platform) string {
	return filepath.Join(lo.Merged, MergedName(lib, platform))
}

// -----------------------------------------------------------------------------

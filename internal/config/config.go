// Package config loads the build table and the tool settings of a project.
package config

import (
	_ "embed"

	"github.com/goplus/unilib/matrix"
	"github.com/goplus/unilib/pkgs/buildsys"
	"github.com/rotisserie/eris"
)

// ErrUnknownLibrary is returned when a library is requested that the build
// table does not declare.
var ErrUnknownLibrary = eris.New("unknown library")

//go:embed defaults.yaml
var defaultTable []byte

// Tools names the external commands the builder invokes.
type Tools struct {
	Autoreconf string   `yaml:"autoreconf,omitempty" json:"autoreconf,omitempty"`
	Make       string   `yaml:"make,omitempty" json:"make,omitempty"`
	CMake      string   `yaml:"cmake,omitempty" json:"cmake,omitempty"`
	Xcrun      string   `yaml:"xcrun,omitempty" json:"xcrun,omitempty"`
	Lipo       []string `yaml:"lipo,omitempty" json:"lipo,omitempty"`
}

// BuildTools returns the tools of the build variants.
func (t *Tools) BuildTools() buildsys.Tools {
	return buildsys.Tools{Autoreconf: t.Autoreconf, Make: t.Make, CMake: t.CMake}
}

// Format configures the formatting check.
type Format struct {
	Command  []string `yaml:"command,omitempty" json:"command,omitempty"`
	Patterns []string `yaml:"patterns,omitempty" json:"patterns,omitempty"`
}

// Config is a loaded configuration.
type Config struct {
	Tools     Tools             `yaml:"tools,omitempty" json:"tools,omitempty"`
	Format    Format            `yaml:"format,omitempty" json:"format,omitempty"`
	Libraries []*matrix.Library `yaml:"libraries" json:"libraries"`

	// Path is the file the configuration was loaded from, empty for the
	// built-in table.
	Path string `yaml:"-" json:"-"`
	// Root is the project root library directories are relative to.
	Root string `yaml:"-" json:"-"`
}

// Library returns the library called name.
func (c *Config) Library(name string) (*matrix.Library, bool) {
	for _, lib := range c.Libraries {
		if lib.Name == name {
			return lib, true
		}
	}
	return nil, false
}

// Select returns the libraries called names in the given order, or every
// library when names is empty. Repeated names are built once.
func (c *Config) Select(names []string) ([]*matrix.Library, error) {
	if len(names) == 0 {
		return c.Libraries, nil
	}
	libs := make([]*matrix.Library, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		lib, ok := c.Library(name)
		if !ok {
			return nil, eris.Wrapf(ErrUnknownLibrary, "%s", name)
		}
		libs = append(libs, lib)
	}
	return libs, nil
}

// Validate checks every library and the uniqueness of their names.
func (c *Config) Validate() error {
	if len(c.Libraries) == 0 {
		return eris.Wrap(matrix.ErrInvalid, "no libraries declared")
	}
	seen := make(map[string]bool, len(c.Libraries))
	for _, lib := range c.Libraries {
		if lib == nil {
			return eris.Wrap(matrix.ErrInvalid, "empty library entry")
		}
		if err := lib.Validate(); err != nil {
			return err
		}
		if seen[lib.Name] {
			return eris.Wrapf(matrix.ErrInvalid, "library %s declared twice", lib.Name)
		}
		seen[lib.Name] = true
	}
	if len(c.Format.Command) == 0 {
		return eris.Wrap(matrix.ErrInvalid, "format command is empty")
	}
	return nil
}

// -----------------------------------------------------------------------------

const defaultPattern = "**/*.{md,json,yml,js,vue}"

var defaultFormatCommand = []string{"npx", "prettier", "--check"}

func (c *Config) applyDefaults() {
	t := &c.Tools
	setDefault(&t.Autoreconf, "autoreconf")
	setDefault(&t.Make, "make")
	setDefault(&t.CMake, "cmake")
	setDefault(&t.Xcrun, "xcrun")
	if len(t.Lipo) == 0 {
		t.Lipo = []string{t.Xcrun, "lipo"}
	}

	if len(c.Format.Command) == 0 {
		c.Format.Command = append([]string(nil), defaultFormatCommand...)
	}
	if len(c.Format.Patterns) == 0 {
		c.Format.Patterns = []string{defaultPattern}
	}

	for _, lib := range c.Libraries {
		if lib != nil {
			libraryDefaults(lib)
		}
	}
}

func libraryDefaults(lib *matrix.Library) {
	setDefault(&lib.Dir, lib.Name)
	setDefault(&lib.Source, "source")
	setDefault(&lib.BuildDir, ".build")
	setDefault(&lib.GenDir, ".amalgamation")
	setDefault(&lib.OutputDir, "dist")
	setDefault(&lib.MergedDir, ".")

	switch lib.Variant {
	case matrix.Autotools:
		// libtool's output directory
		setDefault(&lib.Artifact, ".libs/"+lib.Lib+".a")
	case matrix.Amalgamation:
		setDefault(&lib.Artifact, lib.Lib+".a")
	case matrix.CMake:
		setDefault(&lib.Artifact, lib.Lib+".a")
	}
}

func setDefault(s *string, value string) {
	if *s == "" {
		*s = value
	}
}

// Package toolchain resolves the compiler, archiver and SDK root each build
// target is compiled with.
package toolchain

import (
	"context"
	"strings"

	"github.com/goplus/unilib/internal/process"
	"github.com/goplus/unilib/matrix"
	"github.com/rotisserie/eris"
)

// ErrUnsupportedHost is returned when the builder runs on a host it cannot
// cross-compile from.
var ErrUnsupportedHost = eris.New("unsupported host platform")

var supportedHosts = []string{"darwin"}

// CheckHost fails unless goos is a supported host.
func CheckHost(goos string) error {
	for _, h := range supportedHosts {
		if goos == h {
			return nil
		}
	}
	return eris.Wrapf(ErrUnsupportedHost, "unknown platform: %s", goos)
}

// -----------------------------------------------------------------------------

// SDK is what the SDK locator reports for an SDK name.
type SDK struct {
	Compiler string
	Archiver string
	Sysroot  string
}

// SDKLocator finds the tools and system root of a named SDK.
type SDKLocator interface {
	Locate(ctx context.Context, sdk string) (*SDK, error)
}

// Xcrun locates SDKs with xcrun.
type Xcrun struct {
	Runner process.Runner
	// Path of xcrun, defaults to "xcrun".
	Path string
	// Dir is the working directory for the queries.
	Dir string
}

func (x *Xcrun) Locate(ctx context.Context, sdk string) (*SDK, error) {
	cc, err := x.query(ctx, sdk, "--find", "clang")
	if err != nil {
		return nil, err
	}
	ar, err := x.query(ctx, sdk, "--find", "ar")
	if err != nil {
		return nil, err
	}
	sysroot, err := x.query(ctx, sdk, "--show-sdk-path")
	if err != nil {
		return nil, err
	}
	return &SDK{Compiler: cc, Archiver: ar, Sysroot: sysroot}, nil
}

func (x *Xcrun) query(ctx context.Context, sdk string, args ...string) (string, error) {
	path := x.Path
	if path == "" {
		path = "xcrun"
	}
	cmd := process.Command(x.Dir, append([]string{path, "-sdk", sdk}, args...)...)
	cmd.Quiet = true
	res, err := process.Exec(ctx, x.Runner, cmd)
	if err != nil {
		return "", eris.Wrapf(err, "failed to locate sdk %s", sdk)
	}
	out := res.Output()
	if out == "" {
		return "", eris.Errorf("xcrun returned nothing for sdk %s (%s)", sdk, strings.Join(args, " "))
	}
	return out, nil
}

// -----------------------------------------------------------------------------

// Config is the concrete toolchain of one build target.
type Config struct {
	CompilerPath  string
	ArchiverPath  string
	SysrootPath   string
	CompilerFlags []string
	HostTriple    string
}

// CFlags returns the compiler flags as one string, the form configure expects.
func (c *Config) CFlags() string {
	return strings.Join(c.CompilerFlags, " ")
}

// Resolver turns build targets into toolchain configurations.
type Resolver struct {
	Locator SDKLocator
}

// Resolve queries the SDK of t and assembles its compiler flags.
func (r *Resolver) Resolve(ctx context.Context, t matrix.Target) (*Config, error) {
	sdk, err := r.Locator.Locate(ctx, t.SDK)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to resolve toolchain for %s", t)
	}

	flags := make([]string, 0, 5+len(t.CFlags))
	flags = append(flags, "-arch", t.Arch)
	if t.MinVersionFlag != "" {
		flags = append(flags, t.MinVersionFlag)
	}
	flags = append(flags, "-isysroot", sdk.Sysroot)
	flags = append(flags, t.CFlags...)

	return &Config{
		CompilerPath:  sdk.Compiler,
		ArchiverPath:  sdk.Archiver,
		SysrootPath:   sdk.Sysroot,
		CompilerFlags: flags,
		HostTriple:    t.Arch + "-apple-darwin",
	}, nil
}

// Package process runs external tools. Every tool the builder drives (the SDK
// locator, configure, make, the compiler, the archiver, lipo, the formatter)
// goes through the same Runner interface, so the orchestration never depends
// on a tool's internals.
package process

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"golang.org/x/sys/execabs"
	"mvdan.cc/sh/v3/syntax"
)

var (
	// ErrNotFound is returned when a tool is not on PATH.
	ErrNotFound = eris.New("external tool not found")
	// ErrExit is returned when a tool exits with a non-zero status.
	ErrExit = eris.New("external tool failed")
)

// Cmd describes one invocation of an external tool.
type Cmd struct {
	Path string
	Args []string
	// Dir is the working directory of the tool. It must be absolute.
	Dir string
	// Quiet logs the command at debug level instead of info level.
	Quiet bool
}

// Command returns a Cmd for argv, running in dir.
func Command(dir string, argv ...string) *Cmd {
	if len(argv) == 0 {
		panic("process: empty command")
	}
	return &Cmd{Path: argv[0], Args: argv[1:], Dir: dir}
}

// String renders c as a shell command line.
func (c *Cmd) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, quote(c.Path))
	for _, arg := range c.Args {
		parts = append(parts, quote(arg))
	}
	return strings.Join(parts, " ")
}

// quote quotes s for bash. Options and assignments of the form key=value keep
// the key unquoted, e.g. CFLAGS='-arch arm64'.
func quote(s string) string {
	if key, value, ok := strings.Cut(s, "="); ok && key != "" {
		if k, err := syntax.Quote(key, syntax.LangBash); err == nil && k == key {
			if v, err := syntax.Quote(value, syntax.LangBash); err == nil {
				if value == "" {
					v = ""
				}
				return key + "=" + v
			}
		}
	}
	quoted, err := syntax.Quote(s, syntax.LangBash)
	if err != nil {
		return s
	}
	return quoted
}

// Result is the outcome of a command that could be started.
type Result struct {
	ExitCode int
	Stdout   []byte
}

// Output returns stdout with trailing whitespace removed.
func (r *Result) Output() string {
	return strings.TrimRight(string(r.Stdout), " \t\r\n")
}

// Runner starts external tools.
// Run returns an error only when the tool cannot be started; a tool that
// exits with a non-zero status is reported through Result.ExitCode.
type Runner interface {
	Run(ctx context.Context, cmd *Cmd) (*Result, error)
}

// Exec logs cmd, runs it through r and turns a non-zero exit status into
// ErrExit.
func Exec(ctx context.Context, r Runner, cmd *Cmd) (*Result, error) {
	logger := zerolog.Ctx(ctx)
	evt := logger.Info()
	if cmd.Quiet {
		evt = logger.Debug()
	}
	evt.Bool("command", true).Str("dir", cmd.Dir).Msg(cmd.String())

	res, err := r.Run(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return res, eris.Wrapf(ErrExit, "command failed with exit status %d: %s", res.ExitCode, cmd)
	}
	return res, nil
}

// -----------------------------------------------------------------------------

// ExecRunner runs tools as child processes.
type ExecRunner struct {
	// Stdout additionally receives the tool's standard output when set.
	Stdout io.Writer
	Stderr io.Writer
}

// NewExecRunner creates an ExecRunner. stdout may be nil, in which case the
// standard output of tools is only captured.
func NewExecRunner(stdout, stderr io.Writer) *ExecRunner {
	return &ExecRunner{Stdout: stdout, Stderr: stderr}
}

func (r *ExecRunner) Run(ctx context.Context, c *Cmd) (*Result, error) {
	path, err := execabs.LookPath(c.Path)
	if err != nil {
		return nil, eris.Wrapf(ErrNotFound, "%s: %v", c.Path, err)
	}

	var stdout bytes.Buffer
	cmd := execabs.CommandContext(ctx, path, c.Args...)
	cmd.Dir = c.Dir
	if r.Stdout != nil {
		cmd.Stdout = io.MultiWriter(&stdout, r.Stdout)
	} else {
		cmd.Stdout = &stdout
	}
	cmd.Stderr = r.Stderr

	err = cmd.Run()
	res := &Result{Stdout: stdout.Bytes()}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return nil, eris.Wrapf(err, "failed to run %s", c.Path)
	}
	return res, nil
}

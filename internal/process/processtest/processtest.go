// Package processtest provides a recording process.Runner for tests.
package processtest

import (
	"context"
	"os"
	"path/filepath"

	"github.com/goplus/unilib/internal/process"
)

// Recorder is a process.Runner that records every command and delegates the
// outcome to Handler. A nil Handler succeeds with empty output.
type Recorder struct {
	Cmds    []*process.Cmd
	Handler func(cmd *process.Cmd) (*process.Result, error)
}

func (r *Recorder) Run(ctx context.Context, cmd *process.Cmd) (*process.Result, error) {
	r.Cmds = append(r.Cmds, cmd)
	if r.Handler == nil {
		return &process.Result{}, nil
	}
	return r.Handler(cmd)
}

// Lines returns the rendered command lines in invocation order.
func (r *Recorder) Lines() []string {
	lines := make([]string, len(r.Cmds))
	for i, cmd := range r.Cmds {
		lines[i] = cmd.String()
	}
	return lines
}

// Dirs returns the working directories in invocation order.
func (r *Recorder) Dirs() []string {
	dirs := make([]string, len(r.Cmds))
	for i, cmd := range r.Cmds {
		dirs[i] = cmd.Dir
	}
	return dirs
}

// OK is a successful result.
func OK(stdout string) (*process.Result, error) {
	return &process.Result{Stdout: []byte(stdout)}, nil
}

// Fail is a result with a non-zero exit status.
func Fail(code int) (*process.Result, error) {
	return &process.Result{ExitCode: code}, nil
}

// Touch creates an empty file at path, with its parent directories.
func Touch(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, nil, 0o644)
}

// Arg returns the argument following flag in cmd, or "".
func Arg(cmd *process.Cmd, flag string) string {
	for i, a := range cmd.Args {
		if a == flag && i+1 < len(cmd.Args) {
			return cmd.Args[i+1]
		}
	}
	return ""
}

// Package fmtcheck runs the project's formatting check.
package fmtcheck

import (
	"context"

	"github.com/goplus/unilib/internal/config"
	"github.com/goplus/unilib/internal/process"
	"github.com/rotisserie/eris"
)

// ErrUnformatted is returned when the formatter reports a problem.
var ErrUnformatted = eris.New("formatting check failed")

// Check runs the format command over its patterns in root.
func Check(ctx context.Context, runner process.Runner, root string, format config.Format) error {
	if len(format.Command) == 0 {
		return eris.New("no format command configured")
	}
	argv := make([]string, 0, len(format.Command)+len(format.Patterns))
	argv = append(argv, format.Command...)
	argv = append(argv, format.Patterns...)

	_, err := process.Exec(ctx, runner, process.Command(root, argv...))
	if eris.Is(err, process.ErrExit) {
		return eris.Wrap(ErrUnformatted, err.Error())
	}
	return err
}

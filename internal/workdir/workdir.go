// Package workdir manages the scratch directories external builds run in.
package workdir

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// PrepareClean makes path an empty directory. An existing directory is
// removed recursively first. The directory is not removed after the build,
// so a failed build can be inspected; the next call wipes it.
func PrepareClean(ctx context.Context, path string) error {
	_, err := os.Lstat(path)
	switch {
	case err == nil:
		zerolog.Ctx(ctx).Info().Str("path", path).Msg("Removing old build folder ...")
		if err := os.RemoveAll(path); err != nil {
			return eris.Wrapf(err, "failed to remove %s", path)
		}
	case !os.IsNotExist(err):
		return eris.Wrapf(err, "failed to check %s", path)
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return eris.Wrapf(err, "failed to create %s", path)
	}
	return nil
}

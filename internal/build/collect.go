package build

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/goplus/unilib/internal/process"
	"github.com/rotisserie/eris"
)

// ErrMissingArtifact is returned when a build did not produce the expected
// archive.
var ErrMissingArtifact = eris.New("expected artifact is missing")

// Collect moves the archive at src to dst, creating the directory of dst
// when needed.
func Collect(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return eris.Wrapf(ErrMissingArtifact, "%s", src)
		}
		return eris.Wrapf(err, "failed to stat %s", src)
	}
	if info.IsDir() {
		return eris.Wrapf(ErrMissingArtifact, "%s is a directory", src)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return eris.Wrap(err, "failed to create output directory")
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	// cross-device
	if err := copyFile(src, dst, info.Mode()); err != nil {
		return eris.Wrapf(err, "failed to collect %s", src)
	}
	if err := os.Remove(src); err != nil {
		return eris.Wrapf(err, "failed to remove %s after copying it", src)
	}
	return nil
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Merge combines the per-architecture archives inputs into output with the
// lipo command.
func Merge(ctx context.Context, runner process.Runner, lipo []string, output string, inputs []string) error {
	if len(lipo) == 0 {
		lipo = DefaultLipo
	}
	if len(inputs) == 0 {
		return eris.Errorf("nothing to merge into %s", output)
	}
	dir := filepath.Dir(output)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "failed to create %s", dir)
	}
	argv := make([]string, 0, len(lipo)+3+len(inputs))
	argv = append(argv, lipo...)
	argv = append(argv, "-create", "-output", output)
	argv = append(argv, inputs...)
	_, err := process.Exec(ctx, runner, process.Command(dir, argv...))
	return err
}

package build

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/goplus/unilib/internal/process"
	"github.com/goplus/unilib/internal/process/processtest"
	"github.com/rotisserie/eris"
)

func TestCollect(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, ".build", "src", ".libs", "libonig.a")
	if err := os.MkdirAll(filepath.Dir(src), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(src, []byte("!<arch>\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	dst := filepath.Join(dir, "dist", "libonig-macos-arm64.a")
	if err := Collect(src, dst); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("collected file: %v", err)
	}
	if string(data) != "!<arch>\n" {
		t.Errorf("content = %q", data)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Errorf("source still present after collect: %v", err)
	}
}

func TestCollectOverwrites(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "new.a")
	dst := filepath.Join(dir, "dist", "old.a")
	for path, content := range map[string]string{src: "new", dst: "old"} {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := Collect(src, dst); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if data, _ := os.ReadFile(dst); string(data) != "new" {
		t.Errorf("content = %q, want new", data)
	}
}

func TestCollectMissing(t *testing.T) {
	dir := t.TempDir()
	err := Collect(filepath.Join(dir, "nope.a"), filepath.Join(dir, "dist", "x.a"))
	if !eris.Is(err, ErrMissingArtifact) {
		t.Fatalf("Collect() = %v, want ErrMissingArtifact", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "dist")); !os.IsNotExist(err) {
		t.Errorf("output directory created for a missing artifact")
	}

	err = Collect(dir, filepath.Join(dir, "x.a"))
	if !eris.Is(err, ErrMissingArtifact) {
		t.Fatalf("Collect(dir) = %v, want ErrMissingArtifact", err)
	}
}

func TestCollectRemoveFailure(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("directory permissions are not enforced for root")
	}
	dir := t.TempDir()
	buildDir := filepath.Join(dir, ".build")
	src := filepath.Join(buildDir, "libonig.a")
	if err := processtest.Touch(src); err != nil {
		t.Fatal(err)
	}
	// A read-only parent makes both rename and remove fail, forcing the copy.
	if err := os.Chmod(buildDir, 0o555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(buildDir, 0o755) })

	dst := filepath.Join(dir, "dist", "libonig-macos-arm64.a")
	err := Collect(src, dst)
	if err == nil {
		t.Fatal("Collect succeeded although the source could not be removed")
	}
	if !strings.Contains(err.Error(), "failed to remove "+src) {
		t.Errorf("error %q does not wrap the remove failure", err)
	}
	if _, err := os.Stat(dst); err != nil {
		t.Errorf("artifact not copied: %v", err)
	}
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a")
	dst := filepath.Join(dir, "b")
	if err := os.WriteFile(src, []byte("payload"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := copyFile(src, dst, 0o600); err != nil {
		t.Fatalf("copyFile: %v", err)
	}
	if data, _ := os.ReadFile(dst); string(data) != "payload" {
		t.Errorf("content = %q", data)
	}
}

func TestMerge(t *testing.T) {
	rec := &processtest.Recorder{Handler: func(cmd *process.Cmd) (*process.Result, error) {
		if _, err := os.Stat(cmd.Dir); err != nil {
			return nil, err
		}
		return processtest.OK("")
	}}
	root := t.TempDir()
	mergedDir := filepath.Join(root, "oniguruma", "universal")
	out := filepath.Join(mergedDir, "libonig-macos-universe.a")
	inputs := []string{
		filepath.Join(root, "oniguruma", "dist", "libonig-macos-x86_64.a"),
		filepath.Join(root, "oniguruma", "dist", "libonig-macos-arm64.a"),
	}

	if err := Merge(context.Background(), rec, nil, out, inputs); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	want := []string{"xcrun lipo -create -output " + out + " " + inputs[0] + " " + inputs[1]}
	if got := rec.Lines(); !slices.Equal(got, want) {
		t.Errorf("commands = %q, want %q", got, want)
	}
	if rec.Cmds[0].Dir != mergedDir {
		t.Errorf("lipo ran in %s, want %s", rec.Cmds[0].Dir, mergedDir)
	}
	if info, err := os.Stat(mergedDir); err != nil || !info.IsDir() {
		t.Errorf("merged directory not created: %v", err)
	}
}

func TestMergeErrors(t *testing.T) {
	rec := &processtest.Recorder{Handler: func(*process.Cmd) (*process.Result, error) {
		return processtest.Fail(1)
	}}
	if err := Merge(context.Background(), rec, []string{"lipo"}, "/out.a", []string{"/a.a"}); !eris.Is(err, process.ErrExit) {
		t.Errorf("Merge() = %v, want ErrExit", err)
	}
	if err := Merge(context.Background(), rec, nil, "/out.a", nil); err == nil {
		t.Errorf("Merge() with no inputs succeeded")
	}
	if len(rec.Cmds) != 1 {
		t.Errorf("lipo ran %d times, want 1", len(rec.Cmds))
	}
}

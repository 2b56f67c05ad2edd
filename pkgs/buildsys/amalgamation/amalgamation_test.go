package amalgamation

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/goplus/unilib/internal/process"
	"github.com/goplus/unilib/internal/process/processtest"
	"github.com/goplus/unilib/internal/toolchain"
	"github.com/goplus/unilib/matrix"
	"github.com/goplus/unilib/pkgs/buildsys"
	"github.com/rotisserie/eris"
)

func sqlite(root string) (*matrix.Library, matrix.Layout) {
	lib := &matrix.Library{
		Name:         "sqlite3",
		Dir:          "sqlite3",
		Lib:          "libsqlite3",
		Variant:      matrix.Amalgamation,
		Source:       "source",
		BuildDir:     ".build",
		GenDir:       ".amalgamation",
		Amalgamation: "sqlite3.c",
		Configure:    []string{"--enable-all", "--disable-tcl", "--disable-readline"},
	}
	return lib, lib.Layout(root)
}

func TestPrepare(t *testing.T) {
	lib, layout := sqlite(t.TempDir())
	stale := filepath.Join(layout.Gen, "sqlite3.c")
	if err := processtest.Touch(stale); err != nil {
		t.Fatal(err)
	}

	rec := &processtest.Recorder{Handler: func(cmd *process.Cmd) (*process.Result, error) {
		if _, err := os.Stat(stale); err == nil {
			t.Errorf("%s ran before the generation directory was cleaned", cmd)
		}
		return processtest.OK("")
	}}
	a := New(lib, layout, rec, buildsys.Tools{})
	if err := a.Prepare(context.Background()); err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	want := []string{
		filepath.Join(layout.Source, "configure") + " --enable-all --disable-tcl --disable-readline",
		"make sqlite3.c",
	}
	if got := rec.Lines(); !slices.Equal(got, want) {
		t.Errorf("commands =\n%q\nwant\n%q", got, want)
	}
	for _, d := range rec.Dirs() {
		if d != layout.Gen {
			t.Errorf("command ran in %s, want %s", d, layout.Gen)
		}
	}
	if got, want := a.Source(), filepath.Join(layout.Gen, "sqlite3.c"); got != want {
		t.Errorf("Source() = %q, want %q", got, want)
	}
}

func TestPrepareConfigureFails(t *testing.T) {
	lib, layout := sqlite(t.TempDir())
	rec := &processtest.Recorder{Handler: func(*process.Cmd) (*process.Result, error) {
		return processtest.Fail(1)
	}}
	err := New(lib, layout, rec, buildsys.Tools{}).Prepare(context.Background())
	if !eris.Is(err, process.ErrExit) {
		t.Fatalf("Prepare() = %v, want ErrExit", err)
	}
	if len(rec.Cmds) != 1 {
		t.Errorf("ran %d commands, want 1", len(rec.Cmds))
	}
}

func TestBuild(t *testing.T) {
	lib, layout := sqlite(t.TempDir())
	dir := layout.Build
	rec := &processtest.Recorder{}
	a := New(lib, layout, rec, buildsys.Tools{})

	target := matrix.Target{Platform: matrix.IOS, Arch: "armv7", SDK: "iphoneos"}
	tc := &toolchain.Config{
		CompilerPath:  "/xc/clang",
		ArchiverPath:  "/xc/ar",
		CompilerFlags: []string{"-arch", "armv7", "-mios-version-min=9.0", "-isysroot", "/sdk", "-DHAVE_GETHOSTUUID=0"},
	}
	artifact, err := a.Build(context.Background(), target, tc, dir)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if want := filepath.Join(dir, "libsqlite3.a"); artifact != want {
		t.Errorf("artifact = %q, want %q", artifact, want)
	}

	obj := filepath.Join(dir, "sqlite3.o")
	want := []string{
		"/xc/clang -arch armv7 -mios-version-min=9.0 -isysroot /sdk -DHAVE_GETHOSTUUID=0 -c " +
			filepath.Join(layout.Gen, "sqlite3.c") + " -o " + obj,
		"/xc/ar rcs " + artifact + " " + obj,
	}
	if got := rec.Lines(); !slices.Equal(got, want) {
		t.Errorf("commands =\n%q\nwant\n%q", got, want)
	}
}

func TestBuildArchiverFallback(t *testing.T) {
	lib, layout := sqlite(t.TempDir())
	lib.Artifact = "out/libsqlite3.a"
	rec := &processtest.Recorder{}
	a := New(lib, layout, rec, buildsys.Tools{})

	target := matrix.Target{Platform: matrix.MacOS, Arch: "x86_64", SDK: "macosx"}
	artifact, err := a.Build(context.Background(), target, &toolchain.Config{CompilerPath: "cc"}, layout.Build)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if want := filepath.Join(layout.Build, "out", "libsqlite3.a"); artifact != want {
		t.Errorf("artifact = %q, want %q", artifact, want)
	}
	if got := rec.Cmds[1].Path; got != "ar" {
		t.Errorf("archiver = %q, want ar", got)
	}
}

func TestBuildCompileFails(t *testing.T) {
	lib, layout := sqlite(t.TempDir())
	rec := &processtest.Recorder{Handler: func(*process.Cmd) (*process.Result, error) {
		return processtest.Fail(1)
	}}
	a := New(lib, layout, rec, buildsys.Tools{})
	target := matrix.Target{Platform: matrix.MacOS, Arch: "arm64", SDK: "macosx"}
	if _, err := a.Build(context.Background(), target, &toolchain.Config{CompilerPath: "cc"}, layout.Build); !eris.Is(err, process.ErrExit) {
		t.Fatalf("Build() = %v, want ErrExit", err)
	}
	if len(rec.Cmds) != 1 {
		t.Errorf("archiver ran after a failed compile")
	}
}

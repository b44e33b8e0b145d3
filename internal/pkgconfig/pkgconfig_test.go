package pkgconfig

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/oarkflow/yambs/internal/yambserr"
)

// fakePkgConfig installs a shell script named pkg-config on PATH that prints
// canned flags for --cflags/--libs and exits non-zero when failOnModule
// matches the queried module, so Resolve's retry and error paths can be
// exercised without a real pkg-config installation.
func fakePkgConfig(t *testing.T, failOnModule string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake pkg-config script uses a shell shebang")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "pkg-config")
	script := `#!/bin/sh
if [ "$2" = "` + failOnModule + `" ]; then
  echo "Package ` + failOnModule + ` was not found" 1>&2
  exit 1
fi
case "$1" in
  --cflags) echo "-I/opt/$2/include" ;;
  --libs) echo "-L/opt/$2/lib -l$2" ;;
esac
`
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("writing fake pkg-config: %v", err)
	}
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func TestResolveReturnsFlags(t *testing.T) {
	fakePkgConfig(t, "")
	o := New()
	r, err := o.Resolve("zlib", "/usr/lib/pkgconfig")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if r.Cflags != "-I/opt/zlib/include" {
		t.Errorf("Cflags = %q", r.Cflags)
	}
	if r.Libs != "-L/opt/zlib/lib -lzlib" {
		t.Errorf("Libs = %q", r.Libs)
	}
}

func TestResolveCachesByModuleAndSearchDir(t *testing.T) {
	fakePkgConfig(t, "")
	o := New()
	if _, err := o.Resolve("zlib", "/a"); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	// A second call with the same key should hit the in-memory cache, not
	// shell out again; we can't observe process count directly, but we can
	// verify a different search dir gets its own cache slot.
	if _, err := o.Resolve("zlib", "/b"); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(o.cache) != 2 {
		t.Errorf("cache has %d entries, want 2 (one per search dir)", len(o.cache))
	}
}

func TestResolveFailureIsPkgConfigFailed(t *testing.T) {
	fakePkgConfig(t, "missing")
	o := New()
	_, err := o.Resolve("missing", "/usr/lib/pkgconfig")
	if err == nil {
		t.Fatal("Resolve() error = nil, want PkgConfigFailed")
	}
	var e *yambserr.Error
	if !errors.As(err, &e) || e.Kind != yambserr.PkgConfigFailed {
		t.Errorf("error = %v, want PkgConfigFailed", err)
	}
}

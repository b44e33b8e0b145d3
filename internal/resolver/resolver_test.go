package resolver

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/oarkflow/yambs/internal/target"
	"github.com/oarkflow/yambs/internal/yambserr"
)

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// S1: minimal single-target manifest resolves to one root, no edges.
func TestResolveMinimalExecutable(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "main.cpp"), "int main(){return 0;}")
	mustWrite(t, filepath.Join(root, "yambs.toml"), `
[executable.x]
sources = ["main.cpp"]
`)

	g, err := New().Resolve(filepath.Join(root, "yambs.toml"), "")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(g.Order) != 1 {
		t.Fatalf("Order = %+v, want 1 target", g.Order)
	}
	if g.Order[0].Id.Name != "x" {
		t.Errorf("Order[0].Id.Name = %q, want x", g.Order[0].Id.Name)
	}
}

// S3: one source dependency resolves internally and exports its include dir.
func TestResolveSourceDependency(t *testing.T) {
	root := t.TempDir()
	appDir := filepath.Join(root, "app")
	libDir := filepath.Join(root, "lib")

	mustWrite(t, filepath.Join(appDir, "main.cpp"), "int main(){return 0;}")
	mustWrite(t, filepath.Join(appDir, "yambs.toml"), `
[executable.x]
sources = ["main.cpp"]

[executable.x.dependencies.lib]
path = "../lib"
`)
	mustWrite(t, filepath.Join(libDir, "src", "lib.cpp"), "void f(){}")
	mustWrite(t, filepath.Join(libDir, "include", ".keep"), "")
	mustWrite(t, filepath.Join(libDir, "yambs.toml"), `
[library.lib]
sources = ["src/lib.cpp"]
`)

	g, err := New().Resolve(filepath.Join(appDir, "yambs.toml"), "")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(g.Order) != 2 {
		t.Fatalf("Order = %+v, want 2 targets", g.Order)
	}
	// dependency must precede dependent in the generated order.
	if g.Order[0].Id.Name != "lib" || g.Order[1].Id.Name != "x" {
		t.Errorf("Order = [%s, %s], want [lib, x]", g.Order[0].Id.Name, g.Order[1].Id.Name)
	}
	x := g.Order[1]
	if len(x.Edges) != 1 || x.Edges[0].Kind != target.EdgeInternal {
		t.Fatalf("x.Edges = %+v", x.Edges)
	}
	lib := x.Edges[0].Target
	wantInclude := filepath.Join(libDir, "include")
	if len(lib.ExportedIncludes) != 1 || lib.ExportedIncludes[0] != wantInclude {
		t.Errorf("lib.ExportedIncludes = %+v, want [%s]", lib.ExportedIncludes, wantInclude)
	}
}

// S4: diamond dependency collapses to one node, visited once.
func TestResolveDiamondDedup(t *testing.T) {
	root := t.TempDir()
	aDir := filepath.Join(root, "a")
	bDir := filepath.Join(root, "b")
	cDir := filepath.Join(root, "c")
	dDir := filepath.Join(root, "d")

	mustWrite(t, filepath.Join(dDir, "d.cpp"), "void d(){}")
	mustWrite(t, filepath.Join(dDir, "yambs.toml"), `
[library.d]
sources = ["d.cpp"]
`)
	mustWrite(t, filepath.Join(bDir, "b.cpp"), "void b(){}")
	mustWrite(t, filepath.Join(bDir, "yambs.toml"), `
[library.b]
sources = ["b.cpp"]

[library.b.dependencies.d]
path = "../d"
`)
	mustWrite(t, filepath.Join(cDir, "c.cpp"), "void c(){}")
	mustWrite(t, filepath.Join(cDir, "yambs.toml"), `
[library.c]
sources = ["c.cpp"]

[library.c.dependencies.d]
path = "../d"
`)
	mustWrite(t, filepath.Join(aDir, "a.cpp"), "int main(){return 0;}")
	mustWrite(t, filepath.Join(aDir, "yambs.toml"), `
[executable.a]
sources = ["a.cpp"]

[executable.a.dependencies.b]
path = "../b"

[executable.a.dependencies.c]
path = "../c"
`)

	g, err := New().Resolve(filepath.Join(aDir, "yambs.toml"), "")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	dCount := 0
	for _, n := range g.Order {
		if n.Id.Name == "d" {
			dCount++
		}
	}
	if dCount != 1 {
		t.Fatalf("d appears %d times in Order, want exactly 1", dCount)
	}
	if len(g.Order) != 4 {
		t.Fatalf("Order has %d targets, want 4 (a, b, c, d)", len(g.Order))
	}

	var aTarget *target.ResolvedTarget
	for _, n := range g.Order {
		if n.Id.Name == "a" {
			aTarget = n
		}
	}
	link := LinkOrder(g, aTarget)
	if len(link) != 3 {
		t.Fatalf("LinkOrder(a) = %+v, want 3 entries", link)
	}
	if link[len(link)-1].Id.Name != "d" {
		t.Errorf("LinkOrder(a) last entry = %s, want d (dependency after dependents)", link[len(link)-1].Id.Name)
	}
}

// S5: a cycle is reported with both target names, fails fast.
func TestResolveCycleFailsFast(t *testing.T) {
	root := t.TempDir()
	aDir := filepath.Join(root, "a")
	bDir := filepath.Join(root, "b")

	mustWrite(t, filepath.Join(aDir, "a.cpp"), "void a(){}")
	mustWrite(t, filepath.Join(aDir, "yambs.toml"), `
[library.a]
sources = ["a.cpp"]

[library.a.dependencies.b]
path = "../b"
`)
	mustWrite(t, filepath.Join(bDir, "b.cpp"), "void b(){}")
	mustWrite(t, filepath.Join(bDir, "yambs.toml"), `
[library.b]
sources = ["b.cpp"]

[library.b.dependencies.a]
path = "../a"
`)

	_, err := New().Resolve(filepath.Join(aDir, "yambs.toml"), "")
	if err == nil {
		t.Fatal("Resolve() error = nil, want DependencyCycle")
	}
	var e *yambserr.Error
	if !errors.As(err, &e) {
		t.Fatalf("error type = %T, want *yambserr.Error", err)
	}
	if e.Kind != yambserr.DependencyCycle {
		t.Errorf("Kind = %s, want DependencyCycle", e.Kind)
	}
}

// S6: a prebuilt binary dependency picks the right path per configuration
// and always exposes its include directory.
func TestResolvePrebuiltBinary(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "tests.cpp"), "int main(){return 0;}")
	mustWrite(t, filepath.Join(root, "libgtestd.a"), "")
	mustWrite(t, filepath.Join(root, "libgtest.a"), "")
	mustWrite(t, filepath.Join(root, "gtest", "gtest.h"), "")
	mustWrite(t, filepath.Join(root, "yambs.toml"), `
[executable.tests]
sources = ["tests.cpp"]

[executable.tests.dependencies.gtest]
include_directory = "`+filepath.Join(root, "gtest")+`"

[executable.tests.dependencies.gtest.debug]
binary_path = "`+filepath.Join(root, "libgtestd.a")+`"

[executable.tests.dependencies.gtest.release]
binary_path = "`+filepath.Join(root, "libgtest.a")+`"
`)

	g, err := New().Resolve(filepath.Join(root, "yambs.toml"), "")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	rt := g.Order[0]
	if len(rt.Edges) != 1 || rt.Edges[0].Kind != target.EdgePrebuiltBinary {
		t.Fatalf("Edges = %+v", rt.Edges)
	}
	e := rt.Edges[0]
	if e.BinaryPath.Debug != filepath.Join(root, "libgtestd.a") {
		t.Errorf("BinaryPath.Debug = %q", e.BinaryPath.Debug)
	}
	if e.BinaryPath.Release != filepath.Join(root, "libgtest.a") {
		t.Errorf("BinaryPath.Release = %q", e.BinaryPath.Release)
	}
	if e.IncludeDirectory != filepath.Join(root, "gtest") {
		t.Errorf("IncludeDirectory = %q", e.IncludeDirectory)
	}
}

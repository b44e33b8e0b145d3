package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/oarkflow/yambs/internal/yambserr"
)

func writeManifest(t *testing.T, dir, toml string) string {
	t.Helper()
	path := filepath.Join(dir, "yambs.toml")
	if err := os.WriteFile(path, []byte(toml), 0o644); err != nil {
		t.Fatalf("writing manifest: %v", err)
	}
	return path
}

func touchSource(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("int main(){return 0;}"), 0o644); err != nil {
		t.Fatalf("writing source %s: %v", name, err)
	}
}

func TestParseMinimalExecutable(t *testing.T) {
	dir := t.TempDir()
	touchSource(t, dir, "main.cpp")
	path := writeManifest(t, dir, `
[executable.x]
sources = ["main.cpp"]
`)

	m, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(m.Executables) != 1 || m.Executables[0].Name != "x" {
		t.Fatalf("Executables = %+v", m.Executables)
	}
	if len(m.Executables[0].Sources) != 1 {
		t.Fatalf("Sources = %+v", m.Executables[0].Sources)
	}
}

func TestParsePreservesDefineOrder(t *testing.T) {
	dir := t.TempDir()
	touchSource(t, dir, "main.cpp")
	path := writeManifest(t, dir, `
[executable.x]
sources = ["main.cpp"]

[executable.x.defines]
ZETA = "1"
ALPHA = "2"
MID = ""
`)

	m, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	want := []Define{{Macro: "ZETA", Value: "1"}, {Macro: "ALPHA", Value: "2"}, {Macro: "MID", Value: ""}}
	got := m.Executables[0].Defines
	if len(got) != len(want) {
		t.Fatalf("Defines = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Defines[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestParseRejectsUnknownTopLevelTable(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `
[bogus.x]
sources = ["main.cpp"]
`)

	_, err := Parse(path)
	assertKind(t, err, yambserr.ManifestSchema)
}

func TestParseRejectsBadTargetName(t *testing.T) {
	dir := t.TempDir()
	touchSource(t, dir, "main.cpp")
	path := writeManifest(t, dir, `
[executable."1bad"]
sources = ["main.cpp"]
`)

	_, err := Parse(path)
	assertKind(t, err, yambserr.BadTargetName)
}

func TestParseRejectsMissingSource(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `
[executable.x]
sources = ["missing.cpp"]
`)

	_, err := Parse(path)
	assertKind(t, err, yambserr.SourceNotFound)
}

func TestParseRejectsBadFlagToken(t *testing.T) {
	dir := t.TempDir()
	touchSource(t, dir, "main.cpp")
	path := writeManifest(t, dir, `
[executable.x]
sources = ["main.cpp"]
cxxflags_append = ["-Wall", "not-a-flag"]
`)

	_, err := Parse(path)
	assertKind(t, err, yambserr.BadFlagToken)
}

func TestParseAllowsSameNameAcrossKinds(t *testing.T) {
	dir := t.TempDir()
	touchSource(t, dir, "main.cpp")
	touchSource(t, dir, "lib.cpp")
	path := writeManifest(t, dir, `
[library.x]
sources = ["lib.cpp"]

[executable.x]
sources = ["main.cpp"]
`)

	// Different kinds sharing a name are fine (§3: unique within a kind).
	if _, err := Parse(path); err != nil {
		t.Fatalf("Parse() error = %v, want nil for same name across kinds", err)
	}
}

func TestCheckUniqueNamesRejectsDuplicateWithinKind(t *testing.T) {
	// TOML itself forbids redeclaring [executable.x] twice in one file, and
	// orderedTableKeys deduplicates names, so Parse never hands
	// checkUniqueNames a duplicate; it is exercised directly here.
	m := &Manifest{
		Executables: []TargetSpec{{Name: "x"}, {Name: "x"}},
	}
	err := checkUniqueNames(m)
	if err == nil {
		t.Fatalf("checkUniqueNames() = nil, want duplicate error")
	}
	assertKind(t, err, yambserr.ManifestSchema)
}

func TestParseSharedLibraryType(t *testing.T) {
	dir := t.TempDir()
	touchSource(t, dir, "lib.cpp")
	path := writeManifest(t, dir, `
[library.mylib]
sources = ["lib.cpp"]
type = "shared"
`)

	m, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if m.Libraries[0].LibraryType != Shared {
		t.Errorf("LibraryType = %q, want shared", m.Libraries[0].LibraryType)
	}
}

func TestParseDependencyVariants(t *testing.T) {
	dir := t.TempDir()
	touchSource(t, dir, "main.cpp")
	path := writeManifest(t, dir, `
[executable.x]
sources = ["main.cpp"]

[executable.x.dependencies.lib]
path = "../lib"

[executable.x.dependencies.gtest]
include_directory = "/usr/include/gtest"
search_type = "system"

[executable.x.dependencies.gtest.debug]
binary_path = "/opt/libgtestd.a"

[executable.x.dependencies.gtest.release]
binary_path = "/opt/libgtest.a"

[executable.x.dependencies.hdr]
include_directory = "/opt/hdr/include"

[executable.x.dependencies.pc]

[executable.x.dependencies.pc.default]
pkg_config_search_dir = "/usr/lib/pkgconfig"
`)

	m, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	deps := m.Executables[0].Dependencies
	if len(deps) != 4 {
		t.Fatalf("Dependencies = %+v", deps)
	}

	byName := map[string]DependencyDescriptor{}
	for _, d := range deps {
		byName[d.Name] = d
	}

	if byName["lib"].Kind != DependencySource || byName["lib"].Path != "../lib" {
		t.Errorf("lib = %+v", byName["lib"])
	}
	if byName["gtest"].Kind != DependencyPrebuiltBinary {
		t.Errorf("gtest.Kind = %v", byName["gtest"].Kind)
	}
	if byName["gtest"].Binary.Debug != "/opt/libgtestd.a" || byName["gtest"].Binary.Release != "/opt/libgtest.a" {
		t.Errorf("gtest.Binary = %+v", byName["gtest"].Binary)
	}
	if byName["hdr"].Kind != DependencyHeaderOnly {
		t.Errorf("hdr.Kind = %v", byName["hdr"].Kind)
	}
	if byName["pc"].Kind != DependencyPkgConfig {
		t.Errorf("pc.Kind = %v", byName["pc"].Kind)
	}
	// pc inherits its search dir for both configurations from [default].
	if byName["pc"].PkgConfigSearchDir.Debug != "/usr/lib/pkgconfig" || byName["pc"].PkgConfigSearchDir.Release != "/usr/lib/pkgconfig" {
		t.Errorf("pc.PkgConfigSearchDir = %+v", byName["pc"].PkgConfigSearchDir)
	}
}

func TestParseDependencyDefaultOverride(t *testing.T) {
	dir := t.TempDir()
	touchSource(t, dir, "main.cpp")
	path := writeManifest(t, dir, `
[executable.x]
sources = ["main.cpp"]

[executable.x.dependencies.gtest]
include_directory = "/usr/include/gtest"

[executable.x.dependencies.gtest.default]
binary_path = "/opt/libgtest-common.a"

[executable.x.dependencies.gtest.debug]
binary_path = "/opt/libgtestd.a"
`)

	m, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	dep := m.Executables[0].Dependencies[0]
	// debug overrides the default; release falls back to it.
	if dep.Binary.Debug != "/opt/libgtestd.a" {
		t.Errorf("Binary.Debug = %q, want override", dep.Binary.Debug)
	}
	if dep.Binary.Release != "/opt/libgtest-common.a" {
		t.Errorf("Binary.Release = %q, want default", dep.Binary.Release)
	}
}

func TestParseRejectsAmbiguousDependency(t *testing.T) {
	dir := t.TempDir()
	touchSource(t, dir, "main.cpp")
	path := writeManifest(t, dir, `
[executable.x]
sources = ["main.cpp"]

[executable.x.dependencies.bad]
path = "../lib"
include_directory = "/usr/include"
`)

	_, err := Parse(path)
	assertKind(t, err, yambserr.DependencyAmbiguous)
}

func TestParseRejectsUnknownTargetKey(t *testing.T) {
	dir := t.TempDir()
	touchSource(t, dir, "main.cpp")
	path := writeManifest(t, dir, `
[executable.x]
sources = ["main.cpp"]
optimizaton_level = "fast"
`)

	_, err := Parse(path)
	assertKind(t, err, yambserr.ManifestSchema)
}

func TestParseRejectsUnknownDependencyKey(t *testing.T) {
	dir := t.TempDir()
	touchSource(t, dir, "main.cpp")
	path := writeManifest(t, dir, `
[executable.x]
sources = ["main.cpp"]

[executable.x.dependencies.lib]
path = "../lib"
verison = "1.0"
`)

	_, err := Parse(path)
	assertKind(t, err, yambserr.ManifestSchema)
}

func TestParseRejectsUnknownDependencyHalfKey(t *testing.T) {
	dir := t.TempDir()
	touchSource(t, dir, "main.cpp")
	path := writeManifest(t, dir, `
[executable.x]
sources = ["main.cpp"]

[executable.x.dependencies.gtest]
include_directory = "/usr/include/gtest"

[executable.x.dependencies.gtest.debug]
binaryp_path = "/opt/libgtestd.a"
`)

	_, err := Parse(path)
	assertKind(t, err, yambserr.ManifestSchema)
}

func assertKind(t *testing.T, err error, want yambserr.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error of kind %s, got nil", want)
	}
	var e *yambserr.Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *yambserr.Error, got %T: %v", err, err)
	}
	if e.Kind != want {
		t.Fatalf("Kind = %s, want %s", e.Kind, want)
	}
}

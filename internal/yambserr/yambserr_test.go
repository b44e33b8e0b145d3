package yambserr

import (
	"errors"
	"testing"
)

func TestExitCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"usage", New(UsageError, "bad flag"), 4},
		{"build failed", New(BuildFailed, "make exited 2"), 3},
		{"cache corrupted", New(CacheCorrupted, "bad yaml"), 2},
		{"cycle defaults to one", New(DependencyCycle, "a -> b -> a"), 1},
		{"unclassified error", errors.New("boom"), 1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := ExitCode(c.err); got != c.want {
				t.Errorf("ExitCode(%v) = %d, want %d", c.err, got, c.want)
			}
		})
	}
}

func TestErrorMessageIncludesContext(t *testing.T) {
	err := New(SourceNotFound, "missing %s", "main.cpp").WithTarget("x").WithManifest("/app/yambs.toml")
	got := err.Error()
	want := "SourceNotFound: missing main.cpp (target x) [/app/yambs.toml]"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("exec: not found")
	err := Wrap(CompilerNotFound, cause, "cannot run %s", "g++")
	if !errors.Is(err, cause) {
		t.Errorf("expected wrapped error to match cause via errors.Is")
	}
	if err.Unwrap() != cause {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), cause)
	}
}

func TestToReportUnknownError(t *testing.T) {
	r := ToReport(errors.New("plain"))
	if r.Kind != "Unknown" || r.Message != "plain" {
		t.Errorf("ToReport(plain error) = %+v", r)
	}
}

func TestToReportTypedError(t *testing.T) {
	err := New(BadTargetName, "invalid name %q", "1bad").WithSource("src/main.cpp")
	r := ToReport(err)
	if r.Kind != BadTargetName || r.Source != "src/main.cpp" {
		t.Errorf("ToReport(typed error) = %+v", r)
	}
}

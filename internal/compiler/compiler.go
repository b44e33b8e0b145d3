// Package compiler discovers the CXX compiler's identity (§3 Compiler,
// §4.6). Detection shells out to "$CXX --version" and sniffs the family
// from its output, the same probe-by-running-the-tool idiom the teacher's
// internal/deps.IsAvailable/CheckAndInstallTool use for its cross-compiler
// and packaging tool detection, narrowed here to one fixed tool read from
// an environment variable instead of a table of installable tools.
package compiler

import (
	"context"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/oarkflow/yambs/internal/yambserr"
)

// Family is the compiler family sniffed from --version output.
type Family string

const (
	GCC   Family = "gcc"
	Clang Family = "clang"
)

// Compiler is the detected CXX identity described in §3.
type Compiler struct {
	ExecutablePath  string
	Family          Family
	DetectedVersion string
}

var gccVersionRe = regexp.MustCompile(`\b(\d+\.\d+(\.\d+)?)\b`)

// Detect runs "<cxxPath> --version" and classifies the result. It fails
// with CompilerNotFound if the binary can't be located or run, and
// UnsupportedCompiler if its output matches neither gcc nor clang.
func Detect(cxxPath string) (*Compiler, error) {
	resolved, err := exec.LookPath(cxxPath)
	if err != nil {
		return nil, yambserr.Wrap(yambserr.CompilerNotFound, err, "CXX=%s not found on PATH", cxxPath)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, resolved, "--version").CombinedOutput()
	if err != nil {
		return nil, yambserr.Wrap(yambserr.CompilerNotFound, err, "running %s --version", resolved)
	}

	text := string(out)
	firstLine := text
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		firstLine = text[:idx]
	}

	var family Family
	switch {
	case strings.Contains(strings.ToLower(text), "clang"):
		family = Clang
	case strings.Contains(strings.ToLower(text), "free software foundation") || strings.Contains(strings.ToLower(text), "gcc"):
		family = GCC
	default:
		return nil, yambserr.New(yambserr.UnsupportedCompiler, "could not classify compiler from output: %s", firstLine)
	}

	version := gccVersionRe.FindString(firstLine)
	log.Debug("detected compiler", "path", resolved, "family", family, "version", version)

	return &Compiler{ExecutablePath: resolved, Family: family, DetectedVersion: version}, nil
}

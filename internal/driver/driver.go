// Package driver implements the Driver Invoker (§4.6): it spawns the
// external build system named by YAMBS_BUILD_SYSTEM_EXECUTABLE against a
// generated configuration directory, streaming its output the same way the
// teacher's internal/builder drivers stream a `go build`/`docker build`
// child process's stdout/stderr through charmbracelet/log while also
// tee-ing it to a log file.
package driver

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/exec"
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/oarkflow/yambs/internal/yambserr"
)

// Options configures one invocation of the downstream build system.
type Options struct {
	ConfigDir      string // <build_root>/<config>, passed as -C
	Jobs           int    // 0 means let the build system pick its own default
	LogPath        string // yambs_log.txt, tee'd alongside stdout/stderr
	ExecutablePath string // resolved from YAMBS_BUILD_SYSTEM_EXECUTABLE
}

// lastStderrLines bounds how much of a failing build's stderr is retained
// for the BuildFailed error report (§7).
const lastStderrLines = 40

// Run spawns the configured build system over configDir and blocks until it
// exits, surfacing a BuildFailed error carrying the exit code and the last
// lines of stderr on failure.
func Run(ctx context.Context, opts Options) error {
	args := []string{"-C", opts.ConfigDir}
	if opts.Jobs > 0 {
		args = append(args, "-j", strconv.Itoa(opts.Jobs))
	}

	cmd := exec.CommandContext(ctx, opts.ExecutablePath, args...)

	logFile, err := os.OpenFile(opts.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return yambserr.Wrap(yambserr.Io, err, "opening build log %s", opts.LogPath)
	}
	defer logFile.Close()

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return yambserr.Wrap(yambserr.Io, err, "attaching stdout pipe")
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return yambserr.Wrap(yambserr.Io, err, "attaching stderr pipe")
	}

	if err := cmd.Start(); err != nil {
		return yambserr.Wrap(yambserr.BuildFailed, err, "starting %s", opts.ExecutablePath)
	}

	tail := newRing(lastStderrLines)
	done := make(chan struct{}, 2)
	go streamLines(stdout, logFile, log.Info, nil, done)
	go streamLines(stderr, logFile, log.Error, tail, done)
	<-done
	<-done

	err = cmd.Wait()
	if err != nil {
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		return yambserr.Wrap(yambserr.BuildFailed, err, "build exited %d:\n%s", exitCode, tail.String())
	}
	return nil
}

func streamLines(r io.Reader, logFile io.Writer, logFn func(interface{}, ...interface{}), tail *ring, done chan<- struct{}) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		logFn(line)
		logFile.Write([]byte(line + "\n"))
		if tail != nil {
			tail.push(line)
		}
	}
	done <- struct{}{}
}

// ring is a small fixed-capacity line buffer for the BuildFailed stderr
// tail; it is not a general-purpose data structure and is only ever used
// here.
type ring struct {
	lines []string
	cap   int
}

func newRing(capacity int) *ring {
	return &ring{cap: capacity}
}

func (r *ring) push(line string) {
	r.lines = append(r.lines, line)
	if len(r.lines) > r.cap {
		r.lines = r.lines[len(r.lines)-r.cap:]
	}
}

func (r *ring) String() string {
	out := ""
	for _, l := range r.lines {
		out += l + "\n"
	}
	return out
}

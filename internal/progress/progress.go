// Package progress implements the Progress Reporter (§4.7): it tails the
// progress.json line-oriented log a generated Makefile appends to as each
// target finishes, and renders it either as an in-place single-line bar on
// a TTY or as one log line per target otherwise — the same TTY-vs-not
// branch the teacher's own CLI takes for its release summary, detected with
// the same mattn/go-isatty check and rendered with charmbracelet/lipgloss.
package progress

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Line is one entry a generated makefile rule appends to progress.json.
type Line struct {
	Target    string `json:"target"`
	Source    string `json:"source"`
	Timestamp string `json:"timestamp"`
	Status    string `json:"status"`
}

var barStyle = lipgloss.NewStyle().Bold(true)

// Tail follows path (a progress.json file) until the build finishes (ctx is
// canceled or total targets are all reported), printing progress to w.
// total is the number of targets expected to report, used only to size the
// TTY progress bar; it is not required for correctness.
func Tail(ctx context.Context, path string, total int, w io.Writer) error {
	interactive := false
	if f, ok := w.(*os.File); ok {
		interactive = isatty.IsTerminal(f.Fd())
	}

	f, err := openWithRetry(ctx, path)
	if err != nil {
		return err
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	seen := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		raw, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				if total > 0 && seen >= total {
					return nil
				}
				time.Sleep(100 * time.Millisecond)
				continue
			}
			return err
		}

		var line Line
		if err := json.Unmarshal([]byte(raw), &line); err != nil {
			continue
		}
		seen++
		render(w, line, seen, total, interactive)
	}
}

func render(w io.Writer, line Line, seen, total int, interactive bool) {
	if !interactive {
		fmt.Fprintf(w, "[%d/%d] %s: %s\n", seen, max(total, seen), line.Target, line.Status)
		return
	}
	bar := barStyle.Render(fmt.Sprintf("[%d/%d]", seen, max(total, seen)))
	fmt.Fprintf(w, "\r%s %s: %s", bar, line.Target, line.Status)
	if total > 0 && seen >= total {
		fmt.Fprintln(w)
	}
}

// openWithRetry waits for progress.json to exist; the generator creates it
// empty before the build starts, but the reporter may be launched racing
// against that write.
func openWithRetry(ctx context.Context, path string) (*os.File, error) {
	for {
		f, err := os.Open(path)
		if err == nil {
			return f, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}

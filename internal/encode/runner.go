package encode

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// Runner executes an encoder invocation. The production implementation
// shells out to ffmpeg; tests substitute a recording fake.
type Runner interface {
	Run(ctx context.Context, binary string, args []string) error
}

// stderrTailLimit bounds how much encoder chatter is retained for error
// messages. ffmpeg emits a progress line per second, so an unbounded
// capture of a feature film would dwarf the useful tail.
const stderrTailLimit = 4096

type execRunner struct{}

// NewRunner returns the Runner used outside tests.
func NewRunner() Runner {
	return execRunner{}
}

func (execRunner) Run(ctx context.Context, binary string, args []string) error {
	tail := &tailWriter{limit: stderrTailLimit}
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.Stdout = io.Discard
	cmd.Stderr = tail
	if err := cmd.Run(); err != nil {
		if text := tail.String(); text != "" {
			return fmt.Errorf("%w: %s", err, text)
		}
		return err
	}
	return nil
}

// tailWriter keeps the last limit bytes written to it.
type tailWriter struct {
	limit int
	buf   []byte
}

func (w *tailWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	if len(w.buf) > w.limit {
		w.buf = w.buf[len(w.buf)-w.limit:]
	}
	return len(p), nil
}

func (w *tailWriter) String() string {
	return strings.TrimSpace(string(w.buf))
}

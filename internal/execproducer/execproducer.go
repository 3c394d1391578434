// Package execproducer turns a configured command into a swrcache producer.
package execproducer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/goforj/swrcache"
)

// waitDelay bounds how long Run waits for pipes held open by grandchildren after the
// command is killed.
const waitDelay = 500 * time.Millisecond

// ErrOutputTooLarge is returned when a command writes more than its output limit.
var ErrOutputTooLarge = errors.New("execproducer: output exceeds limit")

// Command describes one invocation.
type Command struct {
	Args     []string
	Timeout  time.Duration
	MaxBytes int64
}

// New returns a producer that runs cmd and yields its stdout.
//
// Each call is bounded by cmd.Timeout, so a hung command cannot pin a refresh slot
// forever. Output past cmd.MaxBytes fails the call instead of being truncated.
func New(cmd Command) swrcache.Producer[[]byte] {
	return func(ctx context.Context) ([]byte, error) {
		return Run(ctx, cmd)
	}
}

// Run executes cmd once.
func Run(ctx context.Context, cmd Command) ([]byte, error) {
	if len(cmd.Args) == 0 {
		return nil, fmt.Errorf("execproducer: empty command")
	}
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	stdout := &limitedBuffer{max: cmd.MaxBytes}
	stderr := &limitedBuffer{max: 4096}
	c := exec.CommandContext(ctx, cmd.Args[0], cmd.Args[1:]...)
	c.Stdout = stdout
	c.Stderr = stderr
	c.WaitDelay = waitDelay

	err := c.Run()
	if stdout.exceeded {
		return nil, fmt.Errorf("%s: %w (%d bytes)", cmd.Args[0], ErrOutputTooLarge, cmd.MaxBytes)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("%s: %w", cmd.Args[0], ctxErr)
	}
	if err != nil {
		msg := strings.TrimSpace(stderr.buf.String())
		if msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", cmd.Args[0], err, msg)
		}
		return nil, fmt.Errorf("%s: %w", cmd.Args[0], err)
	}
	return stdout.buf.Bytes(), nil
}

// limitedBuffer keeps at most max bytes. A write past max fails, which stops the copy
// from the child's pipe. max <= 0 means unlimited.
type limitedBuffer struct {
	buf      bytes.Buffer
	max      int64
	exceeded bool
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if b.max <= 0 {
		return b.buf.Write(p)
	}
	room := b.max - int64(b.buf.Len())
	if int64(len(p)) > room {
		b.exceeded = true
		if room > 0 {
			b.buf.Write(p[:room])
		}
		return 0, ErrOutputTooLarge
	}
	return b.buf.Write(p)
}

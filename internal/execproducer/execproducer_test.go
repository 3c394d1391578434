package execproducer

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestRunReturnsStdout(t *testing.T) {
	requireShell(t)
	out, err := Run(context.Background(), Command{Args: []string{"sh", "-c", "printf hello"}, Timeout: 5 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, "hello", string(out))
}

func TestRunIncludesStderrOnFailure(t *testing.T) {
	requireShell(t)
	_, err := Run(context.Background(), Command{Args: []string{"sh", "-c", "echo broken >&2; exit 3"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")

	var exitErr *exec.ExitError
	assert.ErrorAs(t, err, &exitErr)
}

func TestRunTimesOut(t *testing.T) {
	requireShell(t)
	start := time.Now()
	_, err := Run(context.Background(), Command{Args: []string{"sh", "-c", "exec sleep 5"}, Timeout: 100 * time.Millisecond})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestRunRejectsOversizedOutput(t *testing.T) {
	requireShell(t)
	_, err := Run(context.Background(), Command{
		Args:     []string{"sh", "-c", "printf 0123456789"},
		Timeout:  5 * time.Second,
		MaxBytes: 4,
	})
	assert.ErrorIs(t, err, ErrOutputTooLarge)
}

func TestRunEmptyCommand(t *testing.T) {
	_, err := Run(context.Background(), Command{})
	assert.Error(t, err)
}

func TestNewAdaptsToProducer(t *testing.T) {
	requireShell(t)
	produce := New(Command{Args: []string{"sh", "-c", "printf v1"}, Timeout: 5 * time.Second})
	out, err := produce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v1", string(out))
}

func TestLimitedBuffer(t *testing.T) {
	b := &limitedBuffer{max: 3}
	n, err := b.Write([]byte("ab"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = b.Write([]byte("cd"))
	assert.ErrorIs(t, err, ErrOutputTooLarge)
	assert.True(t, b.exceeded)
	assert.Equal(t, "abc", b.buf.String())

	unlimited := &limitedBuffer{}
	_, err = unlimited.Write(make([]byte, 1<<16))
	assert.NoError(t, err)
}

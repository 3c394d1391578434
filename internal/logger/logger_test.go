package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ctxKey struct{}

func requestID(ctx context.Context) (slog.Attr, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	if !ok || id == "" {
		return slog.Attr{}, false
	}
	return slog.String("request_id", id), true
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func TestNewWritesJSONWithExtractedAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: slog.LevelInfo, Output: &buf}, requestID, nil)

	ctx := context.WithValue(context.Background(), ctxKey{}, "req-1")
	log.InfoContext(ctx, "served", slog.String("key", "users"))

	rec := decode(t, &buf)
	assert.Equal(t, "served", rec["msg"])
	assert.Equal(t, "users", rec["key"])
	assert.Equal(t, "req-1", rec["request_id"])
}

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: slog.LevelWarn, Output: &buf})

	log.Info("dropped")
	assert.Zero(t, buf.Len())

	log.Warn("kept")
	assert.Equal(t, "kept", decode(t, &buf)["msg"])
}

func TestDecoratorKeepsExtractorsThroughWith(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Output: &buf}, requestID).With(slog.String("component", "swrcache"))

	ctx := context.WithValue(context.Background(), ctxKey{}, "req-2")
	log.InfoContext(ctx, "hello")

	rec := decode(t, &buf)
	assert.Equal(t, "swrcache", rec["component"])
	assert.Equal(t, "req-2", rec["request_id"])
}

func TestMultiHandlerFansOut(t *testing.T) {
	var a, b bytes.Buffer
	h := newMultiHandler(
		slog.NewJSONHandler(&a, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewJSONHandler(&b, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	log := slog.New(h)

	log.Debug("debug only")
	assert.NotZero(t, a.Len())
	assert.Zero(t, b.Len())

	log.Error("both")
	assert.Contains(t, b.String(), "both")
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":      slog.LevelInfo,
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewNope(t *testing.T) {
	log := NewNope()
	require.NotNil(t, log)
	log.Error("discarded")
}

package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capture logs one event through a fresh handler and returns the line.
func capture(t *testing.T, format logFormat, emit func(*slog.Logger)) string {
	t.Helper()
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]leveledWriter{{w: buf, min: slog.LevelDebug}}, 1024)
	h := newStructuredHandler(handlerConfig{level: slog.LevelDebug, writer: aw, format: format})
	emit(slog.New(h).With("component", "service.keys"))
	require.NoError(t, aw.Close())
	return strings.TrimSpace(buf.String())
}

func TestHandlerKVOrder(t *testing.T) {
	ctx := WithUpdateMeta(WithRID(Background(), "rid-123"), 42, 7, 9)
	line := capture(t, formatKV, func(l *slog.Logger) {
		LogEvent(ctx, l, slog.LevelInfo, "key.redeemed",
			slog.String("status", "OK"),
			slog.Int("key_days", 30),
		)
	})

	tokens := strings.Split(line, " ")
	want := []string{"ts=", "level=INFO", "component=service.keys", "event=key.redeemed", "status=ok", "rid=rid-123", "update_id=42", "user_id=7", "chat_id=9"}
	require.GreaterOrEqual(t, len(tokens), len(want), line)
	for i, prefix := range want {
		assert.True(t, strings.HasPrefix(tokens[i], prefix), "token %d = %s, want prefix %s", i, tokens[i], prefix)
	}
	assert.Contains(t, line, "key_days=30")
}

func TestHandlerJSON(t *testing.T) {
	ctx := WithHandler(WithRID(Background(), "12:34:56"), "vcf.wizard")
	line := capture(t, formatJSON, func(l *slog.Logger) {
		LogEvent(ctx, l, slog.LevelError, "vcf.failed",
			slog.String("err", "boom"),
			slog.Duration("duration", 1500*time.Microsecond),
			slog.Any("cause", errors.New("disk full")),
		)
	})

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &got), line)
	assert.Equal(t, "ERROR", got["level"])
	assert.Equal(t, CompactRID("12:34:56"), got["rid"])
	assert.Equal(t, "12:34:56", got["rid_full"])
	assert.Equal(t, "vcf.wizard", got["handler"])
	assert.Equal(t, float64(2), got["duration_ms"])
	assert.Equal(t, "disk full", got["cause"])
	assert.Contains(t, got, "ts_unix_nano")
	assert.True(t, strings.HasPrefix(line, `{"ts":`))
}

func TestHandlerKVCompactRID(t *testing.T) {
	ctx := WithRID(Background(), "123:456:789")
	line := capture(t, formatKV, func(l *slog.Logger) {
		LogEvent(ctx, l, slog.LevelInfo, "rid.test")
	})
	assert.Contains(t, line, "rid=3f.co.lx")
	assert.NotContains(t, line, "rid_full=")
	assert.NotContains(t, line, "ts_unix_nano")
}

func TestHandlerEnumsAndDefaults(t *testing.T) {
	ctx := Background()
	line := capture(t, formatKV, func(l *slog.Logger) {
		l.With("component", "").Log(ctx, slog.LevelWarn, "fallback.msg",
			"outcome", "exploded",
			"status", "Weird",
			"empty", "  ",
		)
	})
	assert.Contains(t, line, "event=fallback.msg")
	assert.Contains(t, line, "component=app")
	assert.Contains(t, line, "status=weird")
	assert.NotContains(t, line, "outcome=")
	assert.NotContains(t, line, "empty=")
}

func TestHandlerGroupsAndQuoting(t *testing.T) {
	ctx := Background()
	line := capture(t, formatKV, func(l *slog.Logger) {
		l.WithGroup("wizard").LogAttrs(ctx, slog.LevelInfo, "",
			slog.String("event", "wizard.step"),
			slog.Group("draft", slog.String("name", "my leads")),
		)
	})
	assert.Contains(t, line, `wizard.draft.name="my leads"`)
	assert.Contains(t, line, "component=service.keys")
}

func TestHandlerLevelFilter(t *testing.T) {
	h := newStructuredHandler(handlerConfig{level: slog.LevelWarn})
	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
	assert.ErrorIs(t, h.Handle(context.Background(), slog.Record{}), errNoWriter)
}

func TestWriterLevelledSinks(t *testing.T) {
	all, errs := &bytes.Buffer{}, &bytes.Buffer{}
	aw := newAsyncWriter([]leveledWriter{
		{w: all, min: slog.LevelDebug},
		{w: errs, min: slog.LevelWarn},
	}, 0)
	require.NoError(t, aw.Write(slog.LevelInfo, []byte("info\n")))
	require.NoError(t, aw.Write(slog.LevelError, []byte("error\n")))
	require.NoError(t, aw.Flush())
	assert.Equal(t, "info\nerror\n", all.String())
	assert.Equal(t, "error\n", errs.String())
	require.NoError(t, aw.Close())
	require.NoError(t, aw.Flush())
}

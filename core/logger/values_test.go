package logger

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	coreconfig "github.com/m3rciful/vcfbot/core/config"
)

func TestSanitize(t *testing.T) {
	assert.Equal(t, "ab\tc\nd", Sanitize("a\x00b\tc\n\u200bd\x7f"))
	assert.Equal(t, "héll", SanitizeLimit("h\x01éllo", 4))
	assert.Equal(t, "short", SanitizeLimit("short", 10))
	assert.Empty(t, SanitizeLimit("abc", 0))
}

func TestRID(t *testing.T) {
	rid := BuildRID(35, -100, 7)
	assert.Equal(t, "35:-100:7", rid)
	assert.Equal(t, "z.-2s.7", CompactRID(rid))
	assert.Equal(t, "not-a-rid", CompactRID(" not-a-rid "))
	assert.Equal(t, "1::2", CompactRID("1::2"))
}

func TestSummarizeStrings(t *testing.T) {
	s, cut := SummarizeStrings([]string{"a", "b", "c"}, 2)
	assert.Equal(t, "a, b", s)
	assert.True(t, cut)

	s, cut = SummarizeStrings([]string{"a"}, 2)
	assert.Equal(t, "a", s)
	assert.False(t, cut)
}

func TestDurationKey(t *testing.T) {
	assert.Equal(t, "duration_ms", durationKey("duration"))
	assert.Equal(t, "wait_duration_ms", durationKey("wait_duration"))
	assert.Equal(t, "backoff_ms", durationKey("backoff_ms"))
	assert.Equal(t, time.Duration(0), RoundMS(-time.Second))
}

func TestSampler(t *testing.T) {
	s := newSampler(2, 5)
	var passed int
	for range 10 {
		if s.Allow() {
			passed++
		}
	}
	assert.Equal(t, 4, passed)

	s.Set(0, 0)
	assert.True(t, s.Allow())

	s.Set(9, 3)
	assert.True(t, s.Allow())
}

func TestParseRatio(t *testing.T) {
	cases := map[string][2]int{
		"1/10":   {1, 10},
		" 3 / 4": {3, 4},
		"20":     {1, 20},
		"0":      {0, 0},
		"x/y":    {0, 0},
		"":       {0, 0},
	}
	for in, want := range cases {
		num, den := parseRatio(in)
		assert.Equal(t, want, [2]int{num, den}, in)
	}
}

func TestResolveSettings(t *testing.T) {
	s := resolve(nil)
	assert.Equal(t, formatJSON, s.format)
	assert.Equal(t, slog.LevelInfo, s.level)
	assert.Equal(t, defaultKeyOrder, s.order)

	cfg := &coreconfig.Config{Logging: coreconfig.LoggingConfig{
		Level:       "warning",
		Profile:     "Dev",
		KeysOrder:   "event, ,level",
		DebugSample: "0",
		Dir:         "logs",
		BotFile:     "bot.log",
		ErrorsFile:  "errors.log",
	}}
	s = resolve(cfg)
	assert.Equal(t, formatKV, s.format)
	assert.Equal(t, slog.LevelWarn, s.level)
	assert.Equal(t, []string{"event", "level"}, s.order)
	assert.Equal(t, "dev", s.profile)
	assert.Zero(t, s.sampleDen)
	assert.Equal(t, filepath.Join("logs", "bot.log"), s.botFile)
	assert.Equal(t, filepath.Join("logs", "errors.log"), s.errorsFile)
}

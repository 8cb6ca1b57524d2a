package logger

import "strings"

// Level names as they appear in the level field.
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
	LevelFatal = "FATAL"
)

var levelNames = map[string]string{
	"debug":   LevelDebug,
	"info":    LevelInfo,
	"warn":    LevelWarn,
	"warning": LevelWarn,
	"error":   LevelError,
	"fatal":   LevelFatal,
}

func normalizeLevel(level string) string {
	if level == "" {
		return LevelInfo
	}
	if mapped, ok := levelNames[strings.ToLower(level)]; ok {
		return mapped
	}
	return strings.ToUpper(level)
}

// enumField restricts a string field to a closed vocabulary. Unknown values
// are lower-cased and kept, or removed when strict is set.
type enumField struct {
	key    string
	values []string
	strict bool
}

var enumFields = []enumField{
	{key: "status", values: []string{"ok", "fail", "skip", "retry", "rate_limited", "cancelled"}},
	{key: "outcome", values: []string{"ok", "fail", "cancelled", "rate_limited", "rejected"}, strict: true},
}

func (e enumField) apply(fields map[string]any) {
	raw, ok := fields[e.key].(string)
	if !ok {
		return
	}
	v := strings.ToLower(strings.TrimSpace(raw))
	for _, allowed := range e.values {
		if v == allowed {
			fields[e.key] = v
			return
		}
	}
	if e.strict || v == "" {
		delete(fields, e.key)
		return
	}
	fields[e.key] = v
}

var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"ts_unix_nano",
	"update_id",
	"user_id",
	"chat_id",
	"chat_type",
	"handler",
	"operation",
	"cb_key",
	"outcome",
	"reason",
	"duration_ms",
	"messages",
	"count",
	"payload",
	"username",
	"mode",
	"listen",
	"public_url",
	"http_code",
	"db",
	"host",
	"port",
	"driver",
	"key_days",
	"expiry",
	"target_id",
	"banned",
	"open",
	"step",
	"numbers",
	"parts",
	"contacts",
	"recipients",
	"delivered",
	"failed",
	"err",
	"err_code",
	"cause",
	"retryable",
	"attempts",
	"backoff_ms",
	"rate_limited",
	"pending_count",
}

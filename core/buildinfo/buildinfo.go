// Package buildinfo carries the version stamped in at link time:
//
//	go build -ldflags "-X github.com/m3rciful/vcfbot/core/buildinfo.Version=v1.2.3 \
//	  -X github.com/m3rciful/vcfbot/core/buildinfo.Commit=abcdef0 \
//	  -X github.com/m3rciful/vcfbot/core/buildinfo.Date=2025-08-30T12:00:00Z"
package buildinfo

import (
	"log/slog"
	"runtime"
)

var (
	Version = "dev"
	Commit  = "local"
	Date    = ""
)

// Attrs describes the running binary for the startup log record.
func Attrs() []slog.Attr {
	return []slog.Attr{
		slog.String("go_version", runtime.Version()),
		slog.String("build_version", Version),
		slog.String("build_commit", Commit),
		slog.String("build_time", Date),
	}
}

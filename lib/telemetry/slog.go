package telemetry

import (
	"log/slog"
	"os"

	"ecourts-backend/lib/timezone"
)

// InitSlog installs the default slog handler, timestamps are always
// rendered in IST regardless of the host's timezone.
func InitSlog(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.String(slog.TimeKey, timezone.Format(a.Value.Time()))
			}
			return a
		},
	})
	slog.SetDefault(slog.New(handler))
}

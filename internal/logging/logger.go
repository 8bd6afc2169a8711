// Package logging sets up the text logger shared by the recreate commands and
// the replay engine. Managers take a *slog.Logger and fall back to a silent
// one, so library callers never have to configure output.
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// LevelTrace is for output emitted once per replayed tick, too noisy even
// for debug runs.
const LevelTrace = slog.LevelDebug - 4

var namedLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"trace": LevelTrace,
}

// ParseLevel reads the logging.level setting. Anything it does not know,
// including an empty value, means info.
func ParseLevel(s string) slog.Level {
	if lvl, ok := namedLevels[strings.ToLower(s)]; ok {
		return lvl
	}
	return slog.LevelInfo
}

// NewLogger returns a logfmt logger on w that drops records below level.
func NewLogger(level string, w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       ParseLevel(level),
		ReplaceAttr: nameTrace,
	}))
}

// slog prints LevelTrace as DEBUG-4.
func nameTrace(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
		a.Value = slog.StringValue("TRACE")
	}
	return a
}

// Discard returns a logger with no output.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// OrDiscard lets a nil logger stand for "quiet".
func OrDiscard(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return Discard()
}

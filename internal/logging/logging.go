// Package logging builds the slog logger used across warcore and the
// adapters that feed other log sinks from it.
package logging

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

// LogFilePath builds the path of the log file of one process run.
func LogFilePath(logsDir, name string, started time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", name, started.Format("20060102_150405")),
	)
}

// ParseLevel converts a config level name to slog.Level. Unknown names
// fall back to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/verdantio/grow-core/internal/infrastructure/config"
)

// Logger is the structured logger handed to every grow-core component.
// It embeds *slog.Logger, so the slog call surface (Info, Debug, ...) is
// available directly; the wrapper only fixes the default attributes and
// output wiring. Safe for concurrent use.
type Logger struct {
	*slog.Logger
}

// New builds a Logger from loaded configuration.
//
// Format chooses the handler (json unless "text"), Output the stream
// (stdout unless "stderr"), and Level the filter (info when the value is
// unrecognised). Every record carries service and version attributes so
// aggregated logs can tell grow-core processes apart.
//
// Parameters:
//   - cfg: The logging section of the loaded configuration
//   - version: Build version stamped onto every record
//
// Returns:
//   - *Logger: Ready for injection into components
func New(cfg config.LoggingConfig, version string) *Logger {
	var out io.Writer = os.Stdout
	if strings.EqualFold(cfg.Output, "stderr") {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", "growcore"),
		slog.String("version", version),
	})

	return &Logger{Logger: slog.New(handler)}
}

// parseLevel maps a config string onto slog's levels. "warning" is
// accepted as an alias for "warn"; anything unrecognised becomes info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a child Logger carrying additional default attributes,
// typically one per component:
//
//	bridgeLog := log.With("component", "ecowitt")
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Discard returns a logger that drops everything. Used by tests and by
// embedders that wire components without caring about their output.
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// Default returns the bootstrap logger used before configuration loads:
// json to stdout at info level, version "dev".
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, "dev")
}

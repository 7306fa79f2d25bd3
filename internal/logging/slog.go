package logging

import (
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Sinks selects where log records go. Nil writers are skipped.
type Sinks struct {
	Console io.Writer
	File    io.Writer
	Graylog io.Writer
}

// SlogManager manages slog-based logging and the zerolog logger handed to
// the storage and metrics managers.
type SlogManager struct {
	logger *slog.Logger
	zlog   zerolog.Logger
	level  slog.Level
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{zlog: zerolog.Nop()}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func zerologLevel(l slog.Level) zerolog.Level {
	switch {
	case l <= slog.LevelDebug:
		return zerolog.DebugLevel
	case l <= slog.LevelInfo:
		return zerolog.InfoLevel
	case l <= slog.LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

// Setup initializes the logging system. Console and file get text records,
// Graylog gets JSON. provider, if non-nil, adds attributes to every record.
func (m *SlogManager) Setup(sinks Sinks, level string, provider ContextProvider) {
	m.level = parseLevel(level)

	// Common handler options with RFC3339 time formatting
	handlerOpts := &slog.HandlerOptions{
		Level: m.level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	var handlers []slog.Handler
	var writers []io.Writer
	if sinks.Console != nil {
		handlers = append(handlers, slog.NewTextHandler(sinks.Console, handlerOpts))
		writers = append(writers, zerolog.ConsoleWriter{Out: sinks.Console, NoColor: true, TimeFormat: time.RFC3339})
	}
	if sinks.File != nil {
		handlers = append(handlers, slog.NewTextHandler(sinks.File, handlerOpts))
		writers = append(writers, sinks.File)
	}
	if sinks.Graylog != nil {
		handlers = append(handlers, slog.NewJSONHandler(sinks.Graylog, handlerOpts))
	}

	var handler slog.Handler = NewMultiHandler(handlers...)
	if provider != nil {
		handler = NewContextHandler(handler, provider)
	}
	m.logger = slog.New(handler)

	if len(writers) == 0 {
		m.zlog = zerolog.Nop()
	} else {
		m.zlog = zerolog.New(zerolog.MultiLevelWriter(writers...)).
			Level(zerologLevel(m.level)).
			With().Timestamp().Logger()
	}

	m.logger.Debug("Logging initialized", "level", level)
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		// Return a default logger if Setup hasn't been called
		return slog.Default()
	}
	return m.logger
}

// Zerolog returns a zerolog logger writing to the same console and file
// sinks, tagged with component.
func (m *SlogManager) Zerolog(component string) zerolog.Logger {
	return m.zlog.With().Str("component", component).Logger()
}

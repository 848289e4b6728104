// internal/logger/logger.go
// Package logger wraps zerolog with per-component loggers and optional
// lumberjack file rotation.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig holds configuration for the logger
type LogConfig struct {
	Level      string `json:"level"` // debug, info, warn, error, fatal
	LogToFile  bool   `json:"log_to_file"`
	LogToJSON  bool   `json:"log_to_json"`
	FilePath   string `json:"file_path"`
	MaxSize    int    `json:"max_size"`    // megabytes
	MaxBackups int    `json:"max_backups"` // number of backups
	MaxAge     int    `json:"max_age"`     // days
	Compress   bool   `json:"compress"`    // compress old log files
}

// DefaultLogConfig returns the console-only configuration used when no
// config file overrides it.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:      "info",
		LogToFile:  false,
		LogToJSON:  false,
		FilePath:   "devserver.log",
		MaxSize:    10, // 10 MB
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	}
}

// InitLogger initializes the global zerolog logger with the given configuration
func InitLogger(config LogConfig) {
	log.Logger = zerolog.New(Output(config, os.Stdout)).With().Timestamp().Logger()
}

// Output builds the writer chain for config, with console or JSON output
// going to out.
func Output(config LogConfig, out io.Writer) io.Writer {
	zerolog.TimeFieldFormat = time.RFC3339
	level, err := zerolog.ParseLevel(config.Level)
	if err != nil || config.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var writers []io.Writer
	if !config.LogToJSON {
		writers = append(writers, consoleWriter(out))
	} else {
		writers = append(writers, out)
	}
	if config.LogToFile && config.FilePath != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   config.FilePath,
			MaxSize:    config.MaxSize,
			MaxBackups: config.MaxBackups,
			MaxAge:     config.MaxAge,
			Compress:   config.Compress,
		})
	}
	if len(writers) > 1 {
		return io.MultiWriter(writers...)
	}
	return writers[0]
}

func consoleWriter(out io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "15:04:05",
		NoColor:    false,
		PartsOrder: []string{
			zerolog.TimestampFieldName,
			zerolog.LevelFieldName,
			"component",
			zerolog.MessageFieldName,
		},
		FieldsExclude: []string{"component"},
		FormatLevel: func(i interface{}) string {
			level := strings.ToUpper(fmt.Sprintf("%s", i))
			switch level {
			case "DEBUG":
				return "\033[36m[ " + fmt.Sprintf("%-5s", level) + " ]\033[0m"
			case "INFO":
				return "\033[32m[ " + fmt.Sprintf("%-5s", level) + " ]\033[0m"
			case "WARN":
				return "\033[33m[ " + fmt.Sprintf("%-5s", level) + " ]\033[0m"
			case "ERROR":
				return "\033[31m[ " + fmt.Sprintf("%-5s", level) + " ]\033[0m"
			case "FATAL":
				return "\033[35m[ " + fmt.Sprintf("%-5s", level) + " ]\033[0m"
			default:
				return "\033[37m[ " + fmt.Sprintf("%-5s", level) + " ]\033[0m"
			}
		},
		FormatTimestamp: func(i interface{}) string {
			return fmt.Sprintf("\033[90m%s\033[0m", i)
		},
		FormatMessage: func(i interface{}) string {
			return fmt.Sprintf("\033[1m%s\033[0m", i)
		},
		FormatFieldName: func(i interface{}) string {
			return fmt.Sprintf("\033[34m%s\033[0m: ", i)
		},
		FormatFieldValue: func(i interface{}) string {
			return fmt.Sprintf("\033[37m%s\033[0m", i)
		},
		FormatErrFieldName: func(i interface{}) string {
			return fmt.Sprintf("\033[31m%s\033[0m: ", i)
		},
		FormatErrFieldValue: func(i interface{}) string {
			return fmt.Sprintf("\033[31m%s\033[0m", i)
		},
	}
}

// Logger is a wrapper around zerolog.Logger that provides additional context
type Logger struct {
	logger zerolog.Logger
}

// NewLogger creates a new logger with the given component name
func NewLogger(component string) *Logger {
	return &Logger{
		logger: log.With().Str("component", component).Logger(),
	}
}

// New creates a component logger writing to w regardless of the global logger.
func New(component string, w io.Writer) *Logger {
	return &Logger{
		logger: zerolog.New(w).With().Timestamp().Str("component", component).Logger(),
	}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{logger: zerolog.Nop()}
}

// WithField adds a field to the logger
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{
		logger: l.logger.With().Interface(key, value).Logger(),
	}
}

// WithFields adds multiple fields to the logger
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	ctx := l.logger.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &Logger{
		logger: ctx.Logger(),
	}
}

func (l *Logger) Debug(msg string)                       { l.logger.Debug().Msg(msg) }
func (l *Logger) Debugf(format string, v ...interface{}) { l.logger.Debug().Msgf(format, v...) }
func (l *Logger) Info(msg string)                        { l.logger.Info().Msg(msg) }
func (l *Logger) Infof(format string, v ...interface{})  { l.logger.Info().Msgf(format, v...) }
func (l *Logger) Warn(msg string)                        { l.logger.Warn().Msg(msg) }
func (l *Logger) Warnf(format string, v ...interface{})  { l.logger.Warn().Msgf(format, v...) }
func (l *Logger) Error(msg string)                       { l.logger.Error().Msg(msg) }
func (l *Logger) Errorf(format string, v ...interface{}) { l.logger.Error().Msgf(format, v...) }
func (l *Logger) Fatal(msg string)                       { l.logger.Fatal().Msg(msg) }
func (l *Logger) Fatalf(format string, v ...interface{}) { l.logger.Fatal().Msgf(format, v...) }

// LogEvent logs a live-reload event. subject is the client transport or the
// file involved; detail carries the event specific value.
func (l *Logger) LogEvent(level string, event string, subject string, detail string) {
	var message string
	switch event {
	case "client_connected":
		message = fmt.Sprintf("Client connected for live reload. Total clients: %s", detail)
		if subject != "" {
			message = fmt.Sprintf("\033[96m%s\033[0m client connected for live reload. Total clients: %s", subject, detail)
		}
	case "client_disconnected":
		message = fmt.Sprintf("Client disconnected from live reload. Total clients: %s", detail)
		if subject != "" {
			message = fmt.Sprintf("\033[96m%s\033[0m client disconnected from live reload. Total clients: %s", subject, detail)
		}
	case "file_changed":
		message = fmt.Sprintf("\033[93m%s\033[0m changed. Sending reload event to %s client(s).", subject, detail)
	case "push_failed":
		message = "Failed to send reload event to a client, removing."
	case "file_not_found":
		evt := l.logger.With().Str("event", event).Str("file", subject)
		if detail != "" {
			evt = evt.Str("path", detail)
		}
		message = fmt.Sprintf("File not found: %s (requested path: %s)", subject, detail)
		logger := evt.Logger()
		logAt(&logger, level, message)
		return
	default:
		evt := l.logger.With().Str("event", event)
		if subject != "" {
			evt = evt.Str("subject", subject)
		}
		if detail != "" {
			evt = evt.Str("detail", detail)
			message = fmt.Sprintf("%s: %s", strings.ReplaceAll(event, "_", " "), detail)
		} else {
			message = strings.ReplaceAll(event, "_", " ")
		}
		logger := evt.Logger()
		logAt(&logger, level, message)
		return
	}
	logAt(&l.logger, level, message)
}

func logAt(logger *zerolog.Logger, level string, message string) {
	switch level {
	case "debug":
		logger.Debug().Msg(message)
	case "info":
		logger.Info().Msg(message)
	case "warn":
		logger.Warn().Msg(message)
	case "error":
		logger.Error().Msg(message)
	case "fatal":
		logger.Fatal().Msg(message)
	default:
		logger.Info().Msg(message)
	}
}

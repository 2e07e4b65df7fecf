// Package logging wraps zerolog with the call-site shape the rest of this
// codebase uses: Info/Warn/Error/Debug taking a message and an optional
// fields map, backed by a package-level default logger set up from config.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"creditmeter/internal/pkg/config"
)

type Logger struct {
	zl zerolog.Logger
}

var defaultLogger *Logger

// Init builds the default logger from config. Must be called once at
// startup before any package-level Info/Warn/Error/Debug call.
func Init(cfg *config.Config) {
	var output io.Writer = os.Stdout
	if strings.EqualFold(cfg.Logging.Format, "console") {
		output = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	zl := zerolog.New(output).With().
		Timestamp().
		Str("service", "creditmeter").
		Logger().
		Level(parseLevel(cfg.Logging.Level))

	defaultLogger = &Logger{zl: zl}
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func fallback() *Logger {
	if defaultLogger == nil {
		zl := zerolog.New(os.Stdout).With().Timestamp().Str("service", "creditmeter").Logger()
		defaultLogger = &Logger{zl: zl}
	}
	return defaultLogger
}

func withFields(e *zerolog.Event, fields map[string]interface{}) *zerolog.Event {
	for k, v := range fields {
		e = e.Interface(k, v)
	}
	return e
}

func Debug(message string, fields ...map[string]interface{}) {
	e := fallback().zl.Debug()
	if len(fields) > 0 {
		e = withFields(e, fields[0])
	}
	e.Msg(message)
}

func Info(message string, fields ...map[string]interface{}) {
	e := fallback().zl.Info()
	if len(fields) > 0 {
		e = withFields(e, fields[0])
	}
	e.Msg(message)
}

func Warn(message string, fields ...map[string]interface{}) {
	e := fallback().zl.Warn()
	if len(fields) > 0 {
		e = withFields(e, fields[0])
	}
	e.Msg(message)
}

func Error(message string, err error, fields map[string]interface{}) {
	e := fallback().zl.Error()
	if err != nil {
		e = e.Err(err)
	}
	if fields != nil {
		e = withFields(e, fields)
	}
	e.Msg(message)
}

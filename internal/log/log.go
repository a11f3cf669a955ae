// Package log builds the zap loggers used by the command line tools.
package log

import (
	"encoding"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ErrUnknownLevel is returned by Set for names it does not know.
var ErrUnknownLevel = errors.New("unknown log level (known: debug, info, warn, error)")

// Level is a verbosity that cobra flags and viper config can both set.
type Level int

var (
	_ pflag.Value              = (*Level)(nil)
	_ encoding.TextUnmarshaler = (*Level)(nil)
)

// Levels, from most to least verbose.
const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "debug"
	case INFO:
		return "info"
	case WARN:
		return "warn"
	case ERROR:
		return "error"
	default:
		return "unknown"
	}
}

// Set parses a level name, ignoring case.
func (l *Level) Set(s string) error {
	switch strings.ToLower(s) {
	case "debug":
		*l = DEBUG
	case "info":
		*l = INFO
	case "warn":
		*l = WARN
	case "error":
		*l = ERROR
	default:
		return ErrUnknownLevel
	}
	return nil
}

// Type names the flag type in cobra usage output.
func (l *Level) Type() string {
	return "Level"
}

// UnmarshalText lets viper decode a level from config.
func (l *Level) UnmarshalText(text []byte) error {
	return l.Set(string(text))
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case DEBUG:
		return zapcore.DebugLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// New returns a console logger writing to stderr at the given level.
// Level names are coloured when stderr is a terminal.
func New(level Level) (*zap.SugaredLogger, error) {
	config := zap.NewProductionConfig()
	config.Encoding = "console"
	config.Sampling = nil
	config.DisableStacktrace = true
	config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	if isatty.IsTerminal(os.Stderr.Fd()) {
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	config.EncoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.Local().Format("15:04:05.000"))
	}
	config.Level.SetLevel(level.zapLevel())

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

// Nop returns a logger that discards everything.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

package logger

import (
	"fmt"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultLevel keeps the full trace; the log is for post-mortems.
const DefaultLevel = "debug"

// NewLogger creates a zap logger that writes console-encoded, ISO8601-timestamped
// entries to w. Every entry goes straight to w; nothing is buffered.
// level (if non-empty) sets the minimum level: debug, info, warn, error.
func NewLogger(w io.Writer, level string) (*zap.Logger, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}
	return zap.New(newCore(zapcore.Lock(zapcore.AddSync(w)), lvl)), nil
}

func parseLevel(level string) (zapcore.Level, error) {
	lvl := zapcore.DebugLevel
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return lvl, fmt.Errorf("invalid log level %q: %w", level, err)
		}
	}
	return lvl, nil
}

func newCore(ws zapcore.WriteSyncer, lvl zapcore.LevelEnabler) zapcore.Core {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encCfg.EncodeCaller = nil
	encCfg.CallerKey = ""

	return zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), ws, lvl)
}

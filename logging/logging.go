// Package logging builds the logr.Logger used throughout onesocket.
package logging

import (
	"io"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a console logger writing to w. level is the highest logr
// verbosity that is emitted: 0 logs lifecycle events only, 1 adds
// per-connection events and 2 traces every message.
func New(level int, w io.Writer) logr.Logger {
	if level < 0 {
		level = 0
	}
	zc := zap.NewDevelopmentEncoderConfig()
	zc.EncodeLevel = zapcore.CapitalLevelEncoder
	zc.EncodeTime = zapcore.TimeEncoderOfLayout("02/01 15:04:05")

	// zapr maps V(n) to zap level -n.
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(zc), zapcore.AddSync(w), zap.NewAtomicLevelAt(zapcore.Level(-level)))
	return zapr.NewLogger(zap.New(core))
}

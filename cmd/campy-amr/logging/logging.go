// Package logging provides a shared logger and log utilities to be used by
// all subcommands.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

var (
	L *zap.Logger        = zap.NewNop()
	S *zap.SugaredLogger = L.Sugar()
)

// Initialize builds the logger for the given verbosity and replaces L and S.
// 0 logs at info level, each increment lowers the level by one and negative
// values raise it.
func Initialize(v int) (*zap.Logger, error) {
	atom := zap.NewAtomicLevelAt(zapcore.Level(-v))

	var (
		encoder zapcore.Encoder
		writer  zapcore.WriteSyncer
	)

	writer = zapcore.Lock(os.Stderr)

	if term.IsTerminal(int(os.Stderr.Fd())) {
		encoder = zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
			MessageKey: "message",

			LevelKey:    "level",
			EncodeLevel: zapcore.CapitalColorLevelEncoder,

			TimeKey:    "time",
			EncodeTime: zapcore.ISO8601TimeEncoder,

			EncodeDuration: zapcore.StringDurationEncoder,
		})
	} else {
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}

	core := zapcore.NewCore(encoder, writer, atom)

	return zap.New(core), nil
}

// Use replaces the shared loggers.
func Use(l *zap.Logger) {
	L = l
	S = l.Sugar()
}

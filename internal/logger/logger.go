package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ServiceName is attached to every entry written by the global logger.
const ServiceName = "wallet-ledger"

// Log is the global SugaredLogger instance.
// Initialized with a no-op logger until Initialize is called.
var Log *zap.SugaredLogger = zap.NewNop().Sugar()

// Initialize sets up the global logger with the given log level, writing JSON to stderr.
func Initialize(level string) error {
	l, err := New(level, zapcore.Lock(os.Stderr))
	if err != nil {
		return err
	}

	Log = l.Sugar()
	return nil
}

// New builds a JSON logger writing to w. Entries carry ISO8601 timestamps and
// the service name; errors and above include a stack trace.
func New(level string, w zapcore.WriteSyncer) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	enc := zap.NewProductionEncoderConfig()
	enc.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), w, zap.NewAtomicLevelAt(lvl))
	return zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(zap.String("service", ServiceName)),
	), nil
}

// Package logging builds the structured logger used by the runner and connection plugins.
package logging

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/damianoneill/netconf-tasks/config"
)

// New builds a logger from the supplied logging configuration.
// The returned function flushes and releases any resources held by the logger; it should be
// called once the logger is no longer required.
func New(cfg config.Logging) (*zap.Logger, func(), error) {
	if cfg.Disabled {
		return zap.NewNop(), func() {}, nil
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, errors.Wrap(err, "invalid log level")
	}

	var encoder zapcore.Encoder
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	switch cfg.Format {
	case "", "json":
		encoder = zapcore.NewJSONEncoder(encCfg)
	case "console":
		encoder = zapcore.NewConsoleEncoder(encCfg)
	default:
		return nil, nil, errors.Errorf("unsupported log format %q", cfg.Format)
	}

	var (
		sinks   []zapcore.WriteSyncer
		closers []func()
	)
	if cfg.LogFile != "" {
		if err = os.MkdirAll(filepath.Dir(cfg.LogFile), 0o750); err != nil {
			return nil, nil, errors.Wrap(err, "failed to create log directory")
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600) // #nosec G304
		if err != nil {
			return nil, nil, errors.Wrap(err, "failed to open log file")
		}
		sinks = append(sinks, zapcore.AddSync(f))
		closers = append(closers, func() { _ = f.Close() })
	}
	if cfg.ToConsole || cfg.LogFile == "" {
		sinks = append(sinks, zapcore.Lock(os.Stderr))
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(sinks...), zap.NewAtomicLevelAt(level))
	logger := zap.New(core, zap.AddCaller())

	cleanup := func() {
		_ = logger.Sync()
		for _, c := range closers {
			c()
		}
	}
	return logger, cleanup, nil
}

// Package logging adapts zap to the ectologger.Logger interface used across
// the service. Only the methods this repository calls are implemented; the
// embedded interface covers the remainder of the contract.
package logging

import (
	"context"

	"github.com/Gobusters/ectologger"
	"go.uber.org/zap"

	stemctx "github.com/Ramsey-B/stem/pkg/context"
	"github.com/Ramsey-B/stem/pkg/tracing"
)

// New builds a zap-backed logger. Pretty output uses zap's development
// encoder; otherwise JSON production encoding.
func New(level string, pretty bool) (ectologger.Logger, error) {
	var cfg zap.Config
	if pretty {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	if lvl, err := zap.ParseAtomicLevel(level); err == nil {
		cfg.Level = lvl
	}

	z, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return &zapLogger{z: z}, nil
}

// Nop returns a logger that discards everything. Intended for tests.
func Nop() ectologger.Logger {
	return &zapLogger{z: zap.NewNop()}
}

type zapLogger struct {
	ectologger.Logger
	z *zap.Logger
}

func (l *zapLogger) with(fields ...zap.Field) *zapLogger {
	return &zapLogger{z: l.z.With(fields...)}
}

func (l *zapLogger) WithContext(ctx context.Context) ectologger.Logger {
	fields := make([]zap.Field, 0, 3)
	if id := tracing.GetTraceID(ctx); id != "" {
		fields = append(fields, zap.String("trace_id", id))
	}
	if id := tracing.GetSpanID(ctx); id != "" {
		fields = append(fields, zap.String("span_id", id))
	}
	if id := stemctx.GetRequestID(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	return l.with(fields...)
}

func (l *zapLogger) WithField(key string, value any) ectologger.Logger {
	return l.with(zap.Any(key, value))
}

func (l *zapLogger) WithFields(fields map[string]any) ectologger.Logger {
	zf := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zf = append(zf, zap.Any(k, v))
	}
	return l.with(zf...)
}

func (l *zapLogger) WithError(err error) ectologger.Logger {
	return l.with(zap.Error(err))
}

func (l *zapLogger) Debug(msg string) { l.z.Debug(msg) }
func (l *zapLogger) Info(msg string)  { l.z.Info(msg) }
func (l *zapLogger) Warn(msg string)  { l.z.Warn(msg) }
func (l *zapLogger) Error(msg string) { l.z.Error(msg) }

func (l *zapLogger) Debugf(format string, args ...any) { l.z.Sugar().Debugf(format, args...) }
func (l *zapLogger) Infof(format string, args ...any)  { l.z.Sugar().Infof(format, args...) }
func (l *zapLogger) Warnf(format string, args ...any)  { l.z.Sugar().Warnf(format, args...) }
func (l *zapLogger) Errorf(format string, args ...any) { l.z.Sugar().Errorf(format, args...) }

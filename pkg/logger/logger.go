package logger

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger so services depend on a single concrete type.
type Logger struct {
	*zap.Logger
}

// ZapField lets callers pass fields around without importing zap.
type ZapField = zap.Field

type correlationKey struct{}

// New builds a logger for the given level ("debug", "info", ...) and encoding ("json" or "console").
func New(level, encoding string) (*Logger, error) {
	lvl := zapcore.InfoLevel
	if level != "" {
		if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
			return nil, err
		}
	}

	if encoding == "" {
		encoding = "json"
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = encoding
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if encoding == "console" {
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zl, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{Logger: zl}, nil
}

// Wrap adapts an existing zap logger, mostly for tests (zaptest.NewLogger).
func Wrap(zl *zap.Logger) *Logger {
	return &Logger{Logger: zl}
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// Named returns a child logger scoped to a component.
func (l *Logger) Named(name string) *Logger {
	return &Logger{Logger: l.Logger.Named(name)}
}

// With returns a child logger carrying the given fields.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{Logger: l.Logger.With(fields...)}
}

// WithCorrelationID stores an id in ctx that the *Context helpers attach to every entry.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

func contextFields(ctx context.Context, fields []zap.Field) []zap.Field {
	if ctx == nil {
		return fields
	}
	if id, ok := ctx.Value(correlationKey{}).(string); ok && id != "" {
		return append(fields, zap.String("cycle_id", id))
	}
	return fields
}

func (l *Logger) DebugContext(ctx context.Context, msg string, fields ...zap.Field) {
	l.Logger.Debug(msg, contextFields(ctx, fields)...)
}

func (l *Logger) InfoContext(ctx context.Context, msg string, fields ...zap.Field) {
	l.Logger.Info(msg, contextFields(ctx, fields)...)
}

func (l *Logger) WarnContext(ctx context.Context, msg string, fields ...zap.Field) {
	l.Logger.Warn(msg, contextFields(ctx, fields)...)
}

func (l *Logger) ErrorContext(ctx context.Context, msg string, fields ...zap.Field) {
	l.Logger.Error(msg, contextFields(ctx, fields)...)
}

// Field is a shorthand for zap.Any.
func Field(key string, value interface{}) zap.Field {
	return zap.Any(key, value)
}

// ErrorField attaches an error under the "error" key.
func ErrorField(err error) zap.Field {
	return zap.Error(err)
}

// IntField is a shorthand for zap.Int.
func IntField(key string, value int) zap.Field {
	return zap.Int(key, value)
}

// StringField is a shorthand for zap.String.
func StringField(key string, value string) zap.Field {
	return zap.String(key, value)
}

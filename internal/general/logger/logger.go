package logger

import (
	"context"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger writes single-line structured entries tagged with service, action and request context.
type Logger struct {
	z *zap.Logger
}

// New creates a structured logger for the given service.
// level: debug | info | warn | error (default info); format: json | console (default json).
func New(service, level, format string) (*Logger, error) {
	var lvl zapcore.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = zapcore.DebugLevel
	case "warn":
		lvl = zapcore.WarnLevel
	case "error":
		lvl = zapcore.ErrorLevel
	default:
		lvl = zapcore.InfoLevel
	}

	var cfg zap.Config
	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.MessageKey = "message"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.OutputPaths = []string{"stdout"}
		cfg.ErrorOutputPaths = []string{"stderr"}
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	base, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(service) == "" {
		service = "unknown-service"
	}
	hn, err := os.Hostname()
	if err != nil || strings.TrimSpace(hn) == "" {
		hn = "unknown-hostname"
	}

	return &Logger{z: base.With(zap.String("service", service), zap.String("hostname", hn))}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{z: zap.NewNop()}
}

// Sync flushes buffered entries.
func (l *Logger) Sync() {
	_ = l.z.Sync()
}

// Debug writes a DEBUG line with optional details.
func (l *Logger) Debug(ctx context.Context, action, msg string, details any) {
	l.z.Debug(strings.TrimSpace(msg), l.fields(ctx, action, details)...)
}

// Info writes an INFO line with optional details.
func (l *Logger) Info(ctx context.Context, action, msg string, details any) {
	l.z.Info(strings.TrimSpace(msg), l.fields(ctx, action, details)...)
}

// Error writes an ERROR line with the error message and a stack trace.
func (l *Logger) Error(ctx context.Context, action, msg string, err error, details any) {
	fields := l.fields(ctx, action, details)
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	l.z.Error(strings.TrimSpace(msg), fields...)
}

func (l *Logger) fields(ctx context.Context, action string, details any) []zap.Field {
	fields := make([]zap.Field, 0, 4)
	fields = append(fields, zap.String("action", safeAction(action)))
	if id := fromCtx(ctx, ctxKeyRequestID); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	if id := fromCtx(ctx, ctxKeySessionID); id != "" {
		fields = append(fields, zap.String("session_id", id))
	}
	if details != nil {
		fields = append(fields, zap.Any("details", details))
	}
	return fields
}

// ------------ Context helpers -------------

type ctxKey string

const (
	ctxKeyRequestID ctxKey = "civicaid_request_id"
	ctxKeySessionID ctxKey = "civicaid_session_id"
)

// WithRequestID returns a new context carrying request_id.
func (l *Logger) WithRequestID(ctx context.Context, reqID string) context.Context {
	if strings.TrimSpace(reqID) == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKeyRequestID, reqID)
}

// WithSessionID returns a new context carrying session_id.
func (l *Logger) WithSessionID(ctx context.Context, sessionID string) context.Context {
	if strings.TrimSpace(sessionID) == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKeySessionID, sessionID)
}

// RequestID extracts request_id from ctx (if any).
func RequestID(ctx context.Context) string {
	return fromCtx(ctx, ctxKeyRequestID)
}

func fromCtx(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	if s, ok := ctx.Value(key).(string); ok {
		return s
	}
	return ""
}

func safeAction(a string) string {
	a = strings.TrimSpace(a)
	if a == "" {
		return "unspecified"
	}
	return a
}

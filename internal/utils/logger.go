package utils

import (
	"context"
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"
)

// Logger is the unified logging interface used across handlers and services.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	DebugContext(ctx context.Context, msg string, args ...any)
	InfoContext(ctx context.Context, msg string, args ...any)
	WarnContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)

	With(args ...any) Logger

	LogRequest(method, path string, statusCode int, duration string, args ...any)
	LogError(err error, msg string, args ...any)
}

// SlogLogger implements Logger on top of slog.
type SlogLogger struct {
	logger *slog.Logger
}

func NewSlogLogger(logger *slog.Logger) Logger {
	return &SlogLogger{logger: logger}
}

// NewDefaultLogger returns a JSON logger at info level.
func NewDefaultLogger() Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	return NewSlogLogger(logger)
}

// NewDevelopmentLogger returns a text logger at debug level.
func NewDevelopmentLogger() Logger {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	return NewSlogLogger(logger)
}

func (l *SlogLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *SlogLogger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *SlogLogger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *SlogLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

func (l *SlogLogger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.logger.DebugContext(ctx, msg, args...)
}

func (l *SlogLogger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.logger.InfoContext(ctx, msg, args...)
}

func (l *SlogLogger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.logger.WarnContext(ctx, msg, args...)
}

func (l *SlogLogger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.logger.ErrorContext(ctx, msg, args...)
}

func (l *SlogLogger) With(args ...any) Logger {
	return &SlogLogger{logger: l.logger.With(args...)}
}

func (l *SlogLogger) LogRequest(method, path string, statusCode int, duration string, args ...any) {
	level := slog.LevelInfo
	if statusCode >= 400 {
		level = slog.LevelWarn
	}
	if statusCode >= 500 {
		level = slog.LevelError
	}

	baseArgs := []any{
		"method", method,
		"path", path,
		"status_code", statusCode,
		"duration", duration,
	}

	l.logger.Log(context.Background(), level, "HTTP Request", append(baseArgs, args...)...)
}

func (l *SlogLogger) LogError(err error, msg string, args ...any) {
	l.logger.Error(msg, append([]any{"error", err}, args...)...)
}

// GetSlogLogger returns the wrapped slog.Logger for code that needs it
// directly (the event publisher does).
func (l *SlogLogger) GetSlogLogger() *slog.Logger {
	return l.logger
}

// ToSlogLogger unwraps a Logger to its slog.Logger when possible.
func ToSlogLogger(logger Logger) *slog.Logger {
	if sl, ok := logger.(*SlogLogger); ok {
		return sl.GetSlogLogger()
	}
	return slog.Default()
}

// LoggerMiddleware replaces Gin's default request log with ours.
func LoggerMiddleware(logger Logger) func(*gin.Context) {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		logger.LogRequest(
			param.Method,
			param.Path,
			param.StatusCode,
			param.Latency.String(),
			"client_ip", param.ClientIP,
			"user_agent", param.Request.UserAgent(),
		)
		return ""
	})
}

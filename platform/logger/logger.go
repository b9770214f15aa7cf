// Package logger wraps log/slog with the request-scoped fields and the few
// event helpers the services share.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type scopeKey struct{}

// scope is what middleware learns about a request before handlers run.
type scope struct {
	requestID string
	userID    string
}

func scopeFrom(ctx context.Context) scope {
	s, _ := ctx.Value(scopeKey{}).(scope)
	return s
}

// Logger is a slog.Logger with helpers for recurring events.
type Logger struct {
	*slog.Logger
}

// New logs to stdout.
func New(env string) *Logger {
	return NewWithWriter(env, os.Stdout)
}

// NewWithWriter picks a debug text handler for development and an info JSON
// handler for everything else.
func NewWithWriter(env string, w io.Writer) *Logger {
	if strings.EqualFold(env, "development") {
		return &Logger{slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))}
	}
	return &Logger{slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))}
}

// Discard drops everything.
func Discard() *Logger {
	return &Logger{slog.New(slog.DiscardHandler)}
}

func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	s := scopeFrom(ctx)
	s.requestID = requestID
	return context.WithValue(ctx, scopeKey{}, s)
}

func ContextWithUserID(ctx context.Context, userID string) context.Context {
	s := scopeFrom(ctx)
	s.userID = userID
	return context.WithValue(ctx, scopeKey{}, s)
}

// WithContext adds request_id and user_id when ctx carries them.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}
	s := scopeFrom(ctx)
	var attrs []any
	if s.requestID != "" {
		attrs = append(attrs, slog.String("request_id", s.requestID))
	}
	if s.userID != "" {
		attrs = append(attrs, slog.String("user_id", s.userID))
	}
	if len(attrs) == 0 {
		return l
	}
	return &Logger{l.With(attrs...)}
}

func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	level := slog.LevelInfo
	if status >= 500 {
		level = slog.LevelError
	}
	l.Log(context.Background(), level, "http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// DocumentOp records a store write. Failures log at warn with the error.
func (l *Logger) DocumentOp(op, collection, id string, err error) {
	attrs := []any{
		slog.String("op", op),
		slog.String("collection", collection),
	}
	if id != "" {
		attrs = append(attrs, slog.String("id", id))
	}
	if err != nil {
		l.Warn("document_op", append(attrs, slog.String("error", err.Error()))...)
		return
	}
	l.Info("document_op", attrs...)
}

func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded", slog.String("client_ip", clientIP), slog.String("path", path))
}

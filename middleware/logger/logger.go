package logger

import (
	"log/slog"
	"time"

	"github.com/sweetpotato0/termchat/middleware"
	"github.com/sweetpotato0/termchat/pkg/logging"
)

// RequestLogger logs every agent invocation with its outcome and latency.
type RequestLogger struct {
	logger    *slog.Logger
	logInputs bool
}

// Option configures a RequestLogger.
type Option func(*RequestLogger)

// WithLogger overrides the destination logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *RequestLogger) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithInputs includes the raw user input and response text in log records.
func WithInputs(enabled bool) Option {
	return func(m *RequestLogger) {
		m.logInputs = enabled
	}
}

// NewRequestLogger creates a request logging middleware
func NewRequestLogger(opts ...Option) *RequestLogger {
	m := &RequestLogger{}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = logging.WithComponent("agent_requests")
	}
	return m
}

// Name returns the middleware name
func (m *RequestLogger) Name() string {
	return "RequestLogger"
}

// Execute logs the request before and after the rest of the chain runs
func (m *RequestLogger) Execute(ctx *middleware.Context, next middleware.Handler) error {
	attrs := []any{
		"agent", ctx.AgentID,
		"session_id", ctx.SessionID,
		"request_id", ctx.RequestID,
	}
	if m.logInputs {
		m.logger.Debug("agent request", append(attrs, "input", ctx.Input)...)
	} else {
		m.logger.Debug("agent request", append(attrs, "input_len", len(ctx.Input))...)
	}

	start := time.Now()
	err := next(ctx)
	attrs = append(attrs, "elapsed", time.Since(start))
	if err != nil {
		m.logger.Warn("agent request failed", append(attrs, "error", err)...)
		return err
	}
	if m.logInputs {
		attrs = append(attrs, "response", ctx.Response)
	} else {
		attrs = append(attrs, "response_len", len(ctx.Response))
	}
	m.logger.Info("agent request completed", attrs...)
	return nil
}

package logger

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/raaihank/jsonnymous/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with request and component helpers
type Logger struct {
	*zap.Logger
	level zap.AtomicLevel
}

// New creates a logger from the logging section of the configuration
func New(cfg config.LoggingConfig) (*Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to parse log level: %w", err)
	}

	var encoder zapcore.Encoder
	if cfg.Format == "console" {
		encoderConfig := zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoderConfig := zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	// Diagnostics go to stderr so CLI output on stdout stays clean
	cores := []zapcore.Core{zapcore.NewCore(encoder, zapcore.AddSync(os.Stderr), level)}

	if cfg.File.Enabled {
		file, err := os.OpenFile(cfg.File.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(file),
			level,
		))
	}

	log := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return &Logger{Logger: log, level: level}, nil
}

// NewNop returns a logger that discards everything
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop(), level: zap.NewAtomicLevel()}
}

// SetLevel changes the level of this logger and every logger derived from it
func (l *Logger) SetLevel(level string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return err
	}
	l.level.SetLevel(lvl)
	return nil
}

// WithRequestID adds a request ID to the logger context
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{Logger: l.Logger.With(zap.String("request_id", requestID)), level: l.level}
}

// WithComponent adds a component name to the logger context
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Logger: l.Logger.With(zap.String("component", component)), level: l.level}
}

// LogRequest logs an HTTP request. Bodies carry user documents and are
// never logged, only their size.
func (l *Logger) LogRequest(method, path string, headers map[string][]string, bodyBytes int64) {
	l.Info("HTTP request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Any("headers", redactHeaders(headers)),
		zap.Int64("body_bytes", bodyBytes),
	)
}

// LogResponse logs an HTTP response status and timing
func (l *Logger) LogResponse(statusCode int, bytesWritten int, duration time.Duration) {
	l.Info("HTTP response",
		zap.Int("status_code", statusCode),
		zap.Int("bytes", bytesWritten),
		zap.Duration("duration", duration),
	)
}

func redactHeaders(headers map[string][]string) map[string]string {
	safe := make(map[string]string, len(headers))
	for k, v := range headers {
		if isSensitiveHeader(k) {
			safe[k] = "[REDACTED]"
		} else if len(v) > 0 {
			safe[k] = v[0]
		}
	}
	return safe
}

// isSensitiveHeader checks if a header contains credentials
func isSensitiveHeader(header string) bool {
	headerLower := strings.ToLower(header)
	for _, sensitive := range []string{"authorization", "x-api-key", "cookie", "x-auth-token", "x-access-token", "bearer"} {
		if strings.Contains(headerLower, sensitive) {
			return true
		}
	}
	return false
}

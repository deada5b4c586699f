package logging

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger *zap.Logger
	once   sync.Once
)

type contextKey string

const (
	CorrelationIDKey  contextKey = "correlation_id"
	PairCodeKey       contextKey = "pair_code"
	OTPSessionIDKey   contextKey = "otp_session_id"
	RTCSessionIDKey   contextKey = "rtc_session_id"
	VoiceSessionIDKey contextKey = "voice_session_id"
)

// Initialize sets up the global logger based on the environment
func Initialize(development bool) error {
	var err error
	once.Do(func() {
		var config zap.Config
		if development {
			config = zap.NewDevelopmentConfig()
			config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		} else {
			config = zap.NewProductionConfig()
			config.EncoderConfig.TimeKey = "timestamp"
			config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		}

		// Common configuration
		config.OutputPaths = []string{"stdout"}
		config.ErrorOutputPaths = []string{"stderr"}

		logger, err = config.Build(zap.AddCallerSkip(1))
	})
	return err
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	if logger == nil {
		// Fallback specific for tests or before init
		l, _ := zap.NewDevelopment()
		return l
	}
	return logger
}

// Info logs a message at InfoLevel
func Info(ctx context.Context, msg string, fields ...zap.Field) {
	GetLogger().Info(msg, appendContextFields(ctx, fields)...)
}

// Warn logs a message at WarnLevel
func Warn(ctx context.Context, msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, appendContextFields(ctx, fields)...)
}

// Error logs a message at ErrorLevel
func Error(ctx context.Context, msg string, fields ...zap.Field) {
	GetLogger().Error(msg, appendContextFields(ctx, fields)...)
}

// Fatal logs a message at FatalLevel
func Fatal(ctx context.Context, msg string, fields ...zap.Field) {
	GetLogger().Fatal(msg, appendContextFields(ctx, fields)...)
}

// appendContextFields adds context fields to the logger
func appendContextFields(ctx context.Context, fields []zap.Field) []zap.Field {
	if ctx == nil {
		return fields
	}

	if cid, ok := ctx.Value(CorrelationIDKey).(string); ok {
		fields = append(fields, zap.String("correlation_id", cid))
	}
	if pc, ok := ctx.Value(PairCodeKey).(string); ok {
		fields = append(fields, zap.String("pair_code", pc))
	}
	if sid, ok := ctx.Value(OTPSessionIDKey).(string); ok {
		fields = append(fields, zap.String("otp_session_id", sid))
	}
	if sid, ok := ctx.Value(RTCSessionIDKey).(string); ok {
		fields = append(fields, zap.String("rtc_session_id", sid))
	}
	if sid, ok := ctx.Value(VoiceSessionIDKey).(string); ok {
		fields = append(fields, zap.String("voice_session_id", sid))
	}

	// Default service name
	fields = append(fields, zap.String("service", "pairrelay"))

	return fields
}

// WithPairCode returns a context carrying code for later log calls.
func WithPairCode(ctx context.Context, code string) context.Context {
	return context.WithValue(ctx, PairCodeKey, code)
}

// WithOTPSessionID returns a context carrying id for later log calls.
func WithOTPSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, OTPSessionIDKey, id)
}

// WithRTCSessionID returns a context carrying id for later log calls.
func WithRTCSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RTCSessionIDKey, id)
}

// WithVoiceSessionID returns a context carrying id for later log calls.
func WithVoiceSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, VoiceSessionIDKey, id)
}

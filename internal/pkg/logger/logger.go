package logger

import (
	"context"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// loggerKey is the key for the logger in the context.
type loggerKey struct{}

// Init builds a JSON stdout logger, teed into the OTLP log pipeline when lp is set, and stores it in the context.
func Init(ctx context.Context, serviceName string, lp *sdklog.LoggerProvider) (context.Context, *zap.Logger) {
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), zapcore.AddSync(os.Stdout), zapcore.InfoLevel),
	}
	if lp != nil {
		cores = append(cores, otelzap.NewCore(serviceName, otelzap.WithLoggerProvider(lp)))
	}

	logger := zap.New(zapcore.NewTee(cores...))
	return WithLogger(ctx, logger), logger
}

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// With returns a copy of ctx whose logger carries the extra fields.
func With(ctx context.Context, fields ...zap.Field) context.Context {
	return WithLogger(ctx, FromContext(ctx).With(fields...))
}

// FromContext extracts the logger from the context.
func FromContext(ctx context.Context) *zap.Logger {
	value := ctx.Value(loggerKey{})
	if value == nil {
		return zap.NewNop()
	}

	logger, ok := value.(*zap.Logger)
	if !ok {
		return zap.NewNop()
	}

	return logger
}

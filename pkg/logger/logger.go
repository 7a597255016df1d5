package logger

import (
	"io"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the logging interface every component receives by injection.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
	Sync() error
}

// Field is a single structured log field.
type Field struct {
	zap.Field
}

// LoggerImpl is the zap-backed Logger.
type LoggerImpl struct {
	zapLogger *zap.Logger
}

// NewLoggerTo builds a logger writing to w.
//
// Parameters:
// - environment: dev gets a console encoder, anything else JSON
// - level: debug, info, warn or error (unknown values fall back to info)
// - component: value of the "component" field attached to every entry
func NewLoggerTo(w io.Writer, environment, level, component string) (Logger, error) {
	zapLevel := ParseLevel(level)

	var encoder zapcore.Encoder
	if environment == "dev" {
		encoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	} else {
		encoderConfig := zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "time"
		encoderConfig.LevelKey = "level"
		encoderConfig.NameKey = "logger"
		encoderConfig.CallerKey = "caller"
		encoderConfig.MessageKey = "msg"
		encoderConfig.StacktraceKey = "stacktrace"
		encoderConfig.LineEnding = zapcore.DefaultLineEnding
		encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoderConfig.EncodeDuration = zapcore.StringDurationEncoder
		encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	core := zapcore.NewCore(
		encoder,
		zapcore.AddSync(w),
		zap.NewAtomicLevelAt(zapLevel),
	)

	zapLogger := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	zapLogger = zapLogger.With(
		zap.String("component", component),
		zap.String("environment", environment),
	)

	return &LoggerImpl{zapLogger: zapLogger}, nil
}

// NewNop returns a logger that discards everything. Used by tests and as the
// fallback when no logger is injected.
func NewNop() Logger {
	return &LoggerImpl{zapLogger: zap.NewNop()}
}

// ParseLevel maps a level name to a zap level, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zap.DebugLevel
	case "info":
		return zap.InfoLevel
	case "warn":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

func toZap(fields []Field) []zap.Field {
	zapFields := make([]zap.Field, len(fields))
	for i, field := range fields {
		zapFields[i] = field.Field
	}
	return zapFields
}

// Debug logs at debug level.
func (l *LoggerImpl) Debug(msg string, fields ...Field) {
	l.zapLogger.Debug(msg, toZap(fields)...)
}

// Info logs at info level.
func (l *LoggerImpl) Info(msg string, fields ...Field) {
	l.zapLogger.Info(msg, toZap(fields)...)
}

// Warn logs at warn level.
func (l *LoggerImpl) Warn(msg string, fields ...Field) {
	l.zapLogger.Warn(msg, toZap(fields)...)
}

// Error logs at error level.
func (l *LoggerImpl) Error(msg string, fields ...Field) {
	l.zapLogger.Error(msg, toZap(fields)...)
}

// With returns a child logger carrying fields.
func (l *LoggerImpl) With(fields ...Field) Logger {
	return &LoggerImpl{zapLogger: l.zapLogger.With(toZap(fields)...)}
}

// Sync flushes buffered entries.
func (l *LoggerImpl) Sync() error {
	return l.zapLogger.Sync()
}

// String creates a string field.
func String(key, val string) Field {
	return Field{zap.String(key, val)}
}

// Int creates an int field.
func Int(key string, val int) Field {
	return Field{zap.Int(key, val)}
}

// Int64 creates an int64 field.
func Int64(key string, val int64) Field {
	return Field{zap.Int64(key, val)}
}

// Float64 creates a float64 field.
func Float64(key string, val float64) Field {
	return Field{zap.Float64(key, val)}
}

// Bool creates a bool field.
func Bool(key string, val bool) Field {
	return Field{zap.Bool(key, val)}
}

// Duration creates a duration field.
func Duration(key string, val time.Duration) Field {
	return Field{zap.Duration(key, val)}
}

// Error creates an "error" field.
func Error(err error) Field {
	if err == nil {
		return Field{zap.String("error", "nil")}
	}
	return Field{zap.String("error", err.Error())}
}

// Any creates a field from an arbitrary value.
func Any(key string, val interface{}) Field {
	return Field{zap.Any(key, val)}
}

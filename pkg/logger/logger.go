package logger

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Context keys lifted into every ctx-aware log entry.
const (
	RequestIDKey = "request_id"
	UserIDKey    = "user_id"
)

type Logger struct {
	*logrus.Logger
}

var logger *Logger

func Init() *Logger {
	if logger != nil {
		return logger
	}

	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
		CallerPrettyfier: func(f *runtime.Frame) (string, string) {
			filename := strings.Split(f.File, "/")
			return fmt.Sprintf("%s:%d", filename[len(filename)-1], f.Line), ""
		},
	})

	log.SetReportCaller(true)
	log.SetLevel(logrus.InfoLevel)

	logger = &Logger{log}
	return logger
}

func Get() *Logger {
	if logger == nil {
		return Init()
	}
	return logger
}

func SetLevel(level string) {
	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	Get().SetLevel(logLevel)
}

// WithFieldsCtx merges request-scoped values (request id, user id, trace id) into fields.
func WithFieldsCtx(ctx context.Context, fields logrus.Fields) *logrus.Entry {
	merged := logrus.Fields{}
	if ctx != nil {
		if v, ok := ctx.Value(RequestIDKey).(string); ok && v != "" {
			merged[RequestIDKey] = v
		}
		if v, ok := ctx.Value(UserIDKey).(string); ok && v != "" {
			merged[UserIDKey] = v
		}
		if sc := oteltrace.SpanContextFromContext(ctx); sc.TraceID().IsValid() {
			merged["trace_id"] = sc.TraceID().String()
		}
	}
	for k, v := range fields {
		merged[k] = v
	}
	entry := Get().WithFields(merged)
	if ctx != nil {
		entry = entry.WithContext(ctx)
	}
	return entry
}

// kvFields turns alternating key/value pairs into logrus fields.
// A dangling key is kept under "!BADKEY" rather than dropped.
func kvFields(kv []interface{}) logrus.Fields {
	fields := logrus.Fields{}
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		if i+1 >= len(kv) {
			fields["!BADKEY"] = key
			break
		}
		fields[key] = kv[i+1]
	}
	return fields
}

func Debug(ctx context.Context, msg string, kv ...interface{}) {
	WithFieldsCtx(ctx, kvFields(kv)).Debug(msg)
}

func Info(ctx context.Context, msg string, kv ...interface{}) {
	WithFieldsCtx(ctx, kvFields(kv)).Info(msg)
}

func Warn(ctx context.Context, msg string, kv ...interface{}) {
	WithFieldsCtx(ctx, kvFields(kv)).Warn(msg)
}

func Error(ctx context.Context, msg string, kv ...interface{}) {
	WithFieldsCtx(ctx, kvFields(kv)).Error(msg)
}

func Fatal(ctx context.Context, msg string, kv ...interface{}) {
	WithFieldsCtx(ctx, kvFields(kv)).Fatal(msg)
}

func WithField(key string, value interface{}) *logrus.Entry {
	return Get().WithField(key, value)
}

func WithFields(fields logrus.Fields) *logrus.Entry {
	return Get().WithFields(fields)
}

func WithError(err error) *logrus.Entry {
	return Get().WithError(err)
}

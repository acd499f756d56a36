// Package logger — тонкая обёртка над logrus с API вида Info(ctx, msg, "key", value).
package logger

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	mu  sync.Mutex
	std = newLogger()
)

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&textFormatter{})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// ParseLevel разбирает уровень из конфигурации. Неизвестное значение даёт LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func SetLevel(level Level) {
	mu.Lock()
	defer mu.Unlock()

	switch level {
	case LevelDebug:
		std.SetLevel(logrus.DebugLevel)
	case LevelWarn:
		std.SetLevel(logrus.WarnLevel)
	case LevelError:
		std.SetLevel(logrus.ErrorLevel)
	default:
		std.SetLevel(logrus.InfoLevel)
	}
}

func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	std.SetOutput(w)
}

// SetFormat переключает формат: "json" или текстовый по умолчанию.
func SetFormat(format string) {
	mu.Lock()
	defer mu.Unlock()

	if strings.EqualFold(format, "json") {
		std.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	std.SetFormatter(&textFormatter{})
}

func Debug(ctx context.Context, msg string, args ...interface{}) {
	entry(ctx, args).Debug(msg)
}

func Info(ctx context.Context, msg string, args ...interface{}) {
	entry(ctx, args).Info(msg)
}

func Warn(ctx context.Context, msg string, args ...interface{}) {
	entry(ctx, args).Warn(msg)
}

// Error пишет сообщение с ошибкой. err может быть nil.
func Error(ctx context.Context, err error, msg string, args ...interface{}) {
	if err != nil {
		msg = msg + ": " + err.Error()
	}
	entry(ctx, args).Error(msg)
}

func entry(ctx context.Context, args []interface{}) *logrus.Entry {
	if ctx == nil {
		ctx = context.Background()
	}
	return std.WithContext(ctx).WithFields(fields(args))
}

// fields собирает пары ключ-значение. Ключ без значения попадает под "!BADKEY".
func fields(args []interface{}) logrus.Fields {
	f := make(logrus.Fields, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		if i+1 >= len(args) {
			f["!BADKEY"] = args[i]
			break
		}
		f[fmt.Sprint(args[i])] = args[i+1]
	}
	return f
}

var levelNames = map[logrus.Level]string{
	logrus.TraceLevel: "TRACE",
	logrus.DebugLevel: "DEBUG",
	logrus.InfoLevel:  "INFO",
	logrus.WarnLevel:  "WARN",
	logrus.ErrorLevel: "ERROR",
	logrus.FatalLevel: "FATAL",
	logrus.PanicLevel: "PANIC",
}

// textFormatter печатает строки в привычном виде: "2025/01/02 15:04:05 [INFO] msg key=value".
type textFormatter struct{}

func (f *textFormatter) Format(e *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer
	b.WriteString(e.Time.Format("2006/01/02 15:04:05"))
	b.WriteString(" [")
	b.WriteString(levelNames[e.Level])
	b.WriteString("] ")
	b.WriteString(e.Message)

	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Data[k])
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

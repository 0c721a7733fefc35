package logger_i

import (
	"os"
	"strings"
	"sync"

	"github.com/akolanti/LibraryRAG/internal/config"
	"go.uber.org/zap"
)

type Logger struct {
	inner *zap.SugaredLogger
}

var (
	base     *zap.SugaredLogger
	baseLock sync.RWMutex
)

func isProd() bool {
	if config.IS_PROD {
		return true
	}
	env := strings.ToLower(strings.TrimSpace(os.Getenv("APP_ENV")))
	return env == "prod" || env == "production"
}

func Init() {
	var cfg zap.Config
	if isProd() {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(config.LOG_LEVEL_PROD)
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	// skip the wrapper frame so callers show up as the source
	zapLogger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		zapLogger = zap.NewNop()
	}

	baseLock.Lock()
	base = zapLogger.Sugar()
	baseLock.Unlock()
}

// Sync flushes buffered entries, call it once on shutdown.
func Sync() {
	baseLock.RLock()
	defer baseLock.RUnlock()
	if base != nil {
		_ = base.Sync()
	}
}

func root() *zap.SugaredLogger {
	baseLock.RLock()
	b := base
	baseLock.RUnlock()
	if b != nil {
		return b
	}
	// loggers created before Init (package vars, tests) still get a working sink
	Init()
	baseLock.RLock()
	defer baseLock.RUnlock()
	return base
}

func NewLogger(section string) *Logger {
	return &Logger{
		inner: root().With("component", section),
	}
}

func (l *Logger) Info(msg string, args ...any) {
	l.inner.Infow(msg, args...)
}

func (l *Logger) Error(msg string, args ...any) {
	l.inner.Errorw(msg, args...)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.inner.Warnw(msg, args...)
}

func (l *Logger) Debug(msg string, args ...any) {
	l.inner.Debugw(msg, args...)
}

func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		inner: l.inner.With(args...),
	}
}

package logger

import (
	"strings"

	"go.uber.org/zap"
)

// Logger is a thin key/value facade over a zap sugared logger.
type Logger struct {
	sl *zap.SugaredLogger
}

// New builds a logger for the given environment mode. Production modes get
// JSON output at Info; everything else gets a console logger at Debug.
func New(mode string) (*Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	zl, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return &Logger{sl: zl.Sugar()}, nil
}

// NewNop returns a logger that discards everything. Used in tests.
func NewNop() *Logger {
	return &Logger{sl: zap.NewNop().Sugar()}
}

func (l *Logger) Sync() { _ = l.sl.Sync() }

func (l *Logger) Debug(msg string, kv ...any) { l.sl.Debugw(msg, kv...) }
func (l *Logger) Info(msg string, kv ...any)  { l.sl.Infow(msg, kv...) }
func (l *Logger) Warn(msg string, kv ...any)  { l.sl.Warnw(msg, kv...) }
func (l *Logger) Error(msg string, kv ...any) { l.sl.Errorw(msg, kv...) }
func (l *Logger) Fatal(msg string, kv ...any) { l.sl.Fatalw(msg, kv...) }

// With returns a child logger carrying the given key/value context.
func (l *Logger) With(kv ...any) *Logger {
	return &Logger{sl: l.sl.With(kv...)}
}

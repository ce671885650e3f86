// Package logging contains functionality for rigview logging.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	globalMu     sync.RWMutex
	globalLogger = NewDebugLogger("startup")
)

// ReplaceGlobal replaces the global loggers.
func ReplaceGlobal(logger Logger) {
	globalMu.Lock()
	globalLogger = logger
	globalMu.Unlock()
}

// Global returns the global logger.
func Global() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// Logger is the leveled, structured logger every component takes at construction.
type Logger interface {
	Debug(args ...interface{})
	Debugf(template string, args ...interface{})
	Debugw(msg string, keysAndValues ...interface{})
	Info(args ...interface{})
	Infof(template string, args ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warn(args ...interface{})
	Warnf(template string, args ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Error(args ...interface{})
	Errorf(template string, args ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
	Fatal(args ...interface{})
	Fatalf(template string, args ...interface{})
	Fatalw(msg string, keysAndValues ...interface{})

	// Name is the dotted name of the logger.
	Name() string
	// Sublogger returns a child logger whose name is suffixed with subname.
	Sublogger(subname string) Logger
	// SetLevel changes the minimum level this logger emits.
	SetLevel(level zapcore.Level)
	// AsZap returns the underlying sugared zap logger.
	AsZap() *zap.SugaredLogger
	Sync() error
}

type impl struct {
	*zap.SugaredLogger
	name  string
	base  zapcore.Core
	level zap.AtomicLevel
}

// NewLoggerConfig returns a new default logger config.
func NewLoggerConfig() zap.Config {
	// from https://github.com/uber-go/zap/blob/2314926ec34c23ee21f3dd4399438469668f8097/config.go#L135
	// but disable stacktraces, use same keys as prod, and color levels.
	return zap.Config{
		Level:    zap.NewAtomicLevelAt(zap.InfoLevel),
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		DisableStacktrace: true,
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
	}
}

// NewLogger returns a new logger that outputs Info+ logs to stdout.
func NewLogger(name string) Logger {
	return newWithLevel(name, zapcore.InfoLevel)
}

// NewDebugLogger returns a new logger that outputs Debug+ logs to stdout.
func NewDebugLogger(name string) Logger {
	return newWithLevel(name, zapcore.DebugLevel)
}

// NewBlankLogger returns a logger that discards everything. Useful as a default
// when a caller does not supply one.
func NewBlankLogger(name string) Logger {
	return newImpl(name, zapcore.NewNopCore(), zapcore.DebugLevel)
}

// FromZapCore wraps an existing core, for example a zaptest observer.
func FromZapCore(name string, core zapcore.Core) Logger {
	return newImpl(name, core, zapcore.DebugLevel)
}

func newWithLevel(name string, lvl zapcore.Level) Logger {
	config := NewLoggerConfig()
	// the base core lets everything through; each logger gates on its own level
	config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	return newImpl(name, zap.Must(config.Build()).Core(), lvl)
}

func newImpl(name string, base zapcore.Core, lvl zapcore.Level) *impl {
	level := zap.NewAtomicLevelAt(lvl)
	gated := &levelCore{Core: base, level: level}
	return &impl{
		SugaredLogger: zap.New(gated, zap.AddCaller()).Sugar().Named(name),
		name:          name,
		base:          base,
		level:         level,
	}
}

func (imp *impl) Name() string {
	return imp.name
}

// Sublogger starts at the parent's current level; later level changes do not propagate.
func (imp *impl) Sublogger(subname string) Logger {
	name := subname
	if imp.name != "" {
		name = imp.name + "." + subname
	}
	return newImpl(name, imp.base, imp.level.Level())
}

func (imp *impl) SetLevel(level zapcore.Level) {
	imp.level.SetLevel(level)
}

func (imp *impl) AsZap() *zap.SugaredLogger {
	return imp.SugaredLogger
}

// levelCore gates an arbitrary core on an atomic level so SetLevel works for wrapped cores.
type levelCore struct {
	zapcore.Core
	level zap.AtomicLevel
}

func (lc *levelCore) Enabled(lvl zapcore.Level) bool {
	return lc.level.Enabled(lvl) && lc.Core.Enabled(lvl)
}

func (lc *levelCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelCore{Core: lc.Core.With(fields), level: lc.level}
}

func (lc *levelCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !lc.Enabled(entry.Level) {
		return checked
	}
	return lc.Core.Check(entry, checked)
}

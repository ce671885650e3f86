package logging

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"
)

// LoggerPatternConfig sets the level of every registered logger whose name matches
// Pattern. A "*" section matches any run of characters.
type LoggerPatternConfig struct {
	Pattern string `json:"pattern"`
	Level   string `json:"level"`
}

// e.g. "rigview.scene", "rigview.*" or "*".
const validLoggerName = `^([a-zA-Z0-9]+([_-]*[a-zA-Z0-9]+)*|\*)(\.([a-zA-Z0-9]+([_-]*[a-zA-Z0-9]+)*|\*))*$`

var loggerPatternRegexp = regexp.MustCompile(validLoggerName)

// Validate reports a malformed pattern or an unknown level.
func (lpc LoggerPatternConfig) Validate(path string) error {
	if !loggerPatternRegexp.MatchString(lpc.Pattern) {
		return errors.Errorf("%s: invalid logger pattern %q", path, lpc.Pattern)
	}
	if _, err := LevelFromString(lpc.Level); err != nil {
		return errors.Wrap(err, path)
	}
	return nil
}

// LevelFromString parses a level name such as "debug" or "WARN".
func LevelFromString(level string) (zapcore.Level, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return lvl, errors.Errorf("unknown log level %q", level)
	}
	return lvl, nil
}

func buildRegexFromPattern(pattern string) string {
	var matcher strings.Builder
	matcher.WriteRune('^')
	for _, ch := range pattern {
		switch ch {
		case '*':
			matcher.WriteString(`.*`)
		case '.':
			matcher.WriteString(`\.`)
		default:
			matcher.WriteRune(ch)
		}
	}
	matcher.WriteRune('$')
	return matcher.String()
}

// Registry tracks named loggers so their levels can be set from configuration.
type Registry struct {
	mu        sync.RWMutex
	loggers   map[string]Logger
	logConfig []LoggerPatternConfig
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{loggers: map[string]Logger{}}
}

// Register adds logger under name and applies the current patterns to it. When name is
// already registered the existing logger is returned instead.
func (lr *Registry) Register(name string, logger Logger) Logger {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	if existing, ok := lr.loggers[name]; ok {
		return existing
	}
	lr.loggers[name] = logger
	if level, ok := lr.levelFor(name); ok {
		logger.SetLevel(level)
	}
	return logger
}

// LoggerNamed returns the logger registered under name.
func (lr *Registry) LoggerNamed(name string) (Logger, bool) {
	lr.mu.RLock()
	defer lr.mu.RUnlock()
	logger, ok := lr.loggers[name]
	return logger, ok
}

// Names returns the registered names in order.
func (lr *Registry) Names() []string {
	lr.mu.RLock()
	defer lr.mu.RUnlock()
	names := make([]string, 0, len(lr.loggers))
	for name := range lr.loggers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UpdateConfig replaces the patterns and reapplies them. Invalid patterns are skipped with
// a warning; loggers no pattern matches go back to INFO. The last matching pattern wins.
func (lr *Registry) UpdateConfig(logConfig []LoggerPatternConfig, errorLogger Logger) {
	valid := make([]LoggerPatternConfig, 0, len(logConfig))
	for i, lpc := range logConfig {
		if err := lpc.Validate(fmt.Sprintf("log.%d", i)); err != nil {
			errorLogger.Warnw("ignoring log level pattern", "pattern", lpc.Pattern, "error", err)
			continue
		}
		valid = append(valid, lpc)
	}

	lr.mu.Lock()
	defer lr.mu.Unlock()
	lr.logConfig = valid
	for name, logger := range lr.loggers {
		level, ok := lr.levelFor(name)
		if !ok {
			level = zapcore.InfoLevel
		}
		logger.SetLevel(level)
	}
}

// levelFor must be called with mu held.
func (lr *Registry) levelFor(name string) (zapcore.Level, bool) {
	var (
		level   zapcore.Level
		matched bool
	)
	for _, lpc := range lr.logConfig {
		r, err := regexp.Compile(buildRegexFromPattern(lpc.Pattern))
		if err != nil || !r.MatchString(name) {
			continue
		}
		lvl, err := LevelFromString(lpc.Level)
		if err != nil {
			continue
		}
		level, matched = lvl, true
	}
	return level, matched
}

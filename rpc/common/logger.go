package common

import (
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/lni/dragonboat/v4/logger"
)

// --------------------------------------------------------------------------
// Log Levels
// --------------------------------------------------------------------------

// logLevels maps the accepted --log-level values to dragonboat levels
var logLevels = map[string]logger.LogLevel{
	"debug":   logger.DEBUG,
	"info":    logger.INFO,
	"warn":    logger.WARNING,
	"warning": logger.WARNING,
	"error":   logger.ERROR,
}

// levelTags are the fixed-width level columns of a log line
var levelTags = map[logger.LogLevel]string{
	logger.DEBUG:    "DEBUG",
	logger.INFO:     "INFO ",
	logger.WARNING:  "WARN ",
	logger.ERROR:    "ERROR",
	logger.CRITICAL: "CRIT ",
}

// ParseLogLevel converts a --log-level value to a logger.LogLevel. The empty string is INFO.
func ParseLogLevel(level string) (logger.LogLevel, error) {
	if level == "" {
		return logger.INFO, nil
	}
	if lvl, ok := logLevels[strings.ToLower(level)]; ok {
		return lvl, nil
	}
	names := make([]string, 0, len(logLevels))
	for name := range logLevels {
		names = append(names, name)
	}
	sort.Strings(names)
	return logger.INFO, fmt.Errorf("invalid log level %q, must be one of %s", level, strings.Join(names, ", "))
}

// --------------------------------------------------------------------------
// Package Logger (implements dragonboats logger.ILogger)
// --------------------------------------------------------------------------

// logOutput is shared by all package loggers. Command output (job results, client
// responses) goes to stdout, so logs default to stderr.
var logOutput = log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lmicroseconds)

// SetLogOutput redirects the lines of all package loggers to w
func SetLogOutput(w io.Writer) {
	logOutput.SetOutput(w)
}

// pkgLogger writes "<date> <time> <LEVEL> [<pkg>] <msg>" lines to logOutput.
//
// Thread-safety: All methods are thread-safe, the level may change while logging.
type pkgLogger struct {
	pkg   string
	level atomic.Int32
}

func (l *pkgLogger) SetLevel(level logger.LogLevel) {
	l.level.Store(int32(level))
}

func (l *pkgLogger) Debugf(format string, args ...interface{}) {
	l.logf(logger.DEBUG, format, args...)
}

func (l *pkgLogger) Infof(format string, args ...interface{}) {
	l.logf(logger.INFO, format, args...)
}

func (l *pkgLogger) Warningf(format string, args ...interface{}) {
	l.logf(logger.WARNING, format, args...)
}

func (l *pkgLogger) Errorf(format string, args ...interface{}) {
	l.logf(logger.ERROR, format, args...)
}

// Panicf logs the message and panics with it regardless of the level
func (l *pkgLogger) Panicf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.logf(logger.CRITICAL, "%s", msg)
	panic(msg)
}

func (l *pkgLogger) logf(level logger.LogLevel, format string, args ...interface{}) {
	if logger.LogLevel(l.level.Load()) < level {
		return
	}
	logOutput.Printf("%s [%s] %s", levelTags[level], l.pkg, fmt.Sprintf(format, args...))
}

// CreateLogger implements the logger.Factory function type. New loggers log at INFO.
func CreateLogger(pkgName string) logger.ILogger {
	l := &pkgLogger{pkg: pkgName}
	l.SetLevel(logger.INFO)
	return l
}

// --------------------------------------------------------------------------
// Logger initialization
// --------------------------------------------------------------------------

// loggerNames are the names of all package loggers of the application
var loggerNames = []string{"store", "notify", "backup", "jobs", "rpc", "transport"}

// InitLoggers installs the logger factory and sets the level of all package loggers.
// Must be called before any logger is used.
func InitLoggers(level string) error {
	lvl, err := ParseLogLevel(level)
	if err != nil {
		return err
	}

	logger.SetLoggerFactory(CreateLogger)
	for _, name := range loggerNames {
		logger.GetLogger(name).SetLevel(lvl)
	}
	return nil
}

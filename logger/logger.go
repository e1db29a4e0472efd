package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	// Logger is the general purpose logger; debug and warn output goes here.
	Logger *logrus.Logger
	// InfoLogger receives freeze/thaw and tool progress messages.
	InfoLogger *logrus.Logger
	// ErrorLogger receives header mismatches and I/O failures.
	ErrorLogger *logrus.Logger
)

// LogConfig selects log files and the level shared by all three loggers.
type LogConfig struct {
	ErrorLogPath string
	InfoLogPath  string
	LogLevel     string
}

// CustomFormatter prints "[time] [LEVL] (file:func:line) message".
type CustomFormatter struct {
	TimestampFormat string
}

func (f *CustomFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	timestamp := entry.Time.Format(f.TimestampFormat)

	level := strings.ToUpper(entry.Level.String())
	if len(level) > 4 {
		level = level[:4]
	}

	var fields strings.Builder
	for k, v := range entry.Data {
		fmt.Fprintf(&fields, " %s=%v", k, v)
	}

	return []byte(fmt.Sprintf("[%s] [%s] (%s) %s%s\n",
		timestamp, level, getCaller(), entry.Message, fields.String())), nil
}

// getCaller walks past logrus frames to find the real call site.
func getCaller() string {
	for i := 2; i < 20; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		if strings.Contains(file, "sirupsen") ||
			strings.Contains(file, "/logger/logger.go") {
			continue
		}
		return fmt.Sprintf("%s:%s:%d", filepath.Base(file), runtime.FuncForPC(pc).Name(), line)
	}
	return "unknown:unknown:0"
}

func parseLogLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}

func init() {
	// Usable before InitLogger: the engine logs through these from tests and tools.
	formatter := &CustomFormatter{TimestampFormat: "15:04:05 MST 2006/01/02"}
	Logger = logrus.New()
	Logger.SetFormatter(formatter)
	Logger.SetLevel(logrus.WarnLevel)
	InfoLogger = logrus.New()
	InfoLogger.SetFormatter(formatter)
	InfoLogger.SetLevel(logrus.WarnLevel)
	ErrorLogger = logrus.New()
	ErrorLogger.SetFormatter(formatter)
	ErrorLogger.SetOutput(os.Stderr)
}

// InitLogger reconfigures the three loggers. A log file that cannot be
// opened falls back to stdout/stderr with a warning.
func InitLogger(config LogConfig) error {
	level := parseLogLevel(config.LogLevel)
	Logger.SetLevel(level)
	InfoLogger.SetLevel(level)
	ErrorLogger.SetLevel(level)

	InfoLogger.SetOutput(os.Stdout)
	if config.InfoLogPath != "" {
		f, err := openLogFile(config.InfoLogPath)
		if err != nil {
			InfoLogger.Warnf("failed to open info log %s, using stdout: %v", config.InfoLogPath, err)
		} else {
			InfoLogger.SetOutput(io.MultiWriter(os.Stdout, f))
		}
	}

	ErrorLogger.SetOutput(os.Stderr)
	if config.ErrorLogPath != "" {
		f, err := openLogFile(config.ErrorLogPath)
		if err != nil {
			ErrorLogger.Warnf("failed to open error log %s, using stderr: %v", config.ErrorLogPath, err)
		} else {
			ErrorLogger.SetOutput(io.MultiWriter(os.Stderr, f))
		}
	}

	Logger.SetOutput(InfoLogger.Out)
	return nil
}

func openLogFile(logPath string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
}

// ForTree returns an entry tagged with the index file it concerns.
func ForTree(name string) *logrus.Entry {
	return Logger.WithField("tree", name)
}

func Infof(format string, args ...interface{}) {
	InfoLogger.Infof(format, args...)
}

func Debugf(format string, args ...interface{}) {
	Logger.Debugf(format, args...)
}

func Warnf(format string, args ...interface{}) {
	Logger.Warnf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	ErrorLogger.Errorf(format, args...)
}

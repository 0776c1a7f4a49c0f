package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// LogLevel is devkit's log threshold, set with --log-level or log.level.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l LogLevel) String() string {
	if l < LevelDebug || l > LevelError {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel converts a --log-level value into a LogLevel.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q (use debug, info, warn, error)", s)
	}
}

// slogLevel maps a LogLevel onto slog, whose levels are spaced four apart.
func (l LogLevel) slogLevel() slog.Level {
	if l < LevelDebug || l > LevelError {
		return slog.LevelInfo
	}
	return slog.LevelDebug + slog.Level(4*l)
}

// Logger is the structured logger every devkit package accepts. Fields
// are slog key/value pairs.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...interface{})
	Info(ctx context.Context, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
	Error(ctx context.Context, err error, msg string, fields ...interface{})

	With(fields ...interface{}) Logger
	WithComponent(component string) Logger
}

// DevkitLogger writes structured records through slog. Fields added with
// With are kept in call order; the component is added to every record.
type DevkitLogger struct {
	logger    *slog.Logger
	component string
}

type LoggerConfig struct {
	Level     LogLevel
	Format    string // "json" or "text"
	Output    io.Writer
	AddSource bool
	Component string
}

// DefaultConfig logs info and above as text to stderr.
func DefaultConfig() *LoggerConfig {
	return &LoggerConfig{
		Level:  LevelInfo,
		Format: "text",
		Output: os.Stderr,
	}
}

// NewLogger creates a logger writing to config.Output.
func NewLogger(config *LoggerConfig) *DevkitLogger {
	if config == nil {
		config = DefaultConfig()
	}
	output := config.Output
	if output == nil {
		output = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:     config.Level.slogLevel(),
		AddSource: config.AddSource,
	}

	var handler slog.Handler = slog.NewTextHandler(output, opts)
	if config.Format == "json" {
		handler = slog.NewJSONHandler(output, opts)
	}

	return &DevkitLogger{logger: slog.New(handler), component: config.Component}
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() *DevkitLogger {
	return NewLogger(&LoggerConfig{Level: LevelError, Output: io.Discard})
}

// Debug logs a debug message
func (l *DevkitLogger) Debug(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, slog.LevelDebug, nil, msg, fields)
}

// Info logs an info message
func (l *DevkitLogger) Info(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, slog.LevelInfo, nil, msg, fields)
}

// Warn logs a warning with the error that caused it, if any.
func (l *DevkitLogger) Warn(ctx context.Context, err error, msg string, fields ...interface{}) {
	l.log(ctx, slog.LevelWarn, err, msg, fields)
}

// Error logs an error message
func (l *DevkitLogger) Error(ctx context.Context, err error, msg string, fields ...interface{}) {
	l.log(ctx, slog.LevelError, err, msg, fields)
}

// With returns a logger that adds fields to every record.
func (l *DevkitLogger) With(fields ...interface{}) Logger {
	return &DevkitLogger{logger: l.logger.With(fields...), component: l.component}
}

// WithComponent returns a logger tagged with component, replacing any
// previous component.
func (l *DevkitLogger) WithComponent(component string) Logger {
	return &DevkitLogger{logger: l.logger, component: component}
}

func (l *DevkitLogger) log(ctx context.Context, level slog.Level, err error, msg string, fields []interface{}) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.logger.Enabled(ctx, level) {
		return
	}

	args := make([]interface{}, 0, len(fields)+4)
	if l.component != "" {
		args = append(args, slog.String("component", l.component))
	}
	if err != nil {
		args = append(args, slog.String("error", err.Error()))
	}
	args = append(args, fields...)

	// Skip runtime.Callers, log and the level method so AddSource reports
	// the caller.
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])
	record := slog.NewRecord(time.Now(), level, msg, pcs[0])
	record.Add(args...)
	_ = l.logger.Handler().Handle(ctx, record)
}

// FileLogger appends to devkit-YYYY-MM-DD.log under the log directory.
type FileLogger struct {
	*DevkitLogger
	file *os.File
}

// NewFileLogger opens today's log file under logDir, creating the
// directory when needed. Records use config's level and format.
func NewFileLogger(config *LoggerConfig, logDir string) (*FileLogger, error) {
	switch {
	case logDir == "":
		return nil, fmt.Errorf("log directory cannot be empty")
	case strings.Contains(filepath.Clean(logDir), ".."):
		return nil, fmt.Errorf("log directory %s: path traversal is not allowed", logDir)
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	name := filepath.Join(logDir, "devkit-"+time.Now().Format(time.DateOnly)+".log")
	file, err := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	cfg := *config
	cfg.Output = file
	return &FileLogger{DevkitLogger: NewLogger(&cfg), file: file}, nil
}

// Path returns the file the logger appends to.
func (f *FileLogger) Path() string {
	return f.file.Name()
}

func (f *FileLogger) Close() error {
	return f.file.Close()
}

// MultiLogger fans every record out to several loggers, typically the
// console and a FileLogger.
type MultiLogger []Logger

func NewMultiLogger(loggers ...Logger) MultiLogger {
	return MultiLogger(loggers)
}

func (m MultiLogger) Debug(ctx context.Context, msg string, fields ...interface{}) {
	for _, l := range m {
		l.Debug(ctx, msg, fields...)
	}
}

func (m MultiLogger) Info(ctx context.Context, msg string, fields ...interface{}) {
	for _, l := range m {
		l.Info(ctx, msg, fields...)
	}
}

func (m MultiLogger) Warn(ctx context.Context, err error, msg string, fields ...interface{}) {
	for _, l := range m {
		l.Warn(ctx, err, msg, fields...)
	}
}

func (m MultiLogger) Error(ctx context.Context, err error, msg string, fields ...interface{}) {
	for _, l := range m {
		l.Error(ctx, err, msg, fields...)
	}
}

func (m MultiLogger) With(fields ...interface{}) Logger {
	return m.derive(func(l Logger) Logger { return l.With(fields...) })
}

func (m MultiLogger) WithComponent(component string) Logger {
	return m.derive(func(l Logger) Logger { return l.WithComponent(component) })
}

func (m MultiLogger) derive(fn func(Logger) Logger) MultiLogger {
	out := make(MultiLogger, len(m))
	for i, l := range m {
		out[i] = fn(l)
	}
	return out
}

const maxLoggedValue = 1000

// secretWords mark a value as a credential. npm flags such as
// --authToken and env assignments like NODE_AUTH_TOKEN=... match.
var secretWords = []string{"password", "token", "secret", "auth"}

// SanitizeForLog hides credentials and clips oversized values.
func SanitizeForLog(value string) string {
	lower := strings.ToLower(value)
	for _, word := range secretWords {
		if strings.Contains(lower, word) {
			return "[REDACTED]"
		}
	}
	if len(value) > maxLoggedValue {
		return value[:maxLoggedValue] + "...[TRUNCATED]"
	}
	return value
}

// SanitizeArgs applies SanitizeForLog to each command argument.
func SanitizeArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for _, arg := range args {
		out = append(out, SanitizeForLog(arg))
	}
	return out
}

// PerfLogger times one named operation, such as a build step.
type PerfLogger struct {
	Logger
	start time.Time
}

// StartOperation returns a PerfLogger whose records carry operation.
func StartOperation(logger Logger, operation string) *PerfLogger {
	return &PerfLogger{Logger: logger.With("operation", operation), start: time.Now()}
}

// End logs the elapsed time at debug level.
func (p *PerfLogger) End(ctx context.Context) {
	p.Debug(ctx, "Operation completed", "duration_ms", p.elapsed())
}

// EndWithError logs the failure with the elapsed time.
func (p *PerfLogger) EndWithError(ctx context.Context, err error) {
	p.Error(ctx, err, "Operation failed", "duration_ms", p.elapsed())
}

func (p *PerfLogger) elapsed() int64 {
	return time.Since(p.start).Milliseconds()
}

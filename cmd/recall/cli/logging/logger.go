// Package logging provides structured logging for the Recall CLI using slog.
//
// Logs are JSON lines written per session under .recall/logs. Hooks run as
// short-lived processes, so Init/Close bracket each invocation:
//
//	if err := logging.Init(sessionID); err != nil {
//	    // handle error
//	}
//	defer logging.Close()
//
//	ctx = logging.WithHook(ctx, "user-prompt-submit")
//	logging.Info(ctx, "index loaded", slog.Int("commits", n))
package logging

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/recallhq/cli/cmd/recall/cli/paths"
	"github.com/recallhq/cli/cmd/recall/cli/validation"
)

// LogLevelEnvVar is the environment variable that controls log level.
const LogLevelEnvVar = "RECALL_LOG_LEVEL"

var (
	logger           *slog.Logger
	logFile          *os.File
	logBufWriter     *bufio.Writer
	currentSessionID string

	// mu protects the package state above.
	mu sync.RWMutex

	// logLevelGetter reads the level from settings when the env var is
	// unset. Set by SetLogLevelGetter to avoid an import cycle with the
	// settings package.
	logLevelGetter func() string
)

// SetLogLevelGetter sets a callback to get the log level from settings.
// Used only when RECALL_LOG_LEVEL is not set.
func SetLogLevelGetter(getter func() string) {
	mu.Lock()
	defer mu.Unlock()
	logLevelGetter = getter
}

// Init initializes the logger for a session, writing JSON logs to
// .recall/logs/<session-id>.log. Falls back to stderr when the log file
// cannot be created.
func Init(sessionID string) error {
	if err := validation.ValidateSessionID(sessionID); err != nil {
		return fmt.Errorf("invalid session ID for logging: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()

	closeLocked()

	levelStr := os.Getenv(LogLevelEnvVar)
	if levelStr == "" && logLevelGetter != nil {
		levelStr = logLevelGetter()
	}
	level := parseLogLevel(levelStr)
	if levelStr != "" && !isValidLogLevel(levelStr) {
		fmt.Fprintf(os.Stderr, "[recall] Warning: invalid log level %q, defaulting to INFO\n", levelStr)
	}

	repoRoot, err := paths.RepoRoot()
	if err != nil {
		repoRoot = "."
	}

	logsPath := filepath.Join(repoRoot, paths.LogsDir)
	if err := os.MkdirAll(logsPath, 0o750); err != nil {
		logger = createLogger(os.Stderr, level)
		return nil
	}

	logFilePath := filepath.Join(logsPath, sessionID+".log")
	f, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600) //nolint:gosec // sessionID validated above
	if err != nil {
		logger = createLogger(os.Stderr, level)
		return nil
	}

	logFile = f
	logBufWriter = bufio.NewWriterSize(f, 8192)
	logger = createLogger(logBufWriter, level)
	currentSessionID = sessionID
	return nil
}

// Close flushes and closes the log file. Safe to call multiple times.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	closeLocked()
	currentSessionID = ""
}

func closeLocked() {
	if logBufWriter != nil {
		_ = logBufWriter.Flush()
		logBufWriter = nil
	}
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

// resetLogger resets the logger to nil (for testing).
func resetLogger() {
	mu.Lock()
	defer mu.Unlock()
	logger = nil
	currentSessionID = ""
	closeLocked()
}

func getLogger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if logger == nil {
		return slog.Default()
	}
	return logger
}

func getSessionID() string {
	mu.RLock()
	defer mu.RUnlock()
	return currentSessionID
}

func createLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// parseLogLevel parses a log level string, defaulting to INFO.
func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func isValidLogLevel(s string) bool {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG", "INFO", "WARN", "WARNING", "ERROR", "":
		return true
	default:
		return false
	}
}

// Debug logs at DEBUG level with context values automatically extracted.
func Debug(ctx context.Context, msg string, attrs ...any) {
	log(ctx, slog.LevelDebug, msg, attrs...)
}

// Info logs at INFO level with context values automatically extracted.
func Info(ctx context.Context, msg string, attrs ...any) {
	log(ctx, slog.LevelInfo, msg, attrs...)
}

// Warn logs at WARN level with context values automatically extracted.
func Warn(ctx context.Context, msg string, attrs ...any) {
	log(ctx, slog.LevelWarn, msg, attrs...)
}

// Error logs at ERROR level with context values automatically extracted.
func Error(ctx context.Context, msg string, attrs ...any) {
	log(ctx, slog.LevelError, msg, attrs...)
}

// LogDuration logs a message with duration_ms calculated from start.
// Designed for use with defer:
//
//	defer logging.LogDuration(ctx, slog.LevelInfo, "hook completed", time.Now())
func LogDuration(ctx context.Context, level slog.Level, msg string, start time.Time, attrs ...any) {
	allAttrs := make([]any, 0, len(attrs)+1)
	allAttrs = append(allAttrs, slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	allAttrs = append(allAttrs, attrs...)
	log(ctx, level, msg, allAttrs...)
}

func log(ctx context.Context, level slog.Level, msg string, attrs ...any) {
	l := getLogger()

	var allAttrs []any
	globalSessionID := getSessionID()
	if globalSessionID != "" {
		allAttrs = append(allAttrs, slog.String("session_id", globalSessionID))
	}
	for _, a := range attrsFromContext(ctx, globalSessionID) {
		allAttrs = append(allAttrs, a)
	}
	allAttrs = append(allAttrs, attrs...)

	// Context values were already extracted as attributes.
	l.Log(nil, level, msg, allAttrs...) //nolint:staticcheck // nil context is intentional
}

func attrsFromContext(ctx context.Context, globalSessionID string) []slog.Attr {
	if ctx == nil {
		return nil
	}

	var attrs []slog.Attr
	if globalSessionID == "" {
		if s := SessionIDFromContext(ctx); s != "" {
			attrs = append(attrs, slog.String("session_id", s))
		}
	}
	if s := HookFromContext(ctx); s != "" {
		attrs = append(attrs, slog.String("hook", s))
	}
	if s := ComponentFromContext(ctx); s != "" {
		attrs = append(attrs, slog.String("component", s))
	}
	return attrs
}

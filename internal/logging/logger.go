// Package logging builds the zerolog loggers used across finplan and carries
// them, together with a per-invocation trace ID, through context.Context.
//
// Every component obtains its logger with FromContext and tags lines with
// "component" and "operation" fields:
//
//	logger := logging.FromContext(ctx).With().
//	    Str("component", "cache").
//	    Str("operation", "put").
//	    Logger()
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Output destinations.
const (
	OutputStderr = "stderr"
	OutputFile   = "file"
)

// Formats.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Config holds logger construction settings.
type Config struct {
	// Level is the minimum level: trace, debug, info, warn, error.
	Level string

	// Format is json or console.
	Format string

	// Output is stderr or file.
	Output string

	// File is the log file path when Output is file.
	File string

	// Caller adds file:line to each entry.
	Caller bool
}

// LogPathResult describes where the logger ended up writing.
type LogPathResult struct {
	Logger         zerolog.Logger
	UsingFile      bool
	FilePath       string
	FallbackUsed   bool
	FallbackReason string

	file *os.File
}

// Close releases the log file handle, if any.
func (r *LogPathResult) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

var (
	defaultLogger zerolog.Logger //nolint:gochecknoglobals // fallback when ctx carries no logger
	defaultMu     sync.RWMutex   //nolint:gochecknoglobals // guards defaultLogger
)

//nolint:gochecknoinits // a usable logger must exist before configuration is loaded
func init() {
	defaultLogger = NewLogger(Config{Level: "info", Format: FormatConsole, Output: OutputStderr})
}

// NewLogger builds a logger writing to stderr in the configured format.
// File output is handled by NewLoggerWithPath.
func NewLogger(cfg Config) zerolog.Logger {
	return build(cfg, os.Stderr)
}

// NewLoggerWithPath builds a logger honoring Output=file. When the file
// cannot be opened the logger falls back to stderr and the reason is reported
// in the result instead of failing the command.
func NewLoggerWithPath(cfg Config) LogPathResult {
	if cfg.Output != OutputFile || cfg.File == "" {
		return LogPathResult{Logger: build(cfg, os.Stderr)}
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0700); err != nil {
		return LogPathResult{
			Logger:         build(cfg, os.Stderr),
			FallbackUsed:   true,
			FallbackReason: fmt.Sprintf("create log directory: %v", err),
		}
	}

	f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return LogPathResult{
			Logger:         build(cfg, os.Stderr),
			FallbackUsed:   true,
			FallbackReason: fmt.Sprintf("open log file: %v", err),
		}
	}

	// Files always get JSON; console escapes are noise on disk.
	fileCfg := cfg
	fileCfg.Format = FormatJSON
	return LogPathResult{
		Logger:    build(fileCfg, f),
		UsingFile: true,
		FilePath:  cfg.File,
		file:      f,
	}
}

// SetDefault replaces the logger returned by FromContext for contexts that
// carry none.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func SetDefault(l zerolog.Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}

// Default returns the process-wide fallback logger.
func Default() zerolog.Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// ComponentLogger returns l tagged with component=name.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func ComponentLogger(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}

// PrintLogPathMessage tells the user where logs are going.
func PrintLogPathMessage(w io.Writer, path string) {
	_, _ = fmt.Fprintf(w, "Logging to %s\n", path)
}

// PrintFallbackWarning reports that file logging was requested but unavailable.
func PrintFallbackWarning(w io.Writer, reason string) {
	_, _ = fmt.Fprintf(w, "Warning: file logging unavailable (%s), logging to stderr\n", reason)
}

func build(cfg Config, out io.Writer) zerolog.Logger {
	var w io.Writer = out
	if strings.EqualFold(cfg.Format, FormatConsole) {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	zc := zerolog.New(w).Level(ParseLevel(cfg.Level)).With().Timestamp()
	if cfg.Caller {
		zc = zc.Caller()
	}
	return zc.Logger()
}

// ParseLevel parses level, defaulting to info for empty or unknown values.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

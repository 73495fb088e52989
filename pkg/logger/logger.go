// Package logger provides the dashboard's logging system on top of logrus.
// Every entry carries a level and a prefix; entries are printed to the console
// with colors, appended to log files and fanned out to Discord webhooks.
package logger

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
)

// LogLevel represents the severity level of a log message
type LogLevel int

const (
	LevelCritical LogLevel = iota
	LevelError
	LevelWarn
	LevelSuccess
	LevelInfo
	LevelDebug
	LevelSystem
)

const (
	fieldLevel  = "pancy_level"
	fieldPrefix = "prefix"
	timeLayout  = "2006-01-02 15:04:05"
	colorReset  = "\033[0m"
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case LevelCritical:
		return "CRITICAL"
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelSuccess:
		return "SUCCESS"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	case LevelSystem:
		return "SYSTEM"
	default:
		return "UNKNOWN"
	}
}

// Color returns the ANSI color code for the log level
func (l LogLevel) Color() string {
	switch l {
	case LevelCritical:
		return "\033[1;31m"
	case LevelError:
		return "\033[31m"
	case LevelWarn:
		return "\033[33m"
	case LevelSuccess:
		return "\033[32m"
	case LevelInfo:
		return "\033[36m"
	case LevelDebug:
		return "\033[35m"
	case LevelSystem:
		return "\033[34m"
	default:
		return colorReset
	}
}

// DiscordColor returns the Discord embed color for the log level
func (l LogLevel) DiscordColor() int {
	switch l {
	case LevelCritical, LevelError:
		return 0xFF0000
	case LevelWarn:
		return 0xFFFF00
	case LevelSuccess:
		return 0x00FF00
	case LevelInfo:
		return 0x0000FF
	case LevelDebug:
		return 0x800080
	case LevelSystem:
		return 0x808080
	default:
		return 0xFFFFFF
	}
}

// logrusLevel maps the dashboard levels onto logrus severities.
// Critical stays at ErrorLevel because logrus Fatal/Panic terminate the process.
func (l LogLevel) logrusLevel() logrus.Level {
	switch l {
	case LevelCritical, LevelError:
		return logrus.ErrorLevel
	case LevelWarn:
		return logrus.WarnLevel
	case LevelDebug:
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}

// entryLevel recovers the dashboard level stored on a logrus entry
func entryLevel(e *logrus.Entry) LogLevel {
	if lvl, ok := e.Data[fieldLevel].(LogLevel); ok {
		return lvl
	}
	switch e.Level {
	case logrus.PanicLevel, logrus.FatalLevel:
		return LevelCritical
	case logrus.ErrorLevel:
		return LevelError
	case logrus.WarnLevel:
		return LevelWarn
	case logrus.DebugLevel, logrus.TraceLevel:
		return LevelDebug
	default:
		return LevelInfo
	}
}

func entryPrefix(e *logrus.Entry) string {
	if p, ok := e.Data[fieldPrefix].(string); ok {
		return p
	}
	return "App"
}

// consoleFormatter renders "[time] [LEVEL] [prefix]: message" lines
type consoleFormatter struct {
	colors bool
}

// Format implements logrus.Formatter
func (f *consoleFormatter) Format(e *logrus.Entry) ([]byte, error) {
	lvl := entryLevel(e)
	var b bytes.Buffer
	if f.colors {
		fmt.Fprintf(&b, "[%s] [%s%s%s] [%s]: %s\n", e.Time.Format(timeLayout), lvl.Color(), lvl.String(), colorReset, entryPrefix(e), e.Message)
	} else {
		fmt.Fprintf(&b, "[%s] [%s] [%s]: %s\n", e.Time.Format(timeLayout), lvl.String(), entryPrefix(e), e.Message)
	}
	return b.Bytes(), nil
}

// fileHook appends every entry to combined.log and errors to error.log
type fileHook struct {
	mu        sync.Mutex
	formatter consoleFormatter
	combined  *os.File
	errors    *os.File
}

func (h *fileHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *fileHook) Fire(e *logrus.Entry) error {
	line, err := h.formatter.Format(e)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.combined != nil {
		_, _ = h.combined.Write(line)
	}
	if entryLevel(e) <= LevelError && h.errors != nil {
		_, _ = h.errors.Write(line)
	}
	return nil
}

// webhookHook forwards entries to Discord as embeds without blocking the caller
type webhookHook struct {
	errorURL string
	logsURL  string
	client   *http.Client
}

func (h *webhookHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *webhookHook) Fire(e *logrus.Entry) error {
	lvl := entryLevel(e)
	url := h.logsURL
	if lvl <= LevelError {
		url = h.errorURL
	}
	if url == "" {
		return nil
	}

	payload := map[string]any{
		"embeds": []any{map[string]any{
			"title":       fmt.Sprintf("[%s] %s", lvl.String(), entryPrefix(e)),
			"description": fmt.Sprintf("```%s```", e.Message),
			"color":       lvl.DiscordColor(),
			"timestamp":   e.Time.Format(time.RFC3339),
			"footer": map[string]string{
				"text": "💫 Developed by PancyStudio | PancyDash",
			},
		}},
	}
	go h.post(url, payload)
	return nil
}

func (h *webhookHook) post(url string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return
	}
	_ = resp.Body.Close()
}

// Logger is the main logging structure
type Logger struct {
	logrus *logrus.Logger
	files  *fileHook
}

var (
	logger *Logger
	once   sync.Once
)

// Init initializes the global logger instance
func Init(errorWebhook, logsWebhook string) *Logger {
	once.Do(func() {
		logger = NewLogger(errorWebhook, logsWebhook)
	})
	return logger
}

// Get returns the global logger instance
func Get() *Logger {
	once.Do(func() {
		logger = NewLogger("", "")
	})
	return logger
}

// NewLogger creates a new Logger writing to stdout, ./logs and the given webhooks
func NewLogger(errorWebhook, logsWebhook string) *Logger {
	base := logrus.New()
	base.SetOutput(os.Stdout)
	base.SetFormatter(&consoleFormatter{colors: true})
	base.SetLevel(logrus.DebugLevel)

	l := &Logger{logrus: base, files: &fileHook{}}

	logsDir := filepath.Join(".", "logs")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		fmt.Printf("Error creating logs directory: %v\n", err)
	}

	var err error
	l.files.combined, err = os.OpenFile(filepath.Join(logsDir, "combined.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Printf("Error opening combined log file: %v\n", err)
	}
	l.files.errors, err = os.OpenFile(filepath.Join(logsDir, "error.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Printf("Error opening error log file: %v\n", err)
	}

	base.AddHook(l.files)
	if errorWebhook != "" || logsWebhook != "" {
		base.AddHook(&webhookHook{
			errorURL: errorWebhook,
			logsURL:  logsWebhook,
			client:   &http.Client{Timeout: 5 * time.Second},
		})
	}

	return l
}

// SetOutput redirects console output; tests use it to capture lines
func (l *Logger) SetOutput(w io.Writer) {
	l.logrus.SetOutput(w)
}

// Writer returns a pipe that logs each written line at the given level.
// The caller must close it.
func (l *Logger) Writer(level LogLevel, prefix string) *io.PipeWriter {
	return l.logrus.WithFields(logrus.Fields{fieldLevel: level, fieldPrefix: prefix}).WriterLevel(level.logrusLevel())
}

func (l *Logger) log(level LogLevel, message string, prefix string) {
	l.logrus.WithFields(logrus.Fields{
		fieldLevel:  level,
		fieldPrefix: prefix,
	}).Log(level.logrusLevel(), message)
}

// Close closes the log files
func (l *Logger) Close() {
	l.files.mu.Lock()
	defer l.files.mu.Unlock()

	if l.files.combined != nil {
		l.files.combined.Close()
		l.files.combined = nil
	}
	if l.files.errors != nil {
		l.files.errors.Close()
		l.files.errors = nil
	}
}

// Critical logs a critical message
func (l *Logger) Critical(message string, prefix string) {
	l.log(LevelCritical, message, prefix)
}

// Error logs an error message
func (l *Logger) Error(message string, prefix string) {
	l.log(LevelError, message, prefix)
}

// Warn logs a warning message
func (l *Logger) Warn(message string, prefix string) {
	l.log(LevelWarn, message, prefix)
}

// Success logs a success message
func (l *Logger) Success(message string, prefix string) {
	l.log(LevelSuccess, message, prefix)
}

// Info logs an info message
func (l *Logger) Info(message string, prefix string) {
	l.log(LevelInfo, message, prefix)
}

// Debug logs a debug message
func (l *Logger) Debug(message string, prefix string) {
	l.log(LevelDebug, message, prefix)
}

// System logs a system message
func (l *Logger) System(message string, prefix string) {
	l.log(LevelSystem, message, prefix)
}

// Critical logs a critical message using the global logger
func Critical(message string, prefix string) {
	Get().Critical(message, prefix)
}

// Error logs an error message using the global logger
func Error(message string, prefix string) {
	Get().Error(message, prefix)
}

// Warn logs a warning message using the global logger
func Warn(message string, prefix string) {
	Get().Warn(message, prefix)
}

// Success logs a success message using the global logger
func Success(message string, prefix string) {
	Get().Success(message, prefix)
}

// Info logs an info message using the global logger
func Info(message string, prefix string) {
	Get().Info(message, prefix)
}

// Debug logs a debug message using the global logger
func Debug(message string, prefix string) {
	Get().Debug(message, prefix)
}

// System logs a system message using the global logger
func System(message string, prefix string) {
	Get().System(message, prefix)
}

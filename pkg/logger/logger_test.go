package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestNewLogger(t *testing.T) {
	l := NewLogger("", "")
	if l == nil {
		t.Fatal("Expected logger to be created, got nil")
	}
	l.SetOutput(&bytes.Buffer{})

	l.Info("Test info message", "TEST")
	l.Warn("Test warning message", "TEST")
	l.Debug("Test debug message", "TEST")
	l.System("Test system message", "TEST")
	l.Success("Test success message", "TEST")

	l.Close()
}

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LevelCritical, "CRITICAL"},
		{LevelError, "ERROR"},
		{LevelWarn, "WARN"},
		{LevelSuccess, "SUCCESS"},
		{LevelInfo, "INFO"},
		{LevelDebug, "DEBUG"},
		{LevelSystem, "SYSTEM"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.level.String(); got != tt.expected {
				t.Errorf("LogLevel.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestLogLevelDiscordColor(t *testing.T) {
	tests := []struct {
		level LogLevel
		color int
	}{
		{LevelCritical, 0xFF0000},
		{LevelError, 0xFF0000},
		{LevelWarn, 0xFFFF00},
		{LevelSuccess, 0x00FF00},
		{LevelInfo, 0x0000FF},
		{LevelDebug, 0x800080},
		{LevelSystem, 0x808080},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			if got := tt.level.DiscordColor(); got != tt.color {
				t.Errorf("LogLevel.DiscordColor() = %v, want %v", got, tt.color)
			}
		})
	}
}

func TestConsoleFormat(t *testing.T) {
	f := &consoleFormatter{}
	entry := &logrus.Entry{
		Time:    time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC),
		Message: "Conectado",
		Data:    logrus.Fields{fieldLevel: LevelSuccess, fieldPrefix: "DB"},
	}

	out, err := f.Format(entry)
	if err != nil {
		t.Fatalf("Format() returned error: %v", err)
	}

	want := "[2024-05-01 10:30:00] [SUCCESS] [DB]: Conectado\n"
	if string(out) != want {
		t.Errorf("Format() = %q, want %q", string(out), want)
	}
}

func TestConsoleOutputCarriesPrefix(t *testing.T) {
	l := NewLogger("", "")
	defer l.Close()

	var buf bytes.Buffer
	l.SetOutput(&buf)
	l.System("Iniciando", "Main")

	line := buf.String()
	if !strings.Contains(line, "SYSTEM") || !strings.Contains(line, "[Main]: Iniciando") {
		t.Errorf("console line = %q, want SYSTEM level and Main prefix", line)
	}
}

func TestErrorLogOnlyReceivesErrors(t *testing.T) {
	os.RemoveAll(filepath.Join(".", "logs"))

	l := NewLogger("", "")
	l.SetOutput(&bytes.Buffer{})
	l.Info("solo combinado", "TEST")
	l.Error("tambien en errores", "TEST")
	l.Close()

	errorsLog, err := os.ReadFile(filepath.Join("logs", "error.log"))
	if err != nil {
		t.Fatalf("reading error.log: %v", err)
	}
	if strings.Contains(string(errorsLog), "solo combinado") {
		t.Error("info entry should not be written to error.log")
	}
	if !strings.Contains(string(errorsLog), "tambien en errores") {
		t.Error("error entry should be written to error.log")
	}

	combined, err := os.ReadFile(filepath.Join("logs", "combined.log"))
	if err != nil {
		t.Fatalf("reading combined.log: %v", err)
	}
	if !strings.Contains(string(combined), "solo combinado") || !strings.Contains(string(combined), "tambien en errores") {
		t.Error("combined.log should contain both entries")
	}
}

func TestGlobalLoggerInit(t *testing.T) {
	logger = nil
	once = sync.Once{}

	l := Init("", "")
	if l == nil {
		t.Fatal("Expected Init to return a logger")
	}

	l2 := Init("different", "different")
	if l != l2 {
		t.Error("Expected Init to return the same logger on subsequent calls")
	}

	if l3 := Get(); l != l3 {
		t.Error("Expected Get to return the same logger")
	}

	l.Close()
}

package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"testing"
	"time"
)

func TestLevelString(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{TraceLevel, "TRACE"},
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
		{Level(999), "UNKNOWN"},
	}

	for _, test := range tests {
		if result := test.level.String(); result != test.expected {
			t.Errorf("Level.String() = %v, expected %v", result, test.expected)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"trace":   TraceLevel,
		"DEBUG":   DebugLevel,
		" info ":  InfoLevel,
		"warning": WarnLevel,
		"error":   ErrorLevel,
		"bogus":   InfoLevel,
		"":        InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, expected %v", in, got, want)
		}
	}
}

func TestInitializeDefaultsComponent(t *testing.T) {
	var buf bytes.Buffer
	if err := Initialize(Config{Level: InfoLevel, Output: &buf}); err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}
	if defaultLogger.config.Component != "affiance" {
		t.Errorf("expected default component affiance, got %q", defaultLogger.config.Component)
	}

	Info("hello")
	if !strings.Contains(buf.String(), "affiance: hello") {
		t.Errorf("expected component prefix in output, got %q", buf.String())
	}
}

func TestLoggerPrettyFormattingKeepsFieldOrder(t *testing.T) {
	var buf bytes.Buffer
	l := &Logger{
		config: Config{Level: InfoLevel, Component: "test"},
		logger: log.New(&buf, "", 0),
	}

	entry := LogEntry{
		Time:      time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
		Level:     "INFO",
		Message:   "test message",
		Component: "test",
	}
	fields := []Field{String("zeta", "1"), String("alpha", "2")}

	result := l.formatPretty(entry, fields)

	for _, part := range []string{"2025-01-01 12:00:00", "[INFO]", "test:", "test message", "{zeta=1, alpha=2}"} {
		if !strings.Contains(result, part) {
			t.Errorf("formatPretty() result missing expected part: %s\nResult: %s", part, result)
		}
	}
}

func TestLoggerJSONFormatting(t *testing.T) {
	var buf bytes.Buffer
	l := &Logger{
		config: Config{Level: InfoLevel, JSON: true, Component: "test"},
		logger: log.New(&buf, "", 0),
	}

	l.Log(InfoLevel, "test message", String("key", "value"))

	var parsed LogEntry
	if err := json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &parsed); err != nil {
		t.Fatalf("Log() produced invalid JSON: %v\nOutput: %s", err, buf.String())
	}
	if parsed.Message != "test message" {
		t.Errorf("Parsed JSON message = %v, expected 'test message'", parsed.Message)
	}
	if parsed.Fields["key"] != "value" {
		t.Errorf("Parsed JSON fields = %v, expected key=value", parsed.Fields)
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := &Logger{
		config: Config{Level: WarnLevel, Component: "test"},
		logger: log.New(&buf, "", 0),
	}

	l.Log(InfoLevel, "info message")
	l.Log(DebugLevel, "debug message")
	l.Log(WarnLevel, "warn message")
	l.Log(ErrorLevel, "error message")

	output := buf.String()
	if strings.Contains(output, "info message") || strings.Contains(output, "debug message") {
		t.Errorf("lower level messages should be filtered out: %s", output)
	}
	if !strings.Contains(output, "warn message") || !strings.Contains(output, "error message") {
		t.Errorf("WARN and ERROR messages should appear: %s", output)
	}
}

func TestEnabled(t *testing.T) {
	var buf bytes.Buffer
	_ = Initialize(Config{Level: WarnLevel, Output: &buf})
	if Enabled(InfoLevel) {
		t.Error("info should not be enabled at warn level")
	}
	if !Enabled(ErrorLevel) {
		t.Error("error should be enabled at warn level")
	}
}

func TestFieldConstructors(t *testing.T) {
	if f := String("key", "value"); f.Key != "key" || f.Value != "value" {
		t.Errorf("String() = %+v", f)
	}
	if f := Int("count", 42); f.Value != 42 {
		t.Errorf("Int() = %+v", f)
	}
	if f := Bool("enabled", true); f.Value != true {
		t.Errorf("Bool() = %+v", f)
	}
	if f := Strings("hooks", []string{"A", "B"}); f.Value != "A,B" {
		t.Errorf("Strings() = %+v", f)
	}
	if f := Duration("took", 2*time.Second); f.Value != "2s" {
		t.Errorf("Duration() = %+v", f)
	}
}

func TestErrField(t *testing.T) {
	if f := Err(errors.New("test error")); f.Key != "error" || f.Value != "test error" {
		t.Errorf("Err() = %+v", f)
	}
	if f := Err(nil); f.Value != "<nil>" {
		t.Errorf("Err(nil) = %+v", f)
	}
}

func TestSetOutput(t *testing.T) {
	var buf bytes.Buffer
	_ = Initialize(Config{Level: InfoLevel, Component: "test"})
	SetOutput(&buf)

	Info("output test message")

	if !strings.Contains(buf.String(), "output test message") {
		t.Errorf("SetOutput() did not redirect output correctly: %s", buf.String())
	}
}

package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestEvent_WritesNameAndFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Output: &buf, Format: JSON, Service: "sweeper"})

	log.Event("lock_acquired", map[string]any{"lock": "space-cleanup-lock", "holder": "svc"})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	if entry["msg"] != "lock_acquired" {
		t.Errorf("expected msg lock_acquired, got %v", entry["msg"])
	}
	if entry[EVENT] != "lock_acquired" {
		t.Errorf("expected event lock_acquired, got %v", entry[EVENT])
	}
	if entry["lock"] != "space-cleanup-lock" {
		t.Errorf("expected lock field, got %v", entry["lock"])
	}
	if entry[SERVICE] != "sweeper" {
		t.Errorf("expected service attr, got %v", entry[SERVICE])
	}
}

func TestErrorEvent_UsesErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Output: &buf, Format: JSON})

	log.ErrorEvent("cleanup_error", map[string]any{"error": "boom"})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["level"] != "ERROR" {
		t.Errorf("expected ERROR level, got %v", entry["level"])
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_LevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Output: &buf, Level: INFO})

	log.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected debug line to be filtered, got %s", buf.String())
	}
}

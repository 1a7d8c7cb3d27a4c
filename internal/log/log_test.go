package log

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLogger_FileCore(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLogger(dir, "costwatcher", false, false)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	logger.Info("hello from file core")
	if err := logger.Sync(); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "costwatcher.log"))
	if err != nil {
		t.Fatalf("log file not created: %v", err)
	}
	if !strings.Contains(string(data), "hello from file core") {
		t.Errorf("log line not written, got %q", data)
	}
}

func TestNewLogger_FileCoreAppends(t *testing.T) {
	dir := t.TempDir()

	for _, msg := range []string{"first run", "second run"} {
		logger, err := NewLogger(dir, "costwatcher", false, false)
		if err != nil {
			t.Fatalf("NewLogger() error = %v", err)
		}
		logger.Info(msg)
		if err := logger.Sync(); err != nil {
			t.Fatalf("Sync() error = %v", err)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, "costwatcher.log"))
	if err != nil {
		t.Fatalf("log file not created: %v", err)
	}
	if !strings.Contains(string(data), "first run") || !strings.Contains(string(data), "second run") {
		t.Errorf("expected both runs appended, got %q", data)
	}
}

func TestNewLogger_StdoutCore(t *testing.T) {
	logger, err := NewLogger("", "", false, true)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	logger.Info("stdout core works")
}

func TestNewLogger_BadDir(t *testing.T) {
	if _, err := NewLogger("/nonexistent-dir-for-test", "costwatcher", false, false); err == nil {
		t.Fatal("expected error for unwritable log directory")
	}
}

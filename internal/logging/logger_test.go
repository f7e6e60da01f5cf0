package logging_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go-mpd-display/internal/logging"
)

func TestNewWritesToFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "nested", "display.log")

	logger, closeLog, err := logging.New(logging.Options{File: logPath, Level: "info"})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("shown", "subsystem", "player")
	if err := closeLog(); err != nil {
		t.Fatalf("close: %v", err)
	}

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), "hidden") {
		t.Fatal("debug record written at info level")
	}
	if !strings.Contains(string(content), "msg=shown subsystem=player") {
		t.Fatalf("unexpected log content %q", content)
	}
}

func TestNewDebugForcesLevel(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "debug.log")

	logger, closeLog, err := logging.New(logging.Options{File: logPath, Level: "error", Debug: true, Format: "json"})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("trace")
	closeLog()

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), `"msg":"trace"`) {
		t.Fatalf("expected debug record in json, got %q", content)
	}
}

func TestNewWithoutFileDiscards(t *testing.T) {
	logger, closeLog, err := logging.New(logging.Options{})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Error("dropped")
	if err := closeLog(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	_, _, err := logging.New(logging.Options{File: filepath.Join(t.TempDir(), "x.log"), Format: "xml"})
	if err == nil {
		t.Fatal("expected an error for an unknown format")
	}
}

package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWithWriterEmitsJSONAtLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter("warn", &buf)

	logger.Info("dropped")
	logger.Warn("kept", "user", "alice")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["msg"] != "kept" || entry["user"] != "alice" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestNewWithWriterInvalidLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter("verbose", &buf)
	logger.Debug("hidden")
	logger.Info("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("unexpected output: %s", buf.String())
	}
}

func TestNewWithFileWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api.log")
	logger, closer := NewWithFile("info", path)
	logger.Info("to file")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(raw), "to file") {
		t.Fatalf("expected message in file, got %s", raw)
	}
}

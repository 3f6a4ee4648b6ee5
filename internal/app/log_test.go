package app

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestServerHandler(t *testing.T) {
	t.Run("formats tab separated fields", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(&serverHandler{w: &buf})

		logger.Info("upload accepted", "digest", "abc123", "size", 42)

		line := strings.TrimSuffix(buf.String(), "\n")
		fields := strings.Split(line, "\t")
		if len(fields) != 5 {
			t.Fatalf("got %d fields (%q), want 5", len(fields), line)
		}
		if fields[1] != "INFO" {
			t.Errorf("level = %s, want INFO", fields[1])
		}
		if fields[2] != "upload accepted" {
			t.Errorf("message = %s, want upload accepted", fields[2])
		}
		if fields[3] != "digest=abc123" || fields[4] != "size=42" {
			t.Errorf("attrs = %v, want digest=abc123 size=42", fields[3:])
		}
	})

	t.Run("carries WithAttrs context", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(&serverHandler{w: &buf}).With("component", "ingest")

		logger.Warn("spool full")

		if !strings.Contains(buf.String(), "\tcomponent=ingest") {
			t.Errorf("output %q missing component attr", buf.String())
		}
	})
}

func TestNewLogger(t *testing.T) {
	dir := t.TempDir()

	logger, f, err := newLogger(dir)
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	defer f.Close()

	if logger == nil {
		t.Fatal("logger is nil")
	}
	if !strings.HasSuffix(f.Name(), "server.log") {
		t.Errorf("log file = %s, want server.log", f.Name())
	}
}

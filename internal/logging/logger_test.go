package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	if _, err := NewLogger("loud", false); err == nil {
		t.Fatal("expected error for unknown level")
	}
	if _, err := NewLogger("debug", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoggerSplitsByLevel(t *testing.T) {
	var stdout, stderr bytes.Buffer
	log := newLogger(zapcore.InfoLevel, true, zapcore.AddSync(&stdout), zapcore.AddSync(&stderr))

	log.Debug("hidden")
	log.Info("ranked", RunFields(RunEntry{TriggerType: "cli", N: 2, EntityCount: 3, Duration: time.Millisecond, Outcome: OutcomeOK})...)
	log.Error("failed", zap.String("reason", "boom"))
	log.Sync()

	if strings.Contains(stdout.String(), "hidden") {
		t.Fatal("debug entry should be filtered at info level")
	}
	if strings.Contains(stdout.String(), "failed") {
		t.Fatal("error entry should not go to stdout")
	}
	if !strings.Contains(stderr.String(), "failed") {
		t.Fatalf("expected error entry on stderr, got %q", stderr.String())
	}

	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &entry); err != nil {
		t.Fatalf("expected one JSON line on stdout: %v (%q)", err, stdout.String())
	}
	if entry["msg"] != "ranked" || entry["trigger"] != "cli" || entry["n"] != float64(2) {
		t.Fatalf("unexpected entry %v", entry)
	}
	if _, ok := entry["run_id"]; ok {
		t.Fatal("run_id should be omitted when empty")
	}
}

func TestRunFieldsOptional(t *testing.T) {
	fields := RunFields(RunEntry{RunID: "r", Dataset: "d", Reason: "why"})
	if len(fields) != 8 {
		t.Fatalf("expected 8 fields, got %d", len(fields))
	}
}

package alert

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogAlerter_WritesStructuredError(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	LogAlerter{}.Alert(context.Background(), Alert{
		Title:    "challenge failed",
		Severity: SeverityCritical,
		Fields:   map[string]string{"hash": "0xabc"},
		Err:      errors.New("reverted"),
	})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("Expected 1 log entry, got %d", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["hash"] != "0xabc" {
		t.Errorf("Expected hash field 0xabc, got %v", ctx["hash"])
	}
	if ctx["severity"] != SeverityCritical {
		t.Errorf("Expected severity %s, got %v", SeverityCritical, ctx["severity"])
	}
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	r.Alert(context.Background(), Alert{Title: "one"})
	r.Alert(context.Background(), Alert{Title: "two"})

	alerts := r.Alerts()
	if len(alerts) != 2 || alerts[1].Title != "two" {
		t.Errorf("Expected two recorded alerts, got %+v", alerts)
	}
}

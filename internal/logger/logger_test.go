package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_Production(t *testing.T) {
	log, err := New(false)
	if err != nil {
		t.Fatalf("New(false): %v", err)
	}
	if log == nil {
		t.Fatal("expected non-nil logger")
	}
	_ = log.Sync()
}

func TestNew_Development(t *testing.T) {
	log, err := New(true)
	if err != nil {
		t.Fatalf("New(true): %v", err)
	}
	log.Debug("debug output enabled")
	_ = log.Sync()
}

func TestMust(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("Must panicked: %v", r)
		}
	}()
	if Must(false) == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestWithRun(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := WithRun(zap.New(core), "run-123")

	log.Info("hello")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["run_id"] != "run-123" {
		t.Errorf("run_id = %v, want run-123", fields["run_id"])
	}
}

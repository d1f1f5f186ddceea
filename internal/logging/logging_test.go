package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	logger, err := New("info", FormatJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if logger == nil {
		t.Fatalf("expected logger instance")
	}
	_ = logger.Sync()
}

func TestNew_Level(t *testing.T) {
	logger, err := New("warn", FormatConsole)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if logger.Core().Enabled(zapcore.DebugLevel) {
		t.Errorf("debug should be disabled at warn level")
	}
	if !logger.Core().Enabled(zapcore.ErrorLevel) {
		t.Errorf("error should be enabled at warn level")
	}
}

func TestNew_Invalid(t *testing.T) {
	if _, err := New("loud", FormatJSON); err == nil {
		t.Errorf("expected error for unknown level")
	}
	if _, err := New("info", "xml"); err == nil {
		t.Errorf("expected error for unknown format")
	}
}

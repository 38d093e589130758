package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
)

func TestNewJSONTo_RenamesErrorKey(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONTo(&buf, slog.LevelInfo)
	logger.Info("save failed", "error", errors.New("disk full"))
	logger.Debug("hidden")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected a single JSON record, got %q: %v", buf.String(), err)
	}
	if rec["err"] != "disk full" {
		t.Errorf("expected err key, got %v", rec)
	}
	if _, ok := rec["error"]; ok {
		t.Errorf("error key should have been renamed: %v", rec)
	}
}

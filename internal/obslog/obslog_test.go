package obslog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{" WARN ", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"loud", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v; want %v", tt.in, got, tt.want)
		}
	}
	if ValidLevel("loud") {
		t.Error("ValidLevel(loud) = true")
	}
}

func TestInitWritesFile(t *testing.T) {
	defer Set(nil)

	path := filepath.Join(t.TempDir(), "logs", "chess.log")
	logger, err := Init(Options{Level: "info", Format: "json", File: path})
	if err != nil {
		t.Fatal(err)
	}
	if L() != logger {
		t.Error("Init did not install the global logger")
	}

	L().Debug("hidden")
	L().Info("move applied", zap.String("game_id", "g1"))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if !strings.Contains(out, `"msg":"move applied"`) || !strings.Contains(out, `"game_id":"g1"`) {
		t.Errorf("log file = %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Error("debug entry written at info level")
	}
}

func TestSetNil(t *testing.T) {
	Set(nil)
	if L() == nil {
		t.Fatal("L() = nil")
	}
	L().Info("discarded")
}

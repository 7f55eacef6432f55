package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewCLIRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewCLI(&buf, slog.LevelWarn)

	logger.Debug("hidden debug")
	logger.Info("hidden info")
	logger.Warn("visible warn")
	logger.Error("visible error")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("expected debug/info suppressed at WARN level, got: %s", out)
	}
	if !strings.Contains(out, "visible warn") || !strings.Contains(out, "visible error") {
		t.Errorf("expected warn and error entries, got: %s", out)
	}
}

func TestWithAddsContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewCLI(&buf, slog.LevelDebug).With("component", "detector")

	logger.Debug("branch taken", "commit_changed", true)

	out := buf.String()
	if !strings.Contains(out, "component=detector") {
		t.Errorf("expected component attribute in output, got: %s", out)
	}
	if !strings.Contains(out, "commit_changed=true") {
		t.Errorf("expected call attribute in output, got: %s", out)
	}
}

func TestSetDefault(t *testing.T) {
	orig := Default()
	defer SetDefault(orig)

	var buf bytes.Buffer
	SetDefault(NewCLI(&buf, slog.LevelInfo))
	Default().Info("through default")

	if !strings.Contains(buf.String(), "through default") {
		t.Errorf("expected default logger to receive entry, got: %s", buf.String())
	}
}

func TestNoopDiscards(t *testing.T) {
	// Must not panic and must accept With chaining.
	l := NewNoop().With("k", "v")
	l.Debug("x")
	l.Error("y")
}

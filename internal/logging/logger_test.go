package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewHandler_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, "info", "json"))

	logger.Debug("hidden")
	logger.Info("import finished", "ok", 3)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug entry written at info level: %s", out)
	}
	if !strings.Contains(out, `"msg":"import finished"`) || !strings.Contains(out, `"ok":3`) {
		t.Errorf("unexpected json output: %s", out)
	}
}

func TestFromContext_RequestID(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(NewHandler(&buf, "info", "text")))
	t.Cleanup(func() { slog.SetDefault(prev) })

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-42")
	FromContext(ctx).Info("hello")

	if !strings.Contains(buf.String(), "request_id=req-42") {
		t.Errorf("expected request_id in output: %s", buf.String())
	}
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	runLogger := slog.New(NewHandler(&buf, "debug", "text")).With("run_id", "r1")

	ctx := WithLogger(context.Background(), runLogger)
	WithFields(ctx, "batch", 2).Debug("batch done")

	out := buf.String()
	if !strings.Contains(out, "run_id=r1") || !strings.Contains(out, "batch=2") {
		t.Errorf("expected run fields in output: %s", out)
	}
}

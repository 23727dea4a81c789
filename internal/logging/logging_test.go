package logging

import (
	"context"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Leveler
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tc := range cases {
		if got := parseLevel(tc.in); got != tc.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestMissionIDContext(t *testing.T) {
	ctx := context.Background()
	if got := MissionIDFromContext(ctx); got != "" {
		t.Fatalf("empty context returned %q", got)
	}

	ctx, log := WithMissionLogger(ctx, Noop(), "run-42")
	if log == nil {
		t.Fatalf("WithMissionLogger returned nil logger")
	}
	if got := MissionIDFromContext(ctx); got != "run-42" {
		t.Fatalf("mission id = %q, want run-42", got)
	}
}

func TestNoopLoggerIsSafe(t *testing.T) {
	log := Noop().With(String("k", "v"))
	log.Debug(context.Background(), "dropped")
	log.Error(context.Background(), "dropped", Int("n", 1), Float("f", 1.5), Any("a", nil))
}

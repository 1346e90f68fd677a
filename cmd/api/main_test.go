package main

import (
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestRedactURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"empty", "", ""},
		{"no credentials", "redis://localhost:6379/0", "redis://localhost:6379/0"},
		{"user and password", "postgres://dataroom:s3cret@db:5432/dataroom?sslmode=disable", "postgres://dataroom@db:5432/dataroom?sslmode=disable"},
		{"password only", "redis://:s3cret@cache:6379", "redis://redacted@cache:6379"},
		{"unparseable", "postgres://%zz", "[redacted]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := redactURL(tt.raw); got != tt.want {
				t.Errorf("redactURL(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestSanitizeError(t *testing.T) {
	t.Parallel()

	dsn := "postgres://dataroom:s3cret@db:5432/dataroom"

	tests := []struct {
		name    string
		err     error
		secrets []string
		want    string
	}{
		{"nil", nil, nil, ""},
		{"url replaced", errors.New("dial " + dsn + ": refused"), []string{dsn}, "dial postgres://dataroom@db:5432/dataroom: refused"},
		{"password pair", errors.New("connect host=db Password=hunter2 user=x"), nil, "connect host=db password=redacted user=x"},
		{"empty secret skipped", errors.New("timeout"), []string{""}, "timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := sanitizeError(tt.err, tt.secrets...)
			if got != tt.want {
				t.Errorf("sanitizeError() = %q, want %q", got, tt.want)
			}
			if strings.Contains(got, "s3cret") || strings.Contains(got, "hunter2") {
				t.Errorf("secret leaked: %q", got)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

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
		if got := parseLogLevel(tt.in); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

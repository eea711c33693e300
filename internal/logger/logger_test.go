package logger

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContext(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	scoped := zap.New(core).With(zap.String("request_id", "req-1"))
	fallback := zap.NewNop()

	ctx := WithContext(context.Background(), scoped)
	FromContext(ctx, fallback).Info("hello")

	if logs.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", logs.Len())
	}
	if got := logs.All()[0].ContextMap()["request_id"]; got != "req-1" {
		t.Errorf("request_id = %v", got)
	}

	if FromContext(context.Background(), fallback) != fallback {
		t.Errorf("expected fallback logger when ctx carries none")
	}
	if FromContext(context.Background(), nil) == nil {
		t.Errorf("expected a no-op logger, got nil")
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := New(Options{Level: "loud"}); err == nil {
		t.Fatalf("expected an error for an unknown level")
	}
}

func TestNewWritesFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l, err := New(Options{Env: "prod", Level: "info", File: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Info("file sink check", zap.Int64("account_id", 3))
	_ = l.Sync()

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(b), `"account_id":3`) {
		t.Errorf("log file missing structured field: %s", b)
	}
}

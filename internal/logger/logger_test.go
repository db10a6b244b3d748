package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		env     string
		level   string
		wantErr bool
	}{
		{"prod", "", false},
		{"local", "debug", false},
		{"dev", "info", false},
		{"docker", "", false},
		{"staging", "", true},
		{"local", "loud", true},
	}
	for _, tt := range tests {
		l, err := NewLogger(tt.env, tt.level)
		if (err != nil) != tt.wantErr {
			t.Errorf("NewLogger(%q, %q) error = %v, wantErr %v", tt.env, tt.level, err, tt.wantErr)
			continue
		}
		if err == nil && l == nil {
			t.Errorf("NewLogger(%q, %q) returned nil logger", tt.env, tt.level)
		}
	}
}

func TestNewLogger_LevelOverride(t *testing.T) {
	l, err := NewLogger("prod", "debug")
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if !l.Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug override not applied to prod logger")
	}
}

func TestFromContext(t *testing.T) {
	base := zap.NewNop()
	ctx := ContextWithLogger(context.Background(), base)
	if FromContext(ctx) != base {
		t.Error("stored logger not returned")
	}
	if FromContext(context.Background()) == nil {
		t.Error("missing logger must yield a no-op logger, not nil")
	}
}

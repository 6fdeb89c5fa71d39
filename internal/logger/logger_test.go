package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestGetLogger_DefaultsToNop(t *testing.T) {
	if GetLogger() == nil {
		t.Fatal("GetLogger() returned nil before InitLogger")
	}
}

func TestFromContext(t *testing.T) {
	if got := FromContext(context.Background()); got != GetLogger() {
		t.Error("FromContext without logger should return the global logger")
	}

	l := zap.NewExample()
	ctx := WithContext(context.Background(), l)
	if got := FromContext(ctx); got != l {
		t.Error("FromContext did not return the stored logger")
	}
}

func TestInitLogger(t *testing.T) {
	prev := GetLogger()
	t.Cleanup(func() { log = prev })

	if err := InitLogger(&LogConfig{Level: "debug", Environment: "development", ServiceName: "test"}); err != nil {
		t.Fatalf("InitLogger() error = %v", err)
	}
	if !GetLogger().Core().Enabled(zap.DebugLevel) {
		t.Error("debug level should be enabled")
	}

	if err := InitLogger(&LogConfig{Level: "bogus", Environment: "production"}); err != nil {
		t.Fatalf("InitLogger() error = %v", err)
	}
	if GetLogger().Core().Enabled(zap.DebugLevel) {
		t.Error("unknown level should fall back to info")
	}
}

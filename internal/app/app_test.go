package app

import (
	"context"
	"errors"
	"testing"

	"github.com/cdelab/curator/internal/config"
	"github.com/cdelab/curator/internal/log"
)

func TestApp_Close(t *testing.T) {
	tests := []struct {
		name     string
		setupApp func() *App
	}{
		{
			name: "close with cleanup functions",
			setupApp: func() *App {
				return &App{
					Logger:      log.NewNop(),
					dbCleanup:   func() {},
					otelCleanup: func() {},
				}
			},
		},
		{
			name: "close with nil cleanup functions",
			setupApp: func() *App {
				return &App{Logger: log.NewNop()}
			},
		},
		{
			name: "close minimal app",
			setupApp: func() *App {
				return &App{}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := tt.setupApp()
			if err := app.Close(); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestApp_Close_RunsCleanupsOnce(t *testing.T) {
	dbCalls := 0
	otelCalls := 0
	app := &App{
		Logger:      log.NewNop(),
		dbCleanup:   func() { dbCalls++ },
		otelCleanup: func() { otelCalls++ },
	}

	if err := app.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := app.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	if dbCalls != 1 {
		t.Errorf("dbCleanup ran %d times, want 1", dbCalls)
	}
	if otelCalls != 1 {
		t.Errorf("otelCleanup ran %d times, want 1", otelCalls)
	}
}

func TestNew_NilConfig(t *testing.T) {
	_, err := New(context.Background(), nil, log.NewNop())
	if !errors.Is(err, config.ErrConfigNil) {
		t.Errorf("expected ErrConfigNil, got %v", err)
	}
}

func TestNewStorage_NilConfig(t *testing.T) {
	_, err := NewStorage(context.Background(), nil, log.NewNop())
	if !errors.Is(err, config.ErrConfigNil) {
		t.Errorf("expected ErrConfigNil, got %v", err)
	}
}

func TestNew_InvalidProvider(t *testing.T) {
	cfg := &config.Config{Provider: "banana"}

	_, err := New(context.Background(), cfg, log.NewNop())
	if !errors.Is(err, config.ErrInvalidProvider) {
		t.Errorf("expected ErrInvalidProvider, got %v", err)
	}
}

func TestNew_MissingAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	cfg := &config.Config{Provider: config.ProviderGemini}

	_, err := New(context.Background(), cfg, log.NewNop())
	if !errors.Is(err, config.ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}
}

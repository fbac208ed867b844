package config

import (
	"errors"
	"testing"
)

// validBaseConfig returns a Config with all required fields set.
func validBaseConfig() *Config {
	return &Config{
		Provider:         ProviderGemini,
		ModelName:        "gemini-2.5-flash",
		Temperature:      0.1,
		MaxTokens:        4096,
		EmbedderModel:    DefaultEmbedderModel,
		SearchLimit:      DefaultSearchLimit,
		PostgresHost:     "localhost",
		PostgresPort:     5432,
		PostgresUser:     "curator",
		PostgresPassword: "test_password",
		PostgresDBName:   "curator",
		PostgresSSLMode:  "disable",
	}
}

func TestValidateSuccess(t *testing.T) {
	cfg := validBaseConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() unexpected error with valid config: %v", err)
	}
}

func TestValidateNilConfig(t *testing.T) {
	var cfg *Config
	if err := cfg.Validate(); !errors.Is(err, ErrConfigNil) {
		t.Errorf("Validate() on nil = %v, want ErrConfigNil", err)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "empty model name",
			mutate:  func(c *Config) { c.ModelName = "" },
			wantErr: ErrInvalidModelName,
		},
		{
			name:    "temperature too high",
			mutate:  func(c *Config) { c.Temperature = 2.1 },
			wantErr: ErrInvalidTemperature,
		},
		{
			name:    "temperature negative",
			mutate:  func(c *Config) { c.Temperature = -0.1 },
			wantErr: ErrInvalidTemperature,
		},
		{
			name:    "zero max tokens",
			mutate:  func(c *Config) { c.MaxTokens = 0 },
			wantErr: ErrInvalidMaxTokens,
		},
		{
			name:    "empty embedder model",
			mutate:  func(c *Config) { c.EmbedderModel = "" },
			wantErr: ErrInvalidEmbedderModel,
		},
		{
			name:    "zero search limit",
			mutate:  func(c *Config) { c.SearchLimit = 0 },
			wantErr: ErrInvalidSearchLimit,
		},
		{
			name:    "oversized search limit",
			mutate:  func(c *Config) { c.SearchLimit = 5000 },
			wantErr: ErrInvalidSearchLimit,
		},
		{
			name:    "empty postgres host",
			mutate:  func(c *Config) { c.PostgresHost = "" },
			wantErr: ErrInvalidPostgresHost,
		},
		{
			name:    "postgres port out of range",
			mutate:  func(c *Config) { c.PostgresPort = 70000 },
			wantErr: ErrInvalidPostgresPort,
		},
		{
			name:    "empty postgres db name",
			mutate:  func(c *Config) { c.PostgresDBName = "" },
			wantErr: ErrInvalidPostgresDBName,
		},
		{
			name:    "empty postgres password",
			mutate:  func(c *Config) { c.PostgresPassword = "" },
			wantErr: ErrInvalidPostgresPassword,
		},
		{
			name:    "short postgres password",
			mutate:  func(c *Config) { c.PostgresPassword = "short" },
			wantErr: ErrInvalidPostgresPassword,
		},
		{
			name:    "deprecated ssl mode",
			mutate:  func(c *Config) { c.PostgresSSLMode = "prefer" },
			wantErr: ErrInvalidPostgresSSLMode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validBaseConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateAI(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T, c *Config)
		wantErr error
	}{
		{
			name: "gemini with key",
			setup: func(t *testing.T, c *Config) {
				t.Setenv("GEMINI_API_KEY", "test-api-key")
			},
		},
		{
			name: "gemini missing key",
			setup: func(t *testing.T, c *Config) {
				t.Setenv("GEMINI_API_KEY", "")
			},
			wantErr: ErrMissingAPIKey,
		},
		{
			name: "openai missing key",
			setup: func(t *testing.T, c *Config) {
				c.Provider = ProviderOpenAI
				t.Setenv("OPENAI_API_KEY", "")
			},
			wantErr: ErrMissingAPIKey,
		},
		{
			name: "ollama needs no key",
			setup: func(t *testing.T, c *Config) {
				c.Provider = ProviderOllama
				c.OllamaHost = "http://localhost:11434"
			},
		},
		{
			name: "ollama empty host",
			setup: func(t *testing.T, c *Config) {
				c.Provider = ProviderOllama
				c.OllamaHost = ""
			},
			wantErr: ErrInvalidOllamaHost,
		},
		{
			name: "unsupported provider",
			setup: func(t *testing.T, c *Config) {
				c.Provider = "anthropic"
			},
			wantErr: ErrInvalidProvider,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validBaseConfig()
			tt.setup(t, cfg)

			err := cfg.ValidateAI()
			if tt.wantErr == nil && err != nil {
				t.Errorf("ValidateAI() unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateAI() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

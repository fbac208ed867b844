// Package config provides curator's configuration with multi-source
// priority.
//
// Sources (highest to lowest):
//  1. Environment variables (runtime override)
//  2. Config file (~/.curator/config.yaml)
//  3. Defaults (quick start against a local pgvector instance)
//
// Categories:
//   - AI: provider, model, temperature, embedder (used by agents)
//   - Storage: PostgreSQL/pgvector connection (see storage.go)
//   - Search: default hit counts and relevance cutoff
//   - Sources: PubMed E-utilities and web scraping (see sources.go)
//   - Tracing: OTLP span export (see sources.go)
//
// Security: sensitive values (passwords, API keys) are masked in
// MarshalJSON and String; the config directory is created with 0750.
//
// Error handling:
//   - Sentinel errors for checking with errors.Is()
//   - Wrap with context using fmt.Errorf("%w: details", ErrXxx)
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxTokens indicates the max tokens value is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidSearchLimit indicates the search limit is out of range.
	ErrInvalidSearchLimit = errors.New("invalid search limit")

	// ErrInvalidOllamaHost indicates the Ollama host is invalid.
	ErrInvalidOllamaHost = errors.New("invalid Ollama host")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresPassword indicates the PostgreSQL password is invalid.
	ErrInvalidPostgresPassword = errors.New("invalid PostgreSQL password")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderGemini   = "gemini"
	ProviderOllama   = "ollama"
	ProviderOpenAI   = "openai"
	ProviderGoogleAI = "googleai"
)

const (
	// DefaultEmbedderModel is the default Gemini embedding model.
	// gemini-embedding-001 emits 3072 dimensions by default but supports
	// truncation via OutputDimensionality; the pgvector schema stores 768
	// (see store.VectorDimension).
	DefaultEmbedderModel = "gemini-embedding-001"

	// DefaultSearchLimit is the default number of hits for searches and
	// mapping candidate lookups.
	DefaultSearchLimit = 10
)

// Config stores curator configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
// When adding a sensitive field (password, API key, token), update
// MarshalJSON or the nested struct's MarshalJSON.
type Config struct {
	// AI provider and model configuration
	Provider    string  `mapstructure:"provider" json:"provider"`     // "gemini" (default), "ollama", "openai"
	ModelName   string  `mapstructure:"model_name" json:"model_name"` // e.g. "gemini-2.5-flash", "llama3.3", "gpt-4o"
	Temperature float32 `mapstructure:"temperature" json:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens" json:"max_tokens"`

	// Ollama configuration (only used when provider is "ollama")
	OllamaHost string `mapstructure:"ollama_host" json:"ollama_host"`

	// Embedding configuration
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"`

	// Search configuration
	SearchLimit     int     `mapstructure:"search_limit" json:"search_limit"`
	RelevanceFactor float64 `mapstructure:"relevance_factor" json:"relevance_factor"` // minimum similarity, 0 disables the cutoff

	// Storage configuration (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// WorkingDir is the default workspace for evaluation runs. Empty
	// means the task or flag must supply one.
	WorkingDir string `mapstructure:"working_dir" json:"working_dir"`

	// External source configuration (see sources.go)
	PubMed  PubMedConfig  `mapstructure:"pubmed" json:"pubmed"`
	Scraper ScraperConfig `mapstructure:"scraper" json:"scraper"`

	// Tracing configuration (see sources.go)
	Tracing TracingConfig `mapstructure:"tracing" json:"tracing"`
}

// Load loads configuration.
// Priority: environment variables > config file > defaults.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".curator")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // also support current directory

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is not an error; defaults apply.
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL, when set, overrides the individual postgres settings.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	// AI defaults
	viper.SetDefault("provider", ProviderGemini)
	viper.SetDefault("model_name", "gemini-2.5-flash")
	viper.SetDefault("temperature", 0.1)
	viper.SetDefault("max_tokens", 4096)
	viper.SetDefault("ollama_host", "http://localhost:11434")
	viper.SetDefault("embedder_model", DefaultEmbedderModel)

	// Search defaults
	viper.SetDefault("search_limit", DefaultSearchLimit)
	viper.SetDefault("relevance_factor", 0.0)

	// PostgreSQL defaults (matching docker-compose.yml)
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "curator")
	viper.SetDefault("postgres_password", "curator_dev_password")
	viper.SetDefault("postgres_db_name", "curator")
	viper.SetDefault("postgres_ssl_mode", "disable")

	// PubMed defaults
	viper.SetDefault("pubmed.base_url", "https://eutils.ncbi.nlm.nih.gov/entrez/eutils")
	viper.SetDefault("pubmed.retmax", 10)

	// Scraper defaults
	viper.SetDefault("scraper.parallelism", 2)
	viper.SetDefault("scraper.delay_ms", 1000)
	viper.SetDefault("scraper.timeout_ms", 30000)

	// Tracing defaults
	viper.SetDefault("tracing.endpoint", "localhost:4318")
	viper.SetDefault("tracing.environment", "dev")
	viper.SetDefault("tracing.service_name", "curator")
}

// bindEnvVariables binds environment overrides explicitly.
// Secrets stay out of Viper where a SDK reads them directly:
// GEMINI_API_KEY and OPENAI_API_KEY are read by the Genkit plugins and
// only checked for presence in ValidateAI().
func bindEnvVariables() {
	// Helper to panic on unexpected bind errors (hardcoded keys cannot
	// fail; a panic here is a bug, not a runtime error).
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("provider", "CURATOR_PROVIDER")
	mustBind("model_name", "CURATOR_MODEL_NAME")
	mustBind("ollama_host", "CURATOR_OLLAMA_HOST")
	mustBind("embedder_model", "CURATOR_EMBEDDER_MODEL")
	mustBind("working_dir", "CURATOR_WORKING_DIR")

	// NCBI recommends registering a contact address and API key for
	// E-utilities clients; both are optional.
	mustBind("pubmed.api_key", "NCBI_API_KEY")
	mustBind("pubmed.email", "NCBI_EMAIL")

	mustBind("tracing.endpoint", "CURATOR_TRACE_ENDPOINT")
}

// maskedValue is the placeholder for masked sensitive data.
// Full-width blocks avoid substring collisions with real secret
// characters ("****" leaked passwords containing "*").
const maskedValue = "████████"

// maskSecret masks a secret for safe logging: first and last two
// characters survive, everything else is replaced. Secrets of eight or
// fewer characters are fully masked so no substring of the real value
// appears in output.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with sensitive field masking.
//
// Masked fields: PostgresPassword, PubMed.APIKey (via PubMedConfig's
// MarshalJSON).
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}

// FullModelName returns the provider-qualified model name for Genkit.
// Examples: "googleai/gemini-2.5-flash", "ollama/llama3.3",
// "openai/gpt-4o". A ModelName already containing "/" passes through.
func (c *Config) FullModelName() string {
	return c.QualifyModelName(c.ModelName)
}

// QualifyModelName prefixes a bare model name with the configured
// provider's plugin namespace. Names already containing "/" pass
// through unchanged. Evaluation tasks use this to resolve per-task
// model overrides the same way the default model resolves.
func (c *Config) QualifyModelName(name string) string {
	if strings.Contains(name, "/") {
		return name
	}
	switch c.Provider {
	case ProviderOllama:
		return ProviderOllama + "/" + name
	case ProviderOpenAI:
		return ProviderOpenAI + "/" + name
	default:
		return ProviderGoogleAI + "/" + name
	}
}

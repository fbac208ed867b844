package config

import (
	"encoding/json"
	"fmt"
)

// PubMedConfig holds NCBI E-utilities client configuration.
//
// Without an API key NCBI allows 3 requests/second; with one, 10. The
// client enforces the applicable limit (see sources/pubmed).
type PubMedConfig struct {
	// BaseURL is the E-utilities endpoint.
	BaseURL string `mapstructure:"base_url" json:"base_url"`
	// Email identifies the client to NCBI per their usage policy.
	Email string `mapstructure:"email" json:"email"`
	// APIKey raises the NCBI rate limit. SENSITIVE: masked in MarshalJSON.
	APIKey string `mapstructure:"api_key" json:"api_key"`
	// RetMax is the default number of search results to request.
	RetMax int `mapstructure:"retmax" json:"retmax"`
}

// MarshalJSON implements json.Marshaler with sensitive field masking.
func (p PubMedConfig) MarshalJSON() ([]byte, error) {
	type alias PubMedConfig
	a := alias(p)
	a.APIKey = maskSecret(a.APIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal pubmed config: %w", err)
	}
	return data, nil
}

// ScraperConfig holds web page fetching configuration for URL ingestion.
type ScraperConfig struct {
	// Parallelism is the max concurrent requests per domain.
	Parallelism int `mapstructure:"parallelism" json:"parallelism"`
	// DelayMs is the delay between requests in milliseconds.
	DelayMs int `mapstructure:"delay_ms" json:"delay_ms"`
	// TimeoutMs is the per-request timeout in milliseconds.
	TimeoutMs int `mapstructure:"timeout_ms" json:"timeout_ms"`
}

// TracingConfig holds OTLP span export configuration.
//
// Spans are exported to a local OTLP/HTTP collector (see
// internal/observability). Disabled unless Enabled is set.
type TracingConfig struct {
	// Enabled turns span export on.
	Enabled bool `mapstructure:"enabled" json:"enabled"`
	// Endpoint is the OTLP/HTTP collector address (default: localhost:4318).
	Endpoint string `mapstructure:"endpoint" json:"endpoint"`
	// Environment tags exported spans (default: dev).
	Environment string `mapstructure:"environment" json:"environment"`
	// ServiceName names the service in the APM UI (default: curator).
	ServiceName string `mapstructure:"service_name" json:"service_name"`
}

package store

import (
	"time"

	"github.com/cdelab/curator/internal/record"
)

// Metadata describes a collection. All fields are optional; empty values
// are omitted from the stored JSON.
type Metadata struct {
	// ObjectType names the kind of object the collection holds,
	// e.g. "OntologyClass" or "Variable".
	ObjectType string `json:"object_type,omitempty" yaml:"object_type,omitempty"`

	// Description is a free-text description of the collection.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// ModelName records which model produced the collection's contents,
	// when the collection was generated rather than ingested.
	ModelName string `json:"model_name,omitempty" yaml:"model_name,omitempty"`
}

// CollectionInfo summarizes one collection for listings.
type CollectionInfo struct {
	Name      string    `json:"name" yaml:"name"`
	Metadata  Metadata  `json:"metadata" yaml:"metadata"`
	Count     int       `json:"count" yaml:"count"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// ScoredRecord is a search hit: the stored object plus its cosine
// similarity to the query, in [0,1] with 1 meaning identical direction.
type ScoredRecord struct {
	ID     string
	Score  float64
	Record *record.Record
}

// SearchOption configures vector search using the functional options pattern.
type SearchOption func(*searchConfig)

// searchConfig holds internal search configuration.
type searchConfig struct {
	limit    int
	minScore float64
}

// WithLimit sets the maximum number of results to return.
// Default is DefaultSearchLimit if not specified.
func WithLimit(n int) SearchOption {
	return func(c *searchConfig) {
		c.limit = n
	}
}

// WithMinScore drops results whose similarity falls below the threshold.
// The default of 0 admits every non-negative similarity.
func WithMinScore(s float64) SearchOption {
	return func(c *searchConfig) {
		c.minScore = s
	}
}

// buildSearchConfig applies search options and returns the final configuration.
func buildSearchConfig(opts []SearchOption) *searchConfig {
	cfg := &searchConfig{
		limit:    DefaultSearchLimit,
		minScore: 0,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.limit <= 0 {
		cfg.limit = DefaultSearchLimit
	}
	if cfg.limit > MaxSearchLimit {
		cfg.limit = MaxSearchLimit
	}
	return cfg
}

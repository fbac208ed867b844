// Package agent implements the model-backed curation operations:
// retrieval-augmented object completion, structured extraction from free
// text, concept recognition over passages, grounded question answering,
// and multi-object summarization.
//
// Every operation follows the same retrieval pattern: embed the input,
// pull the nearest records from a collection, and place their canonical
// YAML in the prompt as few-shot guidance. The model's output is parsed
// back into records, so malformed output surfaces as an error instead of
// leaking downstream.
//
// Agent is stateless and all configuration is captured immutably at
// construction, so a single Agent is safe for concurrent use.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/cdelab/curator/internal/llm"
	"github.com/cdelab/curator/internal/log"
	"github.com/cdelab/curator/internal/rag"
	"github.com/cdelab/curator/internal/record"
	"github.com/cdelab/curator/internal/store"
)

// DefaultExamples is how many retrieved records guide a completion or
// extraction when the caller does not choose a count.
const DefaultExamples = 10

// Config contains all required parameters for the agent.
type Config struct {
	Genkit *genkit.Genkit
	Store  *store.Store
	LLM    *llm.Client
	Logger log.Logger
}

// validate checks that all required parameters are present.
func (cfg Config) validate() error {
	if cfg.Genkit == nil {
		return errors.New("genkit instance is required")
	}
	if cfg.Store == nil {
		return errors.New("store is required")
	}
	if cfg.LLM == nil {
		return errors.New("llm client is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Agent runs curation operations against collections in the store.
type Agent struct {
	g      *genkit.Genkit
	store  *store.Store
	llm    *llm.Client
	logger log.Logger

	// Genkit retrievers are registered by name once per collection and
	// cached for reuse.
	mu         sync.Mutex
	rag        *rag.Retriever
	retrievers map[string]ai.Retriever
}

// New creates an agent over the given store and generation client.
func New(cfg Config) (*Agent, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Agent{
		g:          cfg.Genkit,
		store:      cfg.Store,
		llm:        cfg.LLM,
		logger:     cfg.Logger,
		rag:        rag.New(cfg.Store),
		retrievers: make(map[string]ai.Retriever),
	}, nil
}

// retrieverFor returns the Genkit retriever bound to the collection,
// defining it on first use.
func (a *Agent) retrieverFor(collection string) ai.Retriever {
	a.mu.Lock()
	defer a.mu.Unlock()
	if r, ok := a.retrievers[collection]; ok {
		return r
	}
	r := a.rag.Define(a.g, collection)
	a.retrievers[collection] = r
	return r
}

// examples retrieves up to k records similar to the query text for
// few-shot prompting.
func (a *Agent) examples(ctx context.Context, collection, query string, k int) ([]store.ScoredRecord, error) {
	if k <= 0 {
		k = DefaultExamples
	}
	hits, err := a.store.Search(ctx, collection, query, store.WithLimit(k))
	if err != nil {
		return nil, fmt.Errorf("retrieving examples from %q: %w", collection, err)
	}
	return hits, nil
}

// renderExamples lays retrieved records out as YAML blocks the model can
// imitate.
func renderExamples(hits []store.ScoredRecord) (string, error) {
	var b strings.Builder
	for _, hit := range hits {
		doc, err := hit.Record.YAML()
		if err != nil {
			return "", fmt.Errorf("rendering example %q: %w", hit.Record.ID(), err)
		}
		b.WriteString("## Example\n")
		b.WriteString(strings.TrimSpace(doc))
		b.WriteString("\n\n")
	}
	return b.String(), nil
}

// parseObject parses a model response as a single YAML object, tolerating
// markdown code fences around it.
func parseObject(text string) (*record.Record, error) {
	text = llm.StripCodeFences(text)
	rec, err := record.ParseYAML([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("parsing model output: %w (raw: %q)", err, truncate(text, 200))
	}
	return rec, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

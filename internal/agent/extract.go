package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cdelab/curator/internal/record"
	"github.com/cdelab/curator/internal/store"
)

// extractSystem instructs the model to behave as a structured extractor.
const extractSystem = `You are a curation assistant that extracts structured objects from text.
You are given example objects from the database followed by a passage of text.
Extract ONE object from the passage with the same fields and conventions as the examples.

Rules:
- Respond ONLY with the extracted object as YAML, no commentary
- Use only information stated in or directly implied by the passage
- Omit fields the passage gives no information for`

// ExtractOptions configures an extraction request.
type ExtractOptions struct {
	// Collection supplies the few-shot examples whose shape the
	// extracted object follows.
	Collection string

	// Rules are extra instructions appended to the system prompt.
	Rules []string

	// Examples caps how many retrieved records guide the extraction.
	// Zero or negative uses DefaultExamples.
	Examples int
}

// Extraction is the result of an extraction request.
type Extraction struct {
	// Object is the record extracted from the text.
	Object *record.Record

	// Examples are the retrieved records that guided the extraction.
	Examples []store.ScoredRecord
}

// Extract pulls one structured object out of free text, shaped like the
// records retrieved from the collection.
func (a *Agent) Extract(ctx context.Context, text string, opts ExtractOptions) (*Extraction, error) {
	if opts.Collection == "" {
		return nil, errors.New("collection is required")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("text is required")
	}

	hits, err := a.examples(ctx, opts.Collection, text, opts.Examples)
	if err != nil {
		return nil, err
	}

	examples, err := renderExamples(hits)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString(examples)
	b.WriteString("## Passage\n")
	b.WriteString(text)
	b.WriteString("\n\nExtract one object from the passage.\n")

	a.logger.Debug("extracting object",
		"collection", opts.Collection,
		"examples", len(hits),
		"text_length", len(text))

	out, err := a.llm.GenerateText(ctx, systemWithRules(extractSystem, opts.Rules), b.String())
	if err != nil {
		return nil, fmt.Errorf("extracting object: %w", err)
	}

	obj, err := parseObject(out)
	if err != nil {
		return nil, err
	}
	return &Extraction{Object: obj, Examples: hits}, nil
}

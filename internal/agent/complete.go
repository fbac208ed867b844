package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cdelab/curator/internal/record"
	"github.com/cdelab/curator/internal/store"
)

// DefaultQueryProperty is the field a bare-string completion query is
// wrapped in when the caller does not name one.
const DefaultQueryProperty = "label"

// completeSystem instructs the model to behave as an object completer.
const completeSystem = `You are a curation assistant that completes database objects.
You are given example objects from the database followed by a partial object.
Fill in the missing fields of the partial object so it is consistent with the examples.

Rules:
- Respond ONLY with the completed object as YAML, no commentary
- Keep every field the partial object already has, with its value unchanged
- Invent values only in the style and vocabulary of the examples`

// CompleteOptions configures a completion request.
type CompleteOptions struct {
	// Collection supplies the few-shot examples.
	Collection string

	// FieldsToPredict restricts which missing fields the model is asked
	// to fill. Empty means complete the whole object.
	FieldsToPredict []string

	// Rules are extra instructions appended to the system prompt.
	Rules []string

	// Examples caps how many retrieved records guide the completion.
	// Zero or negative uses DefaultExamples.
	Examples int

	// GenerateBackground first asks the model for a background paragraph
	// about the query and feeds it into the completion prompt. Slower,
	// but helps when the collection alone is thin on context.
	GenerateBackground bool
}

// Completion is the result of a completion request.
type Completion struct {
	// Object is the completed record.
	Object *record.Record

	// Background is the generated background paragraph, when requested.
	Background string

	// Examples are the retrieved records that guided the completion.
	Examples []store.ScoredRecord
}

// ParseQuery turns a completion query string into a seed record. A query
// containing ":" is parsed as YAML; anything else becomes a single-field
// record under property (DefaultQueryProperty when empty).
func ParseQuery(query, property string) (*record.Record, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("empty query")
	}
	if strings.Contains(query, ":") {
		rec, err := record.ParseYAML([]byte(query))
		if err != nil {
			return nil, fmt.Errorf("parsing query as YAML: %w", err)
		}
		return rec, nil
	}
	if property == "" {
		property = DefaultQueryProperty
	}
	rec := record.New()
	rec.Set(property, record.String(query))
	return rec, nil
}

// Complete fills in the missing fields of a partial record using
// examples retrieved from the collection.
func (a *Agent) Complete(ctx context.Context, seed *record.Record, opts CompleteOptions) (*Completion, error) {
	if opts.Collection == "" {
		return nil, errors.New("collection is required")
	}
	if seed == nil || seed.Len() == 0 {
		return nil, errors.New("seed record is required")
	}

	query := store.RenderText(seed)
	hits, err := a.examples(ctx, opts.Collection, query, opts.Examples)
	if err != nil {
		return nil, err
	}

	var background string
	if opts.GenerateBackground {
		background, err = a.generateBackground(ctx, query)
		if err != nil {
			return nil, err
		}
	}

	prompt, err := completionPrompt(seed, hits, background, opts.FieldsToPredict)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("completing object",
		"collection", opts.Collection,
		"examples", len(hits),
		"background", opts.GenerateBackground)

	text, err := a.llm.GenerateText(ctx, systemWithRules(completeSystem, opts.Rules), prompt)
	if err != nil {
		return nil, fmt.Errorf("completing object: %w", err)
	}

	obj, err := parseObject(text)
	if err != nil {
		return nil, err
	}

	// The model is told to preserve seed fields but is not trusted to.
	for _, key := range seed.Keys() {
		if !obj.Has(key) {
			v, _ := seed.Get(key)
			obj.Set(key, v.Clone())
		}
	}

	return &Completion{Object: obj, Background: background, Examples: hits}, nil
}

// generateBackground asks the model for a short factual paragraph about
// the query before completion.
func (a *Agent) generateBackground(ctx context.Context, query string) (string, error) {
	prompt := fmt.Sprintf("Write a single, concise background paragraph with factual information about the following:\n\n%s", query)
	text, err := a.llm.GenerateText(ctx, "", prompt)
	if err != nil {
		return "", fmt.Errorf("generating background: %w", err)
	}
	return text, nil
}

func completionPrompt(seed *record.Record, hits []store.ScoredRecord, background string, fields []string) (string, error) {
	examples, err := renderExamples(hits)
	if err != nil {
		return "", err
	}
	partial, err := seed.YAML()
	if err != nil {
		return "", fmt.Errorf("rendering partial object: %w", err)
	}

	var b strings.Builder
	b.WriteString(examples)
	if background != "" {
		b.WriteString("## Background\n")
		b.WriteString(background)
		b.WriteString("\n\n")
	}
	b.WriteString("## Partial object\n")
	b.WriteString(strings.TrimSpace(partial))
	b.WriteString("\n\n")
	if len(fields) > 0 {
		fmt.Fprintf(&b, "Complete the partial object, filling in these fields: %s\n", strings.Join(fields, ", "))
	} else {
		b.WriteString("Complete the partial object.\n")
	}
	return b.String(), nil
}

// systemWithRules appends caller-supplied rules to a system prompt.
func systemWithRules(system string, rules []string) string {
	if len(rules) == 0 {
		return system
	}
	var b strings.Builder
	b.WriteString(system)
	b.WriteString("\n\nAdditional rules:\n")
	for _, r := range rules {
		b.WriteString("- ")
		b.WriteString(r)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// Predictor adapts Complete to the per-record prediction contract the
// evaluation runner drives: predict the named fields of a masked record.
type Predictor struct {
	agent *Agent
	opts  CompleteOptions
}

// NewPredictor binds an agent and completion options into a predictor.
// FieldsToPredict in opts is ignored; each Predict call supplies its own.
func NewPredictor(a *Agent, opts CompleteOptions) *Predictor {
	return &Predictor{agent: a, opts: opts}
}

// Predict completes rec and returns the resulting record.
func (p *Predictor) Predict(ctx context.Context, rec *record.Record, fieldsToPredict []string) (*record.Record, error) {
	opts := p.opts
	opts.FieldsToPredict = fieldsToPredict
	res, err := p.agent.Complete(ctx, rec, opts)
	if err != nil {
		return nil, err
	}
	return res.Object, nil
}

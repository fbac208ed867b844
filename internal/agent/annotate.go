package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cdelab/curator/internal/llm"
	"github.com/cdelab/curator/internal/record"
	"github.com/cdelab/curator/internal/store"
)

// DefaultCandidateTerms is how many collection records are offered to
// the model as annotation candidates per passage.
const DefaultCandidateTerms = 20

// Default fields a candidate's identifier and display label are read
// from.
const (
	DefaultIdentifierField = "id"
	DefaultLabelField      = "label"
)

// annotateSystem instructs the model to behave as a concept recognizer.
const annotateSystem = `You are a concept recognition system.
You are given a list of candidate concepts and a passage of text.
Find every mention of a candidate concept in the passage.

Rules:
- Respond ONLY with a YAML list of objects of the form {mention: ..., id: ...}
- The mention is the exact substring of the passage that refers to the concept
- Use only ids from the candidate list
- Respond with an empty list ([]) when nothing matches`

// AnnotateOptions configures a concept recognition request.
type AnnotateOptions struct {
	// Collection holds the concepts to recognize.
	Collection string

	// Prefixes restricts candidates to identifiers with one of these
	// CURIE prefixes (the part before ":").
	Prefixes []string

	// Categories, when set, tells the model to annotate only concepts
	// in these categories.
	Categories []string

	// IdentifierField and LabelField name the record fields candidates
	// are read from. Defaults: "id" and "label".
	IdentifierField string
	LabelField      string

	// CandidateTerms caps how many retrieved concepts are offered as
	// candidates. Zero or negative uses DefaultCandidateTerms.
	CandidateTerms int
}

// Annotation is one recognized concept mention.
type Annotation struct {
	// Mention is the passage substring that refers to the concept.
	Mention string

	// ID and Label identify the matched concept.
	ID    string
	Label string
}

// AnnotatedText is the result of annotating one passage.
type AnnotatedText struct {
	Text        string
	Annotations []Annotation
}

// SplitSentences breaks a passage into sentences for per-sentence
// annotation. Splitting is naive, on ".", which suits the short
// declarative descriptions collections tend to hold.
func SplitSentences(text string) []string {
	var out []string
	for _, s := range strings.Split(text, ".") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Annotate recognizes concepts from the collection mentioned in the
// text. Candidates are retrieved by similarity to the passage; the model
// marks up mentions and every returned id is checked against the
// candidate set, so the result never names a concept the collection does
// not hold.
func (a *Agent) Annotate(ctx context.Context, text string, opts AnnotateOptions) (*AnnotatedText, error) {
	if opts.Collection == "" {
		return nil, errors.New("collection is required")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("text is required")
	}

	idField := opts.IdentifierField
	if idField == "" {
		idField = DefaultIdentifierField
	}
	labelField := opts.LabelField
	if labelField == "" {
		labelField = DefaultLabelField
	}

	limit := opts.CandidateTerms
	if limit <= 0 {
		limit = DefaultCandidateTerms
	}
	hits, err := a.store.Search(ctx, opts.Collection, text, store.WithLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("retrieving candidates from %q: %w", opts.Collection, err)
	}

	labels := make(map[string]string)
	var b strings.Builder
	b.WriteString("## Candidate concepts\n")
	for _, hit := range hits {
		id := fieldOr(hit.Record, idField, hit.Record.ID())
		if id == "" || !hasPrefix(id, opts.Prefixes) {
			continue
		}
		label := fieldOr(hit.Record, labelField, "")
		labels[id] = label
		fmt.Fprintf(&b, "%s: %s\n", id, label)
	}
	if len(labels) == 0 {
		return &AnnotatedText{Text: text}, nil
	}
	b.WriteString("\n## Passage\n")
	b.WriteString(text)
	b.WriteString("\n\nList the concept mentions.\n")

	system := annotateSystem
	if len(opts.Categories) > 0 {
		system += "\n- Annotate only concepts in these categories: " + strings.Join(opts.Categories, ", ")
	}

	a.logger.Debug("annotating passage",
		"collection", opts.Collection,
		"candidates", len(labels),
		"text_length", len(text))

	out, err := a.llm.GenerateText(ctx, system, b.String())
	if err != nil {
		return nil, fmt.Errorf("annotating passage: %w", err)
	}

	anns, dropped, err := parseAnnotations(out, labels)
	if err != nil {
		return nil, err
	}
	for _, id := range dropped {
		a.logger.Debug("dropped annotation outside candidate set", "id", id)
	}
	return &AnnotatedText{Text: text, Annotations: anns}, nil
}

// parseAnnotations parses the model's YAML list, keeping only mentions
// that resolve to a candidate concept. The ids it discards are returned
// for logging.
func parseAnnotations(text string, labels map[string]string) ([]Annotation, []string, error) {
	text = llm.StripCodeFences(text)

	var raw []struct {
		Mention string `yaml:"mention"`
		ID      string `yaml:"id"`
	}
	if err := yaml.Unmarshal([]byte(text), &raw); err != nil {
		return nil, nil, fmt.Errorf("parsing annotations: %w (raw: %q)", err, truncate(text, 200))
	}

	var anns []Annotation
	var dropped []string
	for _, r := range raw {
		label, ok := labels[r.ID]
		if !ok || r.Mention == "" {
			if r.ID != "" && !ok {
				dropped = append(dropped, r.ID)
			}
			continue
		}
		anns = append(anns, Annotation{Mention: r.Mention, ID: r.ID, Label: label})
	}
	return anns, dropped, nil
}

func fieldOr(rec *record.Record, field, fallback string) string {
	if v, ok := rec.Get(field); ok {
		if s := v.Text(); s != "" {
			return s
		}
	}
	return fallback
}

// hasPrefix reports whether the identifier's CURIE prefix is allowed.
// An empty prefix list allows everything.
func hasPrefix(id string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	prefix, _, found := strings.Cut(id, ":")
	if !found {
		return false
	}
	for _, p := range prefixes {
		if strings.EqualFold(prefix, p) {
			return true
		}
	}
	return false
}

package agent

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cdelab/curator/internal/ground"
	"github.com/cdelab/curator/internal/llm"
	"github.com/cdelab/curator/internal/log"
	"github.com/cdelab/curator/internal/store"
)

// ConceptMapper proposes candidate concepts for a text by vector search
// over an ontology collection. It implements ground.MappingService.
type ConceptMapper struct {
	store      *store.Store
	collection string
}

// NewConceptMapper builds a mapper over the named collection.
func NewConceptMapper(s *store.Store, collection string) *ConceptMapper {
	return &ConceptMapper{store: s, collection: collection}
}

// Match returns up to limit candidate concepts ranked by similarity to
// the text. Records without an identifier cannot be cited as matches and
// are skipped.
func (m *ConceptMapper) Match(ctx context.Context, text string, limit int) ([]ground.Candidate, error) {
	hits, err := m.store.Search(ctx, m.collection, text, store.WithLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("searching %q: %w", m.collection, err)
	}
	candidates := make([]ground.Candidate, 0, len(hits))
	for _, hit := range hits {
		if hit.ID == "" {
			continue
		}
		candidates = append(candidates, ground.Candidate{ObjectID: hit.ID, Score: hit.Score})
	}
	return candidates, nil
}

// groundingPrompt asks for a bare numeric confidence. %s: the composite
// "text // concept-id" string.
const groundingPrompt = `How confidently does the text before "//" refer to the concept identifier after it?

%s

Respond with ONLY a single number between 0 and 1, where 1 means the text clearly refers to that exact concept and 0 means it does not refer to it at all.`

// GroundingJudge scores concept groundings with the model. It implements
// ground.GroundingService.
type GroundingJudge struct {
	llm    *llm.Client
	logger log.Logger
}

// NewGroundingJudge builds a judge over the generation client.
func NewGroundingJudge(c *llm.Client, logger log.Logger) *GroundingJudge {
	return &GroundingJudge{llm: c, logger: logger}
}

// GroundConcept scores how confidently the composite text grounds to the
// concept it names, clamped to [0,1].
func (j *GroundingJudge) GroundConcept(ctx context.Context, text string) (float64, error) {
	out, err := j.llm.GenerateText(ctx, "", fmt.Sprintf(groundingPrompt, text))
	if err != nil {
		return 0, fmt.Errorf("scoring grounding: %w", err)
	}
	score, err := parseScore(out)
	if err != nil {
		return 0, err
	}
	j.logger.Debug("grounded concept", "text", text, "score", score)
	return score, nil
}

// parseScore reads the first number out of a model response and clamps
// it to [0,1]. Models occasionally wrap the number in prose despite
// instructions, so any leading non-numeric tokens are skipped.
func parseScore(text string) (float64, error) {
	text = llm.StripCodeFences(text)
	for _, field := range strings.Fields(text) {
		field = strings.Trim(field, ".,:;%")
		score, err := strconv.ParseFloat(field, 64)
		if err != nil || math.IsNaN(score) || math.IsInf(score, 0) {
			continue
		}
		return math.Max(0, math.Min(1, score)), nil
	}
	return 0, fmt.Errorf("no score in model output (raw: %q)", truncate(text, 200))
}

// Matcher assembles a concept matcher that proposes candidates from the
// collection and re-ranks them with the model judge.
func (a *Agent) Matcher(collection string) *ground.Matcher {
	return ground.NewMatcher(
		NewConceptMapper(a.store, collection),
		NewGroundingJudge(a.llm, a.logger),
		a.logger,
	)
}

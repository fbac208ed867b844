// Package ground matches free-text clinical variable descriptions to
// ontology concept identifiers.
//
// A match runs in two stages: a mapping search proposes ranked candidate
// concepts, then each candidate is scored by a concept-recognition
// grounding call over the composite string "{text} // {candidateID}". The
// highest-scoring candidate wins; an all-zero candidate set produces no
// match rather than a misleading low-confidence one.
package ground

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/cdelab/curator/internal/record"
)

// DefaultCandidateLimit bounds how many mapping candidates are scored
// per input text.
const DefaultCandidateLimit = 10

// ErrMatchingService indicates a mapping search or grounding call failed.
// Matching never falls back to a partial result on service failure.
var ErrMatchingService = errors.New("matching service failure")

// Candidate is one ranked concept proposed by a mapping search. Score is
// the search's own relevance estimate, not the grounding confidence.
type Candidate struct {
	ObjectID string
	Score    float64
}

// MappingService proposes ranked candidate concepts for a text.
type MappingService interface {
	Match(ctx context.Context, text string, limit int) ([]Candidate, error)
}

// GroundingService scores how confidently a composite text grounds to the
// concept it names, in [0,1].
type GroundingService interface {
	GroundConcept(ctx context.Context, text string) (float64, error)
}

// Matcher finds the best-grounding concept for free-text variables.
type Matcher struct {
	mapping   MappingService
	grounding GroundingService
	limit     int
	logger    *slog.Logger
}

// NewMatcher builds a matcher over the two services. A nil logger falls
// back to slog.Default.
func NewMatcher(mapping MappingService, grounding GroundingService, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{
		mapping:   mapping,
		grounding: grounding,
		limit:     DefaultCandidateLimit,
		logger:    logger,
	}
}

// FindBestMatch returns the concept identifier that grounds the text most
// confidently, with ok=false when no candidate scores above zero.
//
// Candidates are scored in rank order and replace the incumbent only on a
// strictly greater score, so ties resolve to the earlier-ranked candidate.
// Service failures return an error wrapping ErrMatchingService.
func (m *Matcher) FindBestMatch(ctx context.Context, text string) (string, bool, error) {
	candidates, err := m.mapping.Match(ctx, text, m.limit)
	if err != nil {
		return "", false, fmt.Errorf("%w: searching mappings for %q: %v", ErrMatchingService, text, err)
	}

	var bestID string
	var bestScore float64
	for _, c := range candidates {
		composite := text + " // " + c.ObjectID
		score, err := m.grounding.GroundConcept(ctx, composite)
		if err != nil {
			return "", false, fmt.Errorf("%w: grounding %q: %v", ErrMatchingService, composite, err)
		}
		m.logger.Debug("scored candidate", "text", text, "candidate", c.ObjectID, "score", score)
		if score > bestScore {
			bestID = c.ObjectID
			bestScore = score
		}
	}

	if bestID == "" {
		return "", false, nil
	}
	m.logger.Debug("best match", "text", text, "match", bestID, "score", bestScore)
	return bestID, true, nil
}

// MatchReport summarizes a collection matching run.
type MatchReport struct {
	Matched   int
	Unmatched int
	Failed    int
}

// MatchCollection applies FindBestMatch to every record, reading the free
// text from the named field, and streams a tab-separated report of
// (id, text, match) rows to w.
//
// A record whose match fails is reported in the output and counted, not
// fatal; records with an empty text field are counted as unmatched
// without a service call. Write errors and context cancellation abort
// the run.
func (m *Matcher) MatchCollection(ctx context.Context, records []*record.Record, field string, w io.Writer) (*MatchReport, error) {
	if _, err := fmt.Fprintln(w, "id\ttext\tmatch"); err != nil {
		return nil, fmt.Errorf("writing match report: %w", err)
	}

	report := &MatchReport{}
	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		var text string
		if v, ok := r.Get(field); ok {
			text = v.Text()
		}

		var match string
		if text == "" {
			report.Unmatched++
		} else if id, ok, err := m.FindBestMatch(ctx, text); err != nil {
			m.logger.Warn("match failed", "id", r.ID(), "error", err)
			match = "ERROR: " + err.Error()
			report.Failed++
		} else if ok {
			match = id
			report.Matched++
		} else {
			report.Unmatched++
		}

		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", r.ID(), text, match); err != nil {
			return report, fmt.Errorf("writing match report: %w", err)
		}
	}
	return report, nil
}

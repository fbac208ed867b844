package mcp

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/cdelab/curator/internal/ground"
	"github.com/cdelab/curator/internal/store"
)

// GroundConceptInput is the input schema for ground_concept.
type GroundConceptInput struct {
	Text       string `json:"text" jsonschema:"Text span to ground, for example a phenotype description"`
	Collection string `json:"collection" jsonschema:"Ontology collection searched for candidate concepts"`
	Limit      int    `json:"limit,omitempty" jsonschema:"Maximum number of candidates, default 10"`
}

type groundPayload struct {
	Text       string            `json:"text"`
	Collection string            `json:"collection"`
	Candidates []groundCandidate `json:"candidates"`
}

type groundCandidate struct {
	ID    string  `json:"id"`
	Label string  `json:"label,omitempty"`
	Score float64 `json:"score"`
}

func (s *Server) registerGroundTool() error {
	schema, err := jsonschema.For[GroundConceptInput](nil)
	if err != nil {
		return fmt.Errorf("schema for %s: %w", ToolGroundConcept, err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: ToolGroundConcept,
		Description: "Propose candidate concept identifiers for a piece of text by " +
			"semantic search over an ontology collection. Candidates are ranked by " +
			"similarity; the caller judges which, if any, is the right concept.",
		InputSchema: schema,
	}, s.GroundConcept)
	return nil
}

// GroundConcept handles the ground_concept tool call. Objects without an
// identifier cannot be cited as concepts and are skipped.
func (s *Server) GroundConcept(ctx context.Context, _ *mcp.CallToolRequest, in GroundConceptInput) (*mcp.CallToolResult, any, error) {
	if in.Text == "" {
		return errorResult("text is required"), nil, nil
	}
	if in.Collection == "" {
		return errorResult("collection is required"), nil, nil
	}
	limit := in.Limit
	if limit <= 0 {
		limit = ground.DefaultCandidateLimit
	}

	hits, err := s.store.Search(ctx, in.Collection, in.Text, store.WithLimit(limit))
	if err != nil {
		return nil, nil, fmt.Errorf("grounding against %q: %w", in.Collection, err)
	}

	payload := groundPayload{
		Text:       in.Text,
		Collection: in.Collection,
		Candidates: make([]groundCandidate, 0, len(hits)),
	}
	for _, hit := range hits {
		if hit.ID == "" {
			continue
		}
		cand := groundCandidate{ID: hit.ID, Score: hit.Score}
		if hit.Record != nil {
			if v, ok := hit.Record.Get("label"); ok {
				cand.Label, _ = v.Str()
			}
		}
		payload.Candidates = append(payload.Candidates, cand)
	}

	result, err := jsonResult(payload)
	if err != nil {
		return nil, nil, err
	}
	return result, nil, nil
}

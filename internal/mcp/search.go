package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/cdelab/curator/internal/record"
	"github.com/cdelab/curator/internal/store"
)

// DefaultSearchLimit caps search_collection results when the client
// does not ask for a count.
const DefaultSearchLimit = 10

// SearchCollectionInput is the input schema for search_collection.
type SearchCollectionInput struct {
	Collection string `json:"collection" jsonschema:"Name of the collection to search"`
	Query      string `json:"query" jsonschema:"Natural language search query"`
	Limit      int    `json:"limit,omitempty" jsonschema:"Maximum number of results, default 10"`
}

// LookupObjectInput is the input schema for lookup_object.
type LookupObjectInput struct {
	Collection string `json:"collection" jsonschema:"Name of the collection holding the object"`
	ID         string `json:"id" jsonschema:"Object identifier, for example HP:0002099"`
}

type searchPayload struct {
	Collection  string      `json:"collection"`
	Query       string      `json:"query"`
	ResultCount int         `json:"result_count"`
	Results     []searchHit `json:"results"`
}

type searchHit struct {
	ID     string         `json:"id,omitempty"`
	Score  float64        `json:"score"`
	Object *record.Record `json:"object"`
}

func (s *Server) registerSearchTools() error {
	searchSchema, err := jsonschema.For[SearchCollectionInput](nil)
	if err != nil {
		return fmt.Errorf("schema for %s: %w", ToolSearchCollection, err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: ToolSearchCollection,
		Description: "Search a collection by semantic similarity. " +
			"Returns the closest objects with their similarity scores, best first.",
		InputSchema: searchSchema,
	}, s.SearchCollection)

	lookupSchema, err := jsonschema.For[LookupObjectInput](nil)
	if err != nil {
		return fmt.Errorf("schema for %s: %w", ToolLookupObject, err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: ToolLookupObject,
		Description: "Fetch a single object from a collection by its identifier. " +
			"Falls back to the original_id recorded at ingest time.",
		InputSchema: lookupSchema,
	}, s.LookupObject)

	return nil
}

// SearchCollection handles the search_collection tool call.
func (s *Server) SearchCollection(ctx context.Context, _ *mcp.CallToolRequest, in SearchCollectionInput) (*mcp.CallToolResult, any, error) {
	if in.Collection == "" {
		return errorResult("collection is required"), nil, nil
	}
	if in.Query == "" {
		return errorResult("query is required"), nil, nil
	}
	limit := in.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	hits, err := s.store.Search(ctx, in.Collection, in.Query, store.WithLimit(limit))
	if err != nil {
		return nil, nil, fmt.Errorf("searching %q: %w", in.Collection, err)
	}

	payload := searchPayload{
		Collection:  in.Collection,
		Query:       in.Query,
		ResultCount: len(hits),
		Results:     make([]searchHit, 0, len(hits)),
	}
	for _, hit := range hits {
		payload.Results = append(payload.Results, searchHit{
			ID:     hit.ID,
			Score:  hit.Score,
			Object: hit.Record,
		})
	}

	result, err := jsonResult(payload)
	if err != nil {
		return nil, nil, err
	}
	return result, nil, nil
}

// LookupObject handles the lookup_object tool call.
func (s *Server) LookupObject(ctx context.Context, _ *mcp.CallToolRequest, in LookupObjectInput) (*mcp.CallToolResult, any, error) {
	if in.Collection == "" {
		return errorResult("collection is required"), nil, nil
	}
	if in.ID == "" {
		return errorResult("id is required"), nil, nil
	}

	rec, err := s.store.Lookup(ctx, in.Collection, in.ID)
	switch {
	case errors.Is(err, store.ErrObjectNotFound):
		return errorResult("object %q not found in %q", in.ID, in.Collection), nil, nil
	case err != nil:
		return nil, nil, fmt.Errorf("looking up %q: %w", in.ID, err)
	}

	result, err := jsonResult(rec)
	if err != nil {
		return nil, nil, err
	}
	return result, nil, nil
}

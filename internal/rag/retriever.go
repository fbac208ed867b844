// Package rag bridges the collection store into Genkit's retriever
// interface, letting generation flows pull curated objects as context
// documents.
//
// Each retriever is bound to one collection at definition time. Document
// text is the same rendered form the store embeds, so retrieval stays
// aligned with indexing; record identifiers and similarity scores ride
// along as document metadata for citation rendering.
package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/cdelab/curator/internal/store"
)

// DefaultTopK is the number of documents retrieved when the request does
// not ask for a specific count.
const DefaultTopK = 5

// Options configures one retrieval request. Pass a *Options as
// RetrieverRequest.Options; the map form {"k": n, "min_score": s} is also
// accepted for callers coming in through JSON.
type Options struct {
	// K is the number of documents to retrieve. Non-positive falls back
	// to DefaultTopK.
	K int

	// MinScore drops documents whose similarity is below the threshold.
	MinScore float64
}

// Retriever defines Genkit retrievers backed by the collection store.
type Retriever struct {
	store *store.Store
}

// New creates a Retriever over the given store.
func New(s *store.Store) *Retriever {
	return &Retriever{store: s}
}

// Define registers a retriever named "collection/<name>" searching one
// collection.
func (r *Retriever) Define(g *genkit.Genkit, collection string) ai.Retriever {
	return genkit.DefineRetriever(g, "collection/"+collection, nil,
		func(ctx context.Context, req *ai.RetrieverRequest) (*ai.RetrieverResponse, error) {
			opts := requestOptions(req)

			hits, err := r.store.Search(ctx, collection, queryText(req),
				store.WithLimit(opts.K),
				store.WithMinScore(opts.MinScore),
			)
			if err != nil {
				return nil, fmt.Errorf("retrieving from %q: %w", collection, err)
			}

			return &ai.RetrieverResponse{Documents: toDocuments(collection, hits)}, nil
		})
}

// queryText extracts the text content of the request's query document.
func queryText(req *ai.RetrieverRequest) string {
	if req.Query == nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range req.Query.Content {
		if p.Kind == ai.PartText {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// requestOptions normalizes request options to in-range values.
func requestOptions(req *ai.RetrieverRequest) Options {
	opts := Options{K: DefaultTopK}

	switch v := req.Options.(type) {
	case *Options:
		if v != nil {
			opts = *v
		}
	case Options:
		opts = v
	case map[string]any:
		if k, ok := numericOption(v["k"]); ok {
			opts.K = int(k)
		}
		if s, ok := numericOption(v["min_score"]); ok {
			opts.MinScore = s
		}
	}

	if opts.K <= 0 {
		opts.K = DefaultTopK
	}
	if opts.K > store.MaxSearchLimit {
		opts.K = store.MaxSearchLimit
	}
	if opts.MinScore < 0 {
		opts.MinScore = 0
	}
	return opts
}

// numericOption coerces the numeric types JSON decoding can produce.
func numericOption(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// toDocuments converts search hits to context documents.
func toDocuments(collection string, hits []store.ScoredRecord) []*ai.Document {
	docs := make([]*ai.Document, len(hits))
	for i, hit := range hits {
		docs[i] = ai.DocumentFromText(store.RenderText(hit.Record), map[string]any{
			"id":         hit.ID,
			"collection": collection,
			"similarity": hit.Score,
		})
	}
	return docs
}

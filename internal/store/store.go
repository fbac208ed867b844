// Package store persists named collections of records in PostgreSQL with
// pgvector embeddings. Each record becomes one documents row: the body
// keeps the object's field order intact, the content column holds the
// rendered text that was embedded, and search ranks by cosine similarity.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"google.golang.org/genai"

	"github.com/cdelab/curator/internal/record"
)

const (
	// VectorDimension is the embedding width of the documents schema.
	// Must match vector(768) in db/migrations.
	VectorDimension int32 = 768

	// EmbedTimeout bounds a single embedding request.
	EmbedTimeout = 30 * time.Second

	// DefaultSearchLimit is the number of search hits returned when the
	// caller does not ask for a specific limit.
	DefaultSearchLimit = 10

	// MaxSearchLimit caps search results regardless of the requested limit.
	MaxSearchLimit = 100

	// embedBatchSize is how many document texts go into one embed request
	// during Insert.
	embedBatchSize = 32
)

// upsertDocumentSQL inserts one document. The conflict target is the
// partial unique index on (collection, object_id), so re-indexing an
// object with an identifier replaces it while anonymous objects append.
const upsertDocumentSQL = `INSERT INTO documents (collection, object_id, body, content, embedding)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (collection, object_id) WHERE object_id <> ''
	DO UPDATE SET body = EXCLUDED.body, content = EXCLUDED.content,
	              embedding = EXCLUDED.embedding, updated_at = now()`

// Store manages record collections backed by PostgreSQL + pgvector.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	pool     *pgxpool.Pool
	embedder ai.Embedder
	logger   *slog.Logger
}

// New creates a collection Store. The embedder may be nil for
// metadata-only use (listing, dumping, copying collections); Insert and
// Search then fail with an error.
func New(pool *pgxpool.Pool, embedder ai.Embedder, logger *slog.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, embedder: embedder, logger: logger}, nil
}

// RenderText renders a record to the text that gets embedded and stored in
// the content column. YAML keeps field names next to their values, which
// anchors the embedding to the schema rather than bare strings.
func RenderText(rec *record.Record) string {
	text, err := rec.YAML()
	if err != nil {
		return record.Canonical(record.Object(rec))
	}
	return text
}

// embed generates vectors for a batch of texts in one request.
//
// Gemini embedding models emit 3072 dimensions by default while the schema
// stores vector(768), so Google AI requests ask for truncated output.
// Other providers must serve a model that emits VectorDimension; a
// mismatched width fails at insert time with a pgvector error.
func (s *Store) embed(ctx context.Context, texts []string) ([]pgvector.Vector, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("store has no embedder, configure an AI provider")
	}
	docs := make([]*ai.Document, len(texts))
	for i, t := range texts {
		docs[i] = ai.DocumentFromText(t, nil)
	}

	req := &ai.EmbedRequest{Input: docs}
	if strings.HasPrefix(s.embedder.Name(), "googleai/") {
		dim := VectorDimension
		req.Options = &genai.EmbedContentConfig{OutputDimensionality: &dim}
	}

	resp, err := s.embedder.Embed(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("embedding %d texts: %w", len(texts), err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding response has %d vectors for %d texts", len(resp.Embeddings), len(texts))
	}

	vecs := make([]pgvector.Vector, len(texts))
	for i, emb := range resp.Embeddings {
		if len(emb.Embedding) == 0 {
			return nil, fmt.Errorf("empty embedding for text %d", i)
		}
		vecs[i] = pgvector.NewVector(emb.Embedding)
	}
	return vecs, nil
}

// Insert embeds and stores records in the named collection, creating the
// collection on first use. A record whose identifier matches an existing
// document replaces that document; records without an identifier always
// append. Returns the number of records written.
func (s *Store) Insert(ctx context.Context, collection string, records []*record.Record) (int, error) {
	name, err := NormalizeCollection(collection)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	if _, err := s.pool.Exec(ctx,
		`INSERT INTO collections (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`,
		name,
	); err != nil {
		return 0, fmt.Errorf("creating collection %q: %w", name, err)
	}

	written := 0
	for start := 0; start < len(records); start += embedBatchSize {
		end := min(start+embedBatchSize, len(records))
		if err := s.insertBatch(ctx, name, records[start:end]); err != nil {
			return written, err
		}
		written = end
		s.logger.Debug("indexed batch",
			"collection", name, "written", written, "total", len(records))
	}
	return written, nil
}

// insertBatch embeds one batch of records and writes it in a single
// transaction, so a failed batch leaves no partial rows behind.
func (s *Store) insertBatch(ctx context.Context, collection string, batch []*record.Record) error {
	texts := make([]string, len(batch))
	for i, rec := range batch {
		texts[i] = RenderText(rec)
	}

	embedCtx, cancel := context.WithTimeout(ctx, EmbedTimeout)
	defer cancel()

	vecs, err := s.embed(embedCtx, texts)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.logger.Debug("transaction rollback", "error", rbErr)
		}
	}()

	for i, rec := range batch {
		body, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encoding object %q: %w", rec.ID(), err)
		}
		if _, err := tx.Exec(ctx, upsertDocumentSQL,
			collection, rec.ID(), body, texts[i], vecs[i],
		); err != nil {
			return fmt.Errorf("inserting object %q: %w", rec.ID(), err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing insert transaction: %w", err)
	}
	return nil
}

// Search returns the records most similar to text, best first.
// Results below the configured minimum score are dropped.
func (s *Store) Search(ctx context.Context, collection, text string, opts ...SearchOption) ([]ScoredRecord, error) {
	name, err := NormalizeCollection(collection)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return []ScoredRecord{}, nil
	}
	cfg := buildSearchConfig(opts)

	embedCtx, cancel := context.WithTimeout(ctx, EmbedTimeout)
	defer cancel()

	vecs, err := s.embed(embedCtx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT object_id, body, 1 - (embedding <=> $2) AS similarity
		 FROM documents
		 WHERE collection = $1
		   AND embedding IS NOT NULL
		   AND 1 - (embedding <=> $2) >= $3::float8
		 ORDER BY embedding <=> $2
		 LIMIT $4`,
		name, vecs[0], cfg.minScore, cfg.limit,
	)
	if err != nil {
		return nil, fmt.Errorf("searching %q: %w", name, err)
	}
	defer rows.Close()

	var results []ScoredRecord
	for rows.Next() {
		var hit ScoredRecord
		var body []byte
		if err := rows.Scan(&hit.ID, &body, &hit.Score); err != nil {
			return nil, fmt.Errorf("scanning search hit: %w", err)
		}
		rec := record.New()
		if err := json.Unmarshal(body, rec); err != nil {
			return nil, fmt.Errorf("decoding object %q: %w", hit.ID, err)
		}
		hit.Record = rec
		results = append(results, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search hits: %w", err)
	}
	return results, nil
}

// Lookup fetches one object by identifier. The object_id column is matched
// first; objects ingested before they had an id fall back to the
// original_id field inside the stored body.
func (s *Store) Lookup(ctx context.Context, collection, id string) (*record.Record, error) {
	name, err := NormalizeCollection(collection)
	if err != nil {
		return nil, err
	}

	queries := []string{
		`SELECT body FROM documents
		 WHERE collection = $1 AND object_id = $2
		 ORDER BY seq LIMIT 1`,
		`SELECT body FROM documents
		 WHERE collection = $1 AND body->>'original_id' = $2
		 ORDER BY seq LIMIT 1`,
	}
	for _, q := range queries {
		var body []byte
		err := s.pool.QueryRow(ctx, q, name, id).Scan(&body)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			continue
		case err != nil:
			return nil, fmt.Errorf("looking up %q in %q: %w", id, name, err)
		}
		rec := record.New()
		if err := json.Unmarshal(body, rec); err != nil {
			return nil, fmt.Errorf("decoding object %q: %w", id, err)
		}
		return rec, nil
	}
	return nil, fmt.Errorf("%w: %q in %q", ErrObjectNotFound, id, name)
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/cdelab/curator/internal/record"
)

// List returns every collection with its metadata and document count,
// sorted by name.
func (s *Store) List(ctx context.Context) ([]CollectionInfo, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT c.name, c.metadata, c.created_at, COUNT(d.id)
		 FROM collections c
		 LEFT JOIN documents d ON d.collection = c.name
		 GROUP BY c.name
		 ORDER BY c.name`)
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}
	defer rows.Close()

	var infos []CollectionInfo
	for rows.Next() {
		var info CollectionInfo
		var meta []byte
		if err := rows.Scan(&info.Name, &meta, &info.CreatedAt, &info.Count); err != nil {
			return nil, fmt.Errorf("scanning collection: %w", err)
		}
		if err := json.Unmarshal(meta, &info.Metadata); err != nil {
			s.logger.Warn("failed to parse collection metadata",
				"collection", info.Name, "error", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating collections: %w", err)
	}
	return infos, nil
}

// Info returns one collection's metadata and document count.
// Returns ErrCollectionNotFound if the collection does not exist.
func (s *Store) Info(ctx context.Context, collection string) (*CollectionInfo, error) {
	name, err := NormalizeCollection(collection)
	if err != nil {
		return nil, err
	}

	var info CollectionInfo
	var meta []byte
	err = s.pool.QueryRow(ctx,
		`SELECT c.name, c.metadata, c.created_at,
		        (SELECT COUNT(*) FROM documents d WHERE d.collection = c.name)
		 FROM collections c
		 WHERE c.name = $1`,
		name,
	).Scan(&info.Name, &meta, &info.CreatedAt, &info.Count)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, fmt.Errorf("%w: %q", ErrCollectionNotFound, name)
	case err != nil:
		return nil, fmt.Errorf("describing collection %q: %w", name, err)
	}
	if err := json.Unmarshal(meta, &info.Metadata); err != nil {
		s.logger.Warn("failed to parse collection metadata",
			"collection", name, "error", err)
	}
	return &info, nil
}

// Count returns the number of documents in the collection.
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	info, err := s.Info(ctx, collection)
	if err != nil {
		return 0, err
	}
	return info.Count, nil
}

// Peek returns the first limit records in insertion order.
// A non-positive limit falls back to DefaultSearchLimit.
func (s *Store) Peek(ctx context.Context, collection string, limit int) ([]*record.Record, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	return s.readRecords(ctx, collection, limit)
}

// Dump returns every record in the collection in insertion order.
func (s *Store) Dump(ctx context.Context, collection string) ([]*record.Record, error) {
	return s.readRecords(ctx, collection, 0)
}

// readRecords reads up to limit records in insertion order; limit 0 reads
// everything. An empty result distinguishes a missing collection from an
// empty one.
func (s *Store) readRecords(ctx context.Context, collection string, limit int) ([]*record.Record, error) {
	name, err := NormalizeCollection(collection)
	if err != nil {
		return nil, err
	}

	var rows pgx.Rows
	if limit > 0 {
		rows, err = s.pool.Query(ctx,
			`SELECT object_id, body FROM documents
			 WHERE collection = $1
			 ORDER BY seq
			 LIMIT $2`,
			name, limit,
		)
	} else {
		rows, err = s.pool.Query(ctx,
			`SELECT object_id, body FROM documents
			 WHERE collection = $1
			 ORDER BY seq`,
			name,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("reading collection %q: %w", name, err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM collections WHERE name = $1)`, name,
		).Scan(&exists); err != nil {
			return nil, fmt.Errorf("checking collection %q: %w", name, err)
		}
		if !exists {
			return nil, fmt.Errorf("%w: %q", ErrCollectionNotFound, name)
		}
	}
	return records, nil
}

// Copy duplicates src into a new collection dst, metadata and embeddings
// included. Returns ErrCollectionExists if dst already exists.
func (s *Store) Copy(ctx context.Context, src, dst string) error {
	srcName, err := NormalizeCollection(src)
	if err != nil {
		return err
	}
	dstName, err := NormalizeCollection(dst)
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

	// Serialize concurrent copies into the same destination.
	// pg_advisory_xact_lock releases automatically at commit/rollback.
	if _, lockErr := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, dstName); lockErr != nil {
		return fmt.Errorf("acquiring advisory lock: %w", lockErr)
	}

	var srcExists, dstExists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM collections WHERE name = $1),
		        EXISTS(SELECT 1 FROM collections WHERE name = $2)`,
		srcName, dstName,
	).Scan(&srcExists, &dstExists); err != nil {
		return fmt.Errorf("checking collections: %w", err)
	}
	if !srcExists {
		return fmt.Errorf("%w: %q", ErrCollectionNotFound, srcName)
	}
	if dstExists {
		return fmt.Errorf("%w: %q", ErrCollectionExists, dstName)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO collections (name, metadata)
		 SELECT $2, metadata FROM collections WHERE name = $1`,
		srcName, dstName,
	); err != nil {
		return fmt.Errorf("copying collection %q: %w", srcName, err)
	}

	// ORDER BY seq makes the copied rows draw their new seq values in the
	// original insertion order.
	if _, err := tx.Exec(ctx,
		`INSERT INTO documents (collection, object_id, body, content, embedding)
		 SELECT $2, object_id, body, content, embedding
		 FROM documents WHERE collection = $1
		 ORDER BY seq`,
		srcName, dstName,
	); err != nil {
		return fmt.Errorf("copying documents from %q: %w", srcName, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing copy transaction: %w", err)
	}
	s.logger.Debug("copied collection", "src", srcName, "dst", dstName)
	return nil
}

// Drop removes a collection and all of its documents.
func (s *Store) Drop(ctx context.Context, collection string) error {
	name, err := NormalizeCollection(collection)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM collections WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("dropping collection %q: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %q", ErrCollectionNotFound, name)
	}
	s.logger.Debug("dropped collection", "collection", name)
	return nil
}

// SetMetadata replaces a collection's metadata.
func (s *Store) SetMetadata(ctx context.Context, collection string, md Metadata) error {
	name, err := NormalizeCollection(collection)
	if err != nil {
		return err
	}

	meta, err := json.Marshal(md)
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE collections SET metadata = $2, updated_at = now() WHERE name = $1`,
		name, meta,
	)
	if err != nil {
		return fmt.Errorf("updating metadata for %q: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %q", ErrCollectionNotFound, name)
	}
	return nil
}

// scanRecords decodes document rows (object_id, body) into records.
func scanRecords(rows pgx.Rows) ([]*record.Record, error) {
	var records []*record.Record
	for rows.Next() {
		var objectID string
		var body []byte
		if err := rows.Scan(&objectID, &body); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		rec := record.New()
		if err := json.Unmarshal(body, rec); err != nil {
			return nil, fmt.Errorf("decoding object %q: %w", objectID, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return records, nil
}

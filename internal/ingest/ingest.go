// Package ingest loads structured objects from local files into store
// collections. It understands JSON, JSON Lines, CSV, TSV, and YAML,
// with transparent gzip decompression and charset detection for data
// that is not UTF-8.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cdelab/curator/internal/log"
	"github.com/cdelab/curator/internal/record"
	"github.com/cdelab/curator/internal/store"
)

// IndexerStore is the slice of the object store that ingestion writes
// through. The interface lives with its consumer so the indexer can be
// exercised against fakes; *store.Store satisfies it.
type IndexerStore interface {
	Insert(ctx context.Context, collection string, records []*record.Record) (int, error)
	Drop(ctx context.Context, collection string) error
	SetMetadata(ctx context.Context, collection string, md store.Metadata) error
}

// Options control one ingestion run.
type Options struct {
	// Collection receives the objects.
	Collection string

	// Select narrows every parsed document to the subtree at a dotted
	// path, e.g. "graphs.nodes", before insertion.
	Select string

	// Append adds to an existing collection instead of replacing it.
	Append bool

	// ObjectType and Description are recorded as collection metadata
	// after the objects are in.
	ObjectType  string
	Description string
}

// Result summarizes an ingestion run.
type Result struct {
	FilesIndexed int
	FilesSkipped int
	FilesFailed  int
	Objects      int
	Duration     time.Duration
}

// Indexer reads files and inserts their objects into a collection.
type Indexer struct {
	store  IndexerStore
	logger log.Logger
}

// NewIndexer returns an indexer writing through st. A nil logger
// disables logging.
func NewIndexer(st IndexerStore, logger log.Logger) *Indexer {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Indexer{store: st, logger: logger}
}

// Ingest loads every path, files or directories, into opts.Collection.
// Unless opts.Append is set the collection is replaced. An explicitly
// named file aborts the run when it cannot be loaded; files found by a
// directory walk are counted as failed and skipped, so one bad file
// cannot sink a bulk load.
func (idx *Indexer) Ingest(ctx context.Context, paths []string, opts Options) (*Result, error) {
	if opts.Collection == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no input paths")
	}
	if opts.Select != "" {
		// Validate the path syntax once instead of per file.
		if _, err := SelectPath(nil, opts.Select); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	if !opts.Append {
		err := idx.store.Drop(ctx, opts.Collection)
		if err != nil && !errors.Is(err, store.ErrCollectionNotFound) {
			return nil, fmt.Errorf("replacing collection %q: %w", opts.Collection, err)
		}
	}

	result := &Result{}
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
		if info.IsDir() {
			if err := idx.ingestDir(ctx, path, opts, result); err != nil {
				return nil, err
			}
			continue
		}
		n, err := idx.loadFile(ctx, path, opts)
		if err != nil {
			return nil, err
		}
		result.FilesIndexed++
		result.Objects += n
	}

	if opts.ObjectType != "" || opts.Description != "" {
		md := store.Metadata{ObjectType: opts.ObjectType, Description: opts.Description}
		err := idx.store.SetMetadata(ctx, opts.Collection, md)
		// Nothing inserted means no collection to describe.
		if err != nil && !errors.Is(err, store.ErrCollectionNotFound) {
			return nil, fmt.Errorf("recording metadata: %w", err)
		}
	}

	result.Duration = time.Since(start)
	idx.logger.Info("ingestion finished",
		"collection", opts.Collection,
		"objects", result.Objects,
		"files", result.FilesIndexed,
		"skipped", result.FilesSkipped,
		"failed", result.FilesFailed,
		"duration", result.Duration,
	)
	return result, nil
}

// ingestDir walks dir and loads every supported file, continuing past
// individual failures. Hidden directories are not descended into.
func (idx *Indexer) ingestDir(ctx context.Context, dir string, opts Options, result *Result) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if err != nil {
			result.FilesFailed++
			idx.logger.Warn("walk error", "path", path, "error", err)
			return nil
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") || !Supported(d.Name()) {
			result.FilesSkipped++
			return nil
		}
		n, err := idx.loadFile(ctx, path, opts)
		if err != nil {
			result.FilesFailed++
			idx.logger.Warn("skipping file", "path", path, "error", err)
			return nil
		}
		result.FilesIndexed++
		result.Objects += n
		return nil
	})
}

// loadFile parses one file and inserts its objects, returning how many
// went in.
func (idx *Indexer) loadFile(ctx context.Context, path string, opts Options) (int, error) {
	records, err := ReadFile(path)
	if err != nil {
		return 0, err
	}
	if opts.Select != "" {
		records, err = SelectPath(records, opts.Select)
		if err != nil {
			return 0, err
		}
	}
	if len(records) == 0 {
		idx.logger.Debug("no objects in file", "path", path)
		return 0, nil
	}
	n, err := idx.store.Insert(ctx, opts.Collection, records)
	if err != nil {
		return 0, fmt.Errorf("inserting %d objects from %s: %w", len(records), path, err)
	}
	idx.logger.Info("indexed file", "path", path, "objects", n)
	return n, nil
}

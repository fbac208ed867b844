package mcp

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/cdelab/curator/internal/agent"
	"github.com/cdelab/curator/internal/record"
	"github.com/cdelab/curator/internal/store"
)

// fakeStore serves canned hits and objects. Lookup wraps
// store.ErrObjectNotFound the way the real store does.
type fakeStore struct {
	hits      []store.ScoredRecord
	objects   map[string]*record.Record
	searchErr error
}

func (f *fakeStore) Search(context.Context, string, string, ...store.SearchOption) ([]store.ScoredRecord, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.hits, nil
}

func (f *fakeStore) Lookup(_ context.Context, collection, id string) (*record.Record, error) {
	rec, ok := f.objects[collection+"/"+id]
	if !ok {
		return nil, fmt.Errorf("%w: %q in %q", store.ErrObjectNotFound, id, collection)
	}
	return rec, nil
}

// fakeCompleter records what it was asked and returns a fixed object.
type fakeCompleter struct {
	seed *record.Record
	opts agent.CompleteOptions
	out  *record.Record
	err  error
}

func (f *fakeCompleter) Complete(_ context.Context, seed *record.Record, opts agent.CompleteOptions) (*agent.Completion, error) {
	f.seed, f.opts = seed, opts
	if f.err != nil {
		return nil, f.err
	}
	return &agent.Completion{Object: f.out}, nil
}

func TestNewServer(t *testing.T) {
	t.Parallel()

	valid := Config{Name: "curator", Version: "1.0.0", Store: &fakeStore{}}
	if _, err := NewServer(valid); err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "missing name",
			cfg:  Config{Version: "1.0.0", Store: &fakeStore{}},
			want: "name",
		},
		{
			name: "missing version",
			cfg:  Config{Name: "curator", Store: &fakeStore{}},
			want: "version",
		},
		{
			name: "missing store",
			cfg:  Config{Name: "curator", Version: "1.0.0"},
			want: "store",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewServer(tt.cfg)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("NewServer() error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

// mustParse builds a record from a YAML document.
func mustParse(t *testing.T, doc string) *record.Record {
	t.Helper()
	rec, err := record.ParseYAML([]byte(doc))
	if err != nil {
		t.Fatalf("ParseYAML(%q) error = %v", doc, err)
	}
	return rec
}

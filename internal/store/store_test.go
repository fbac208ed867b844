package store

import (
	"errors"
	"strings"
	"testing"

	"github.com/cdelab/curator/internal/record"
)

func TestNormalizeCollection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{name: "simple", in: "ont_hp"},
		{name: "mixed case", in: "OntHP"},
		{name: "digits after letter", in: "run2_testing"},
		{name: "split suffix", in: "cde_variables_training"},
		{name: "single letter", in: "x"},
		{name: "empty", in: "", wantErr: true},
		{name: "leading digit", in: "2fast", wantErr: true},
		{name: "leading underscore", in: "_hidden", wantErr: true},
		{name: "dash", in: "ont-hp", wantErr: true},
		{name: "space", in: "ont hp", wantErr: true},
		{name: "dot", in: "ont.hp", wantErr: true},
		{name: "sql injection attempt", in: `x"; DROP TABLE documents;--`, wantErr: true},
		{name: "too long", in: "c" + strings.Repeat("x", MaxCollectionNameLength), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := NormalizeCollection(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("NormalizeCollection(%q) = %q, want error", tt.in, got)
				}
				if !errors.Is(err, ErrInvalidCollection) {
					t.Errorf("NormalizeCollection(%q) error = %v, want ErrInvalidCollection", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeCollection(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.in {
				t.Errorf("NormalizeCollection(%q) = %q, want input unchanged", tt.in, got)
			}
		})
	}
}

func TestRenderText(t *testing.T) {
	t.Parallel()

	rec := record.New()
	rec.Set("id", record.String("HP:0002099"))
	rec.Set("label", record.String("Asthma"))
	rec.Set("synonyms", record.List(record.String("bronchial asthma")))

	got := RenderText(rec)

	want := "id: HP:0002099\nlabel: Asthma\nsynonyms:\n    - bronchial asthma\n"
	if got != want {
		t.Errorf("RenderText() = %q, want %q", got, want)
	}
}

func TestBuildSearchConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		opts         []SearchOption
		wantLimit    int
		wantMinScore float64
	}{
		{
			name:      "defaults",
			wantLimit: DefaultSearchLimit,
		},
		{
			name:         "explicit limit and score",
			opts:         []SearchOption{WithLimit(3), WithMinScore(0.7)},
			wantLimit:    3,
			wantMinScore: 0.7,
		},
		{
			name:      "zero limit falls back",
			opts:      []SearchOption{WithLimit(0)},
			wantLimit: DefaultSearchLimit,
		},
		{
			name:      "negative limit falls back",
			opts:      []SearchOption{WithLimit(-5)},
			wantLimit: DefaultSearchLimit,
		},
		{
			name:      "limit capped",
			opts:      []SearchOption{WithLimit(MaxSearchLimit + 50)},
			wantLimit: MaxSearchLimit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := buildSearchConfig(tt.opts)
			if cfg.limit != tt.wantLimit {
				t.Errorf("limit = %d, want %d", cfg.limit, tt.wantLimit)
			}
			if cfg.minScore != tt.wantMinScore {
				t.Errorf("minScore = %v, want %v", cfg.minScore, tt.wantMinScore)
			}
		})
	}
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	if _, err := New(nil, nil, nil); err == nil {
		t.Error("New(nil pool) expected error")
	}
}

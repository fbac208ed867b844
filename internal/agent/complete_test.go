package agent

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/cdelab/curator/internal/record"
	"github.com/cdelab/curator/internal/store"
)

func TestParseQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		query    string
		property string
		want     map[string]string
		wantErr  bool
	}{
		{
			name:  "plain string wraps in label",
			query: "umbelliferose biosynthetic process",
			want:  map[string]string{"label": "umbelliferose biosynthetic process"},
		},
		{
			name:     "plain string with custom property",
			query:    "fasting glucose",
			property: "name",
			want:     map[string]string{"name": "fasting glucose"},
		},
		{
			name:  "colon triggers yaml parsing",
			query: "label: Asthma\nseverity: mild",
			want:  map[string]string{"label": "Asthma", "severity": "mild"},
		},
		{
			name:  "yaml query ignores property",
			query: "id: HP:0002099",
			// The property only applies when wrapping a bare string.
			property: "name",
			want:     map[string]string{"id": "HP:0002099"},
		},
		{
			name:    "empty query",
			query:   "   ",
			wantErr: true,
		},
		{
			name:    "malformed yaml",
			query:   "label: [unterminated",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec, err := ParseQuery(tt.query, tt.property)
			if tt.wantErr {
				if err == nil {
					t.Fatal("ParseQuery succeeded, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseQuery: %v", err)
			}

			got := make(map[string]string, rec.Len())
			for _, key := range rec.Keys() {
				v, _ := rec.Get(key)
				got[key] = v.Text()
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("parsed query mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSystemWithRules(t *testing.T) {
	t.Parallel()

	if got := systemWithRules("base prompt", nil); got != "base prompt" {
		t.Errorf("no rules: got %q, want unchanged prompt", got)
	}

	got := systemWithRules("base prompt", []string{"always use snake_case ids", "prefer existing synonyms"})
	for _, want := range []string{
		"base prompt",
		"Additional rules:",
		"- always use snake_case ids",
		"- prefer existing synonyms",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.HasSuffix(got, "\n") {
		t.Errorf("output has trailing newline:\n%q", got)
	}
}

func TestCompletionPrompt(t *testing.T) {
	t.Parallel()

	seed := record.New()
	seed.Set("label", record.String("Asthma"))

	example := record.New()
	example.Set("id", record.String("HP:0001945"))
	example.Set("label", record.String("Fever"))
	example.Set("definition", record.String("Elevated body temperature."))
	hits := []store.ScoredRecord{{ID: "HP:0001945", Score: 0.8, Record: example}}

	t.Run("with fields", func(t *testing.T) {
		t.Parallel()

		got, err := completionPrompt(seed, hits, "", []string{"definition", "synonyms"})
		if err != nil {
			t.Fatalf("completionPrompt: %v", err)
		}
		for _, want := range []string{
			"## Example",
			"label: Fever",
			"## Partial object",
			"label: Asthma",
			"filling in these fields: definition, synonyms",
		} {
			if !strings.Contains(got, want) {
				t.Errorf("prompt missing %q:\n%s", want, got)
			}
		}
		if strings.Contains(got, "## Background") {
			t.Error("prompt has a background section without background text")
		}
	})

	t.Run("with background", func(t *testing.T) {
		t.Parallel()

		got, err := completionPrompt(seed, hits, "Asthma is a chronic airway disease.", nil)
		if err != nil {
			t.Fatalf("completionPrompt: %v", err)
		}
		for _, want := range []string{
			"## Background",
			"Asthma is a chronic airway disease.",
			"Complete the partial object.",
		} {
			if !strings.Contains(got, want) {
				t.Errorf("prompt missing %q:\n%s", want, got)
			}
		}
	})
}

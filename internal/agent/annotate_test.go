package agent

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSplitSentences(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "two sentences",
			text: "Patient reports wheezing. Fever resolved after two days.",
			want: []string{"Patient reports wheezing", "Fever resolved after two days"},
		},
		{
			name: "trailing period",
			text: "Measured fasting glucose.",
			want: []string{"Measured fasting glucose"},
		},
		{
			name: "no period",
			text: "chronic cough",
			want: []string{"chronic cough"},
		},
		{
			name: "empty",
			text: "   ",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if diff := cmp.Diff(tt.want, SplitSentences(tt.text)); diff != "" {
				t.Errorf("SplitSentences mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseAnnotations(t *testing.T) {
	t.Parallel()

	labels := map[string]string{
		"HP:0002099": "Asthma",
		"HP:0001945": "Fever",
	}

	tests := []struct {
		name        string
		text        string
		want        []Annotation
		wantDropped []string
		wantErr     bool
	}{
		{
			name: "fenced list",
			text: "```yaml\n- mention: wheezing\n  id: HP:0002099\n- mention: fever\n  id: HP:0001945\n```",
			want: []Annotation{
				{Mention: "wheezing", ID: "HP:0002099", Label: "Asthma"},
				{Mention: "fever", ID: "HP:0001945", Label: "Fever"},
			},
		},
		{
			name:        "unknown id dropped",
			text:        "- mention: wheezing\n  id: HP:0002099\n- mention: headache\n  id: HP:0002076",
			want:        []Annotation{{Mention: "wheezing", ID: "HP:0002099", Label: "Asthma"}},
			wantDropped: []string{"HP:0002076"},
		},
		{
			name: "empty mention dropped",
			text: "- mention: \"\"\n  id: HP:0002099",
			want: nil,
		},
		{
			name: "empty list",
			text: "[]",
			want: nil,
		},
		{
			name:    "prose instead of list",
			text:    "I found no concepts in the passage.",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, dropped, err := parseAnnotations(tt.text, labels)
			if tt.wantErr {
				if err == nil {
					t.Fatal("parseAnnotations succeeded, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseAnnotations: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("annotations mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantDropped, dropped); diff != "" {
				t.Errorf("dropped ids mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestHasPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		id       string
		prefixes []string
		want     bool
	}{
		{name: "no filter admits all", id: "HP:0002099", want: true},
		{name: "matching prefix", id: "HP:0002099", prefixes: []string{"HP"}, want: true},
		{name: "case insensitive", id: "hp:0002099", prefixes: []string{"HP"}, want: true},
		{name: "wrong prefix", id: "MONDO:0004979", prefixes: []string{"HP"}, want: false},
		{name: "second prefix matches", id: "MONDO:0004979", prefixes: []string{"HP", "MONDO"}, want: true},
		{name: "no curie separator", id: "asthma", prefixes: []string{"HP"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := hasPrefix(tt.id, tt.prefixes); got != tt.want {
				t.Errorf("hasPrefix(%q, %v) = %v, want %v", tt.id, tt.prefixes, got, tt.want)
			}
		})
	}
}

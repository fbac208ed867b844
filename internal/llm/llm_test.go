package llm

import (
	"context"
	"strings"
	"testing"

	"github.com/cdelab/curator/internal/testutil"
)

func newTestClient(t *testing.T) (*Client, *testutil.MockLLM) {
	t.Helper()

	g := testutil.NewGenkit()
	mock := testutil.NewMockLLM("fallback answer")
	mock.RegisterModel(g)

	c, err := New(Config{
		Genkit:    g,
		ModelName: "mock/test-model",
		Logger:    testutil.DiscardLogger(),
	})
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}
	return c, mock
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	g := testutil.NewGenkit()
	logger := testutil.DiscardLogger()

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name:    "missing genkit",
			cfg:     Config{ModelName: "googleai/gemini-2.5-flash", Logger: logger},
			wantErr: "genkit instance is required",
		},
		{
			name:    "missing model name",
			cfg:     Config{Genkit: g, Logger: logger},
			wantErr: "model name is required",
		},
		{
			name:    "missing logger",
			cfg:     Config{Genkit: g, ModelName: "googleai/gemini-2.5-flash"},
			wantErr: "logger is required",
		},
		{
			name: "valid",
			cfg:  Config{Genkit: g, ModelName: "googleai/gemini-2.5-flash", Logger: logger},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := New(tt.cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("New() unexpected error: %v", err)
				}
				return
			}
			if err == nil || err.Error() != tt.wantErr {
				t.Errorf("New() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestGenerateText(t *testing.T) {
	c, mock := newTestClient(t)
	mock.AddResponse("asthma", "id: HP:0002099\nlabel: Asthma")

	got, err := c.GenerateText(context.Background(),
		"You curate ontology terms.",
		"Emit the term for asthma as YAML.")
	if err != nil {
		t.Fatalf("GenerateText() error: %v", err)
	}
	if got != "id: HP:0002099\nlabel: Asthma" {
		t.Errorf("GenerateText() = %q, want the registered response", got)
	}

	calls := mock.Calls()
	if len(calls) != 1 {
		t.Fatalf("model received %d calls, want 1", len(calls))
	}
	if !strings.Contains(calls[0].UserMessage, "asthma") {
		t.Errorf("user message = %q, want it to contain the prompt", calls[0].UserMessage)
	}
}

func TestGenerateTextFallback(t *testing.T) {
	c, _ := newTestClient(t)

	got, err := c.GenerateText(context.Background(), "", "something unregistered")
	if err != nil {
		t.Fatalf("GenerateText() error: %v", err)
	}
	if got != "fallback answer" {
		t.Errorf("GenerateText() = %q, want the mock fallback", got)
	}
}

func TestModelName(t *testing.T) {
	c, _ := newTestClient(t)

	if got := c.ModelName(); got != "mock/test-model" {
		t.Errorf("ModelName() = %q, want mock/test-model", got)
	}
}

func TestStripCodeFences(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "no fences",
			in:   "id: HP:0002099",
			want: "id: HP:0002099",
		},
		{
			name: "yaml fence",
			in:   "```yaml\nid: HP:0002099\nlabel: Asthma\n```",
			want: "id: HP:0002099\nlabel: Asthma",
		},
		{
			name: "bare fence",
			in:   "```\n{\"id\": \"HP:0002099\"}\n```",
			want: "{\"id\": \"HP:0002099\"}",
		},
		{
			name: "surrounding whitespace",
			in:   "\n  ```json\n[1, 2]\n```  \n",
			want: "[1, 2]",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := StripCodeFences(tt.in); got != tt.want {
				t.Errorf("StripCodeFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

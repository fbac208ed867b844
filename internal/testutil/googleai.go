package testutil

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
)

// GoogleAISetup contains all resources needed for live Google AI tests.
type GoogleAISetup struct {
	Embedder ai.Embedder
	Genkit   *genkit.Genkit
	Logger   *slog.Logger
}

// SetupGoogleAI creates a Google AI embedder for integration tests that
// exercise the real embedding API. Skips the test when GEMINI_API_KEY is
// not set. Tests that only need deterministic vectors should use
// MockEmbedder instead.
func SetupGoogleAI(t *testing.T) *GoogleAISetup {
	t.Helper()

	setup, err := SetupGoogleAIForMain()
	if err != nil {
		t.Skip(err.Error())
	}
	return setup
}

// SetupGoogleAIForMain is the TestMain variant of SetupGoogleAI. The caller
// decides whether a missing API key skips the package or fails it.
func SetupGoogleAIForMain() (*GoogleAISetup, error) {
	if os.Getenv("GEMINI_API_KEY") == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not set - skipping tests requiring live embedder")
	}

	g := genkit.Init(context.Background(),
		genkit.WithPlugins(&googlegenai.GoogleAI{}))

	return &GoogleAISetup{
		Embedder: googlegenai.GoogleAIEmbedder(g, "gemini-embedding-001"),
		Genkit:   g,
		Logger:   slog.New(slog.DiscardHandler),
	}, nil
}

package agent

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/firebase/genkit/go/ai"

	"github.com/cdelab/curator/internal/rag"
)

// askSystem instructs the model to answer strictly from retrieved
// documents.
const askSystem = `You are an assistant answering questions about a curated collection.
You are given numbered background documents followed by a question.

Rules:
- Answer using ONLY the background documents
- Cite the documents that support each statement, like [1] or [2]
- If the documents do not contain the answer, say so instead of guessing`

// AskOptions configures a question-answering request.
type AskOptions struct {
	// Collection is searched for background documents.
	Collection string

	// Limit caps how many documents are retrieved. Zero or negative
	// uses the retriever default.
	Limit int
}

// Reference is one background document offered to the model, numbered
// the way the answer cites it.
type Reference struct {
	// Ref is the citation number as it appears in the answer, "1" up.
	Ref string

	// ID is the identifier of the underlying record, when it has one.
	ID string

	// Similarity is the retrieval score against the question.
	Similarity float64

	// Text is the document content shown to the model.
	Text string

	// Cited reports whether the answer body actually cites this
	// reference.
	Cited bool
}

// Answer is a grounded response to a question.
type Answer struct {
	Body       string
	References []Reference
}

// Ask answers a question using documents retrieved from the collection,
// with citations back to the records that support the answer.
func (a *Agent) Ask(ctx context.Context, question string, opts AskOptions) (*Answer, error) {
	if opts.Collection == "" {
		return nil, errors.New("collection is required")
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, errors.New("question is required")
	}

	req := &ai.RetrieverRequest{
		Query:   ai.DocumentFromText(question, nil),
		Options: &rag.Options{K: opts.Limit},
	}
	resp, err := a.retrieverFor(opts.Collection).Retrieve(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("retrieving background documents: %w", err)
	}
	if len(resp.Documents) == 0 {
		return nil, fmt.Errorf("no documents found in %q for the question", opts.Collection)
	}

	refs := make([]Reference, 0, len(resp.Documents))
	var b strings.Builder
	b.WriteString("## Background documents\n")
	for i, doc := range resp.Documents {
		ref := Reference{Ref: strconv.Itoa(i + 1), Text: docText(doc)}
		if id, ok := doc.Metadata["id"].(string); ok {
			ref.ID = id
		}
		if sim, ok := doc.Metadata["similarity"].(float64); ok {
			ref.Similarity = sim
		}
		refs = append(refs, ref)
		fmt.Fprintf(&b, "\n[%s]\n%s\n", ref.Ref, ref.Text)
	}
	b.WriteString("\n## Question\n")
	b.WriteString(question)
	b.WriteString("\n")

	a.logger.Debug("answering question",
		"collection", opts.Collection,
		"documents", len(refs),
		"question_length", len(question))

	body, err := a.llm.GenerateText(ctx, askSystem, b.String())
	if err != nil {
		return nil, fmt.Errorf("answering question: %w", err)
	}

	for i := range refs {
		refs[i].Cited = strings.Contains(body, "["+refs[i].Ref+"]")
	}
	return &Answer{Body: body, References: refs}, nil
}

// docText concatenates the text parts of a retrieved document.
func docText(doc *ai.Document) string {
	var b strings.Builder
	for _, part := range doc.Content {
		if part.Kind == ai.PartText {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

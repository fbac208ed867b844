package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Default fields a summarized object's name and description are read
// from.
const (
	DefaultNameField        = "label"
	DefaultDescriptionField = "description"
)

// DefaultSummarySystemPrompt asks for a cross-object synthesis rather
// than a list of restatements.
const DefaultSummarySystemPrompt = `You are a curation assistant that summarizes sets of database objects.
Write a concise summary of what the objects below have in common and how they differ.
Do not simply restate each object in turn.`

// SummarizeOptions configures a summarization request.
type SummarizeOptions struct {
	// Collection holds the objects to summarize.
	Collection string

	// NameField and DescriptionField name the record fields each
	// object's heading and body are read from. Defaults: "label" and
	// "description".
	NameField        string
	DescriptionField string

	// SystemPrompt overrides DefaultSummarySystemPrompt, steering what
	// the summary should focus on.
	SystemPrompt string
}

// Summarize looks up the identified objects and asks the model for one
// summary across all of them. Any id that does not resolve fails the
// whole call; a summary quietly missing an object would mislead.
func (a *Agent) Summarize(ctx context.Context, ids []string, opts SummarizeOptions) (string, error) {
	if opts.Collection == "" {
		return "", errors.New("collection is required")
	}
	if len(ids) == 0 {
		return "", errors.New("at least one object id is required")
	}

	nameField := opts.NameField
	if nameField == "" {
		nameField = DefaultNameField
	}
	descField := opts.DescriptionField
	if descField == "" {
		descField = DefaultDescriptionField
	}

	var b strings.Builder
	b.WriteString("## Objects\n")
	for _, id := range ids {
		rec, err := a.store.Lookup(ctx, opts.Collection, id)
		if err != nil {
			return "", fmt.Errorf("looking up %q: %w", id, err)
		}
		name := fieldOr(rec, nameField, rec.ID())
		desc := fieldOr(rec, descField, "")
		if desc == "" {
			fmt.Fprintf(&b, "\n%s\n", name)
		} else {
			fmt.Fprintf(&b, "\n%s: %s\n", name, desc)
		}
	}
	b.WriteString("\nSummarize the objects.\n")

	system := opts.SystemPrompt
	if system == "" {
		system = DefaultSummarySystemPrompt
	}

	a.logger.Debug("summarizing objects",
		"collection", opts.Collection,
		"objects", len(ids))

	summary, err := a.llm.GenerateText(ctx, system, b.String())
	if err != nil {
		return "", fmt.Errorf("summarizing objects: %w", err)
	}
	return summary, nil
}

package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/cdelab/curator/internal/agent"
)

var (
	askCollection string
	askLimit      int
	askPlain      bool
)

var askCmd = &cobra.Command{
	Use:   "ask QUESTION...",
	Short: "Answer a question from a collection, with citations",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askCollection, "collection", "c", "", "collection to retrieve background from (required)")
	askCmd.Flags().IntVarP(&askLimit, "limit", "l", 0, "background documents to retrieve")
	askCmd.Flags().BoolVar(&askPlain, "plain", false, "skip markdown rendering")
	_ = askCmd.MarkFlagRequired("collection")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(a)

	answer, err := a.Agent.Ask(ctx, strings.Join(args, " "), agent.AskOptions{
		Collection: askCollection,
		Limit:      askLimit,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderMarkdown(answer.Body, askPlain))

	cited := citedReferences(answer.References)
	if len(cited) == 0 {
		return nil
	}
	fmt.Fprintln(out, "References:")
	for _, ref := range cited {
		id := ref.ID
		if id == "" {
			id = "(no id)"
		}
		fmt.Fprintf(out, "  [%s] %s (similarity %.3f)\n", ref.Ref, id, ref.Similarity)
	}
	return nil
}

// renderMarkdown pretty-prints markdown for the terminal, falling back
// to the raw text when rendering is unavailable.
func renderMarkdown(body string, plain bool) string {
	if plain {
		return body
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return body
	}
	rendered, err := r.Render(body)
	if err != nil {
		return body
	}
	return strings.TrimRight(rendered, "\n")
}

// citedReferences filters to the references the answer actually cites.
func citedReferences(refs []agent.Reference) []agent.Reference {
	var cited []agent.Reference
	for _, ref := range refs {
		if ref.Cited {
			cited = append(cited, ref)
		}
	}
	return cited
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cdelab/curator/internal/agent"
)

var (
	annotateCollection  string
	annotateInput       string
	annotatePrefixes    []string
	annotateCategories  []string
	annotateIDField     string
	annotateLabelField  string
	annotateCandidates  int
	annotatePerSentence bool
	annotateJSON        bool
)

// annotationOut is the printable shape of one annotated passage.
type annotationOut struct {
	Mention string `json:"mention" yaml:"mention"`
	ID      string `json:"id" yaml:"id"`
	Label   string `json:"label,omitempty" yaml:"label,omitempty"`
}

type annotatedOut struct {
	Text        string          `json:"text" yaml:"text"`
	Annotations []annotationOut `json:"annotations,omitempty" yaml:"annotations,omitempty"`
}

func printableAnnotated(a *agent.AnnotatedText) annotatedOut {
	out := annotatedOut{Text: a.Text}
	for _, ann := range a.Annotations {
		out.Annotations = append(out.Annotations, annotationOut{
			Mention: ann.Mention,
			ID:      ann.ID,
			Label:   ann.Label,
		})
	}
	return out
}

var annotateCmd = &cobra.Command{
	Use:   "annotate [TEXT...]",
	Short: "Recognize collection concepts mentioned in text",
	Long: `Annotate marks up mentions of concepts from the collection in a passage.
Every reported concept is verified against the collection, so the output
never cites an id the collection does not hold. Text comes from the
arguments, --input, or stdin.`,
	RunE: runAnnotate,
}

func init() {
	annotateCmd.Flags().StringVarP(&annotateCollection, "collection", "c", "", "concept collection to annotate against (required)")
	annotateCmd.Flags().StringVarP(&annotateInput, "input", "i", "", "file to read the passage from")
	annotateCmd.Flags().StringSliceVar(&annotatePrefixes, "prefix", nil, "restrict concepts to these id prefixes")
	annotateCmd.Flags().StringSliceVar(&annotateCategories, "category", nil, "restrict concepts to these categories")
	annotateCmd.Flags().StringVar(&annotateIDField, "id-field", "", "record field holding the concept id (default id)")
	annotateCmd.Flags().StringVar(&annotateLabelField, "label-field", "", "record field holding the concept label (default label)")
	annotateCmd.Flags().IntVar(&annotateCandidates, "candidates", 0, "candidate concepts to retrieve per passage")
	annotateCmd.Flags().BoolVar(&annotatePerSentence, "per-sentence", false, "annotate each sentence separately")
	annotateCmd.Flags().BoolVar(&annotateJSON, "json", false, "output JSON instead of YAML")
	_ = annotateCmd.MarkFlagRequired("collection")
	rootCmd.AddCommand(annotateCmd)
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	text, err := readInput(args, annotateInput)
	if err != nil {
		return err
	}

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(a)

	opts := agent.AnnotateOptions{
		Collection:      annotateCollection,
		Prefixes:        annotatePrefixes,
		Categories:      annotateCategories,
		IdentifierField: annotateIDField,
		LabelField:      annotateLabelField,
		CandidateTerms:  annotateCandidates,
	}

	passages := []string{text}
	if annotatePerSentence {
		passages = agent.SplitSentences(text)
	}

	out := cmd.OutOrStdout()
	for i, passage := range passages {
		annotated, err := a.Agent.Annotate(ctx, passage, opts)
		if err != nil {
			return err
		}
		printable := printableAnnotated(annotated)
		if annotateJSON {
			if err := printJSONLine(out, printable); err != nil {
				return err
			}
			continue
		}
		if i > 0 {
			if _, err := fmt.Fprintln(out, "---"); err != nil {
				return err
			}
		}
		if err := printYAML(out, printable); err != nil {
			return err
		}
	}
	return nil
}

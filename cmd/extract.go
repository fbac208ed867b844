package cmd

import (
	"github.com/spf13/cobra"

	"github.com/cdelab/curator/internal/agent"
)

var (
	extractCollection string
	extractInput      string
	extractRules      []string
	extractExamples   int
	extractJSON       bool
)

var extractCmd = &cobra.Command{
	Use:   "extract [TEXT...]",
	Short: "Extract a structured object from free text",
	Long: `Extract reads a passage and returns one structured object shaped like
the objects already in the collection, which serve as few-shot examples.
Text comes from the arguments, --input, or stdin.`,
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVarP(&extractCollection, "collection", "c", "", "collection supplying example objects (required)")
	extractCmd.Flags().StringVarP(&extractInput, "input", "i", "", "file to read the passage from")
	extractCmd.Flags().StringArrayVar(&extractRules, "rule", nil, "extra instruction for the model (repeatable)")
	extractCmd.Flags().IntVar(&extractExamples, "examples", 0, "few-shot examples to retrieve")
	extractCmd.Flags().BoolVar(&extractJSON, "json", false, "output JSON instead of YAML")
	_ = extractCmd.MarkFlagRequired("collection")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	text, err := readInput(args, extractInput)
	if err != nil {
		return err
	}

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(a)

	res, err := a.Agent.Extract(ctx, text, agent.ExtractOptions{
		Collection: extractCollection,
		Rules:      extractRules,
		Examples:   extractExamples,
	})
	if err != nil {
		return err
	}

	if extractJSON {
		return printJSON(cmd.OutOrStdout(), res.Object)
	}
	return printYAML(cmd.OutOrStdout(), res.Object)
}

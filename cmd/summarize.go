package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cdelab/curator/internal/agent"
)

var (
	summarizeCollection string
	summarizeNameField  string
	summarizeDescField  string
	summarizePrompt     string
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize ID...",
	Short: "Summarize a set of objects in one pass",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSummarize,
}

func init() {
	summarizeCmd.Flags().StringVarP(&summarizeCollection, "collection", "c", "", "collection holding the objects (required)")
	summarizeCmd.Flags().StringVar(&summarizeNameField, "name-field", "", "record field used as each object's heading (default label)")
	summarizeCmd.Flags().StringVar(&summarizeDescField, "description-field", "", "record field used as each object's body (default description)")
	summarizeCmd.Flags().StringVar(&summarizePrompt, "system-prompt", "", "override the summarization instructions")
	_ = summarizeCmd.MarkFlagRequired("collection")
	rootCmd.AddCommand(summarizeCmd)
}

func runSummarize(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(a)

	summary, err := a.Agent.Summarize(ctx, args, agent.SummarizeOptions{
		Collection:       summarizeCollection,
		NameField:        summarizeNameField,
		DescriptionField: summarizeDescField,
		SystemPrompt:     summarizePrompt,
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), summary)
	return nil
}

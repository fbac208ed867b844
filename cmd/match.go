package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	matchCollection string

	matchAllSource  string
	matchAllAgainst string
	matchAllField   string
)

var matchCmd = &cobra.Command{
	Use:   "match TEXT...",
	Short: "Ground free text to its best concept",
	Long: `Match retrieves candidate concepts for the text by similarity, scores
each candidate with a concept-recognition check, and reports the concept
that grounds most confidently. All-zero confidence means no match.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMatch,
}

var matchAllCmd = &cobra.Command{
	Use:   "match-collection",
	Short: "Ground every record of a collection, as a TSV report",
	Args:  cobra.NoArgs,
	RunE:  runMatchCollection,
}

func init() {
	matchCmd.Flags().StringVarP(&matchCollection, "collection", "c", "", "concept collection to ground against (required)")
	_ = matchCmd.MarkFlagRequired("collection")
	rootCmd.AddCommand(matchCmd)

	matchAllCmd.Flags().StringVarP(&matchAllSource, "collection", "c", "", "collection whose records are matched (required)")
	matchAllCmd.Flags().StringVar(&matchAllAgainst, "against", "", "concept collection to ground against (required)")
	matchAllCmd.Flags().StringVar(&matchAllField, "field", "label", "record field holding the free text")
	_ = matchAllCmd.MarkFlagRequired("collection")
	_ = matchAllCmd.MarkFlagRequired("against")
	rootCmd.AddCommand(matchAllCmd)
}

func runMatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(a)

	id, ok, err := a.Agent.Matcher(matchCollection).FindBestMatch(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(cmd.OutOrStdout(), "no match")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}

func runMatchCollection(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(a)

	records, err := a.Store.Dump(ctx, matchAllSource)
	if err != nil {
		return err
	}

	matcher := a.Agent.Matcher(matchAllAgainst)
	report, err := matcher.MatchCollection(ctx, records, matchAllField, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	a.Logger.Info("collection matched",
		"collection", matchAllSource,
		"matched", report.Matched,
		"unmatched", report.Unmatched,
		"failed", report.Failed)
	return nil
}

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cdelab/curator/internal/record"
	"github.com/cdelab/curator/internal/store"
)

var (
	searchCollection string
	searchLimit      int
	searchMinScore   float64
	searchJSON       bool
)

// searchHit is the printable shape of one search result.
type searchHit struct {
	ID     string         `json:"id,omitempty" yaml:"id,omitempty"`
	Score  float64        `json:"score" yaml:"score"`
	Object *record.Record `json:"object" yaml:"object"`
}

var searchCmd = &cobra.Command{
	Use:   "search QUERY...",
	Short: "Search a collection by semantic similarity",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchCollection, "collection", "c", "", "collection to search (required)")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "l", 0, "maximum results (default from config)")
	searchCmd.Flags().Float64Var(&searchMinScore, "min-score", 0, "minimum similarity score (default from config)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output JSON lines instead of YAML")
	_ = searchCmd.MarkFlagRequired("collection")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(a)

	limit := searchLimit
	if !cmd.Flags().Changed("limit") {
		limit = a.Config.SearchLimit
	}
	minScore := searchMinScore
	if !cmd.Flags().Changed("min-score") {
		minScore = a.Config.RelevanceFactor
	}

	hits, err := a.Store.Search(ctx, searchCollection, strings.Join(args, " "),
		store.WithLimit(limit), store.WithMinScore(minScore))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for i, hit := range hits {
		printable := searchHit{ID: hit.ID, Score: hit.Score, Object: hit.Record}
		if searchJSON {
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

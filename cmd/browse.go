package cmd

import (
	"fmt"

	tea "charm.land/bubbletea/v2"
	"github.com/spf13/cobra"

	"github.com/cdelab/curator/internal/tui"
)

var (
	browseCollection string
	browseLimit      int
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse a collection interactively",
	Long: `Browse opens a terminal search session over a collection: type a
query, walk the ranked results, and inspect any object in full.`,
	Args: cobra.NoArgs,
	RunE: runBrowse,
}

func init() {
	browseCmd.Flags().StringVarP(&browseCollection, "collection", "c", "", "collection to browse (required)")
	browseCmd.Flags().IntVarP(&browseLimit, "limit", "l", 0, "results per search (default from config)")
	_ = browseCmd.MarkFlagRequired("collection")
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(a)

	limit := browseLimit
	if !cmd.Flags().Changed("limit") {
		limit = a.Config.SearchLimit
	}

	browser, err := tui.New(ctx, a.Store, browseCollection, limit)
	if err != nil {
		return err
	}

	program := tea.NewProgram(browser, tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("running browser: %w", err)
	}
	return nil
}

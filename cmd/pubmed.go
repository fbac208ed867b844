package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cdelab/curator/internal/config"
	"github.com/cdelab/curator/internal/record"
	"github.com/cdelab/curator/internal/sources/pubmed"
	"github.com/cdelab/curator/internal/store"
)

var (
	pubmedLimit       int
	pubmedIDs         []string
	pubmedCollection  string
	pubmedDescription string
)

var pubmedCmd = &cobra.Command{
	Use:   "pubmed",
	Short: "Search and import PubMed articles",
}

var pubmedSearchCmd = &cobra.Command{
	Use:   "search QUERY...",
	Short: "Search PubMed and print matching PMIDs",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPubmedSearch,
}

var pubmedImportCmd = &cobra.Command{
	Use:   "import [QUERY...]",
	Short: "Fetch articles and index them into a collection",
	Long: `Import fetches articles from PubMed and indexes them. Articles come
from a search query, or from explicit PMIDs via --ids.`,
	RunE: runPubmedImport,
}

func init() {
	pubmedSearchCmd.Flags().IntVarP(&pubmedLimit, "limit", "l", 0, "maximum results (default from config)")

	pubmedImportCmd.Flags().IntVarP(&pubmedLimit, "limit", "l", 0, "maximum articles (default from config)")
	pubmedImportCmd.Flags().StringSliceVar(&pubmedIDs, "ids", nil, "import these PMIDs instead of searching")
	pubmedImportCmd.Flags().StringVarP(&pubmedCollection, "collection", "c", "", "target collection (required)")
	pubmedImportCmd.Flags().StringVar(&pubmedDescription, "description", "", "collection description")
	_ = pubmedImportCmd.MarkFlagRequired("collection")

	pubmedCmd.AddCommand(pubmedSearchCmd, pubmedImportCmd)
	rootCmd.AddCommand(pubmedCmd)
}

// pubmedClient builds the E-utilities client from configuration.
func pubmedClient(cfg *config.Config) *pubmed.Client {
	return pubmed.New(pubmed.Config{
		BaseURL: cfg.PubMed.BaseURL,
		Email:   cfg.PubMed.Email,
		APIKey:  cfg.PubMed.APIKey,
		Logger:  newLogger().With("component", "pubmed"),
	})
}

func pubmedRetMax(cmd *cobra.Command, cfg *config.Config) int {
	if cmd.Flags().Changed("limit") {
		return pubmedLimit
	}
	return cfg.PubMed.RetMax
}

func runPubmedSearch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ids, err := pubmedClient(cfg).Search(ctx, strings.Join(args, " "), pubmedRetMax(cmd, cfg))
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Fprintln(cmd.OutOrStdout(), id)
	}
	return nil
}

func runPubmedImport(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && len(pubmedIDs) == 0 {
		return fmt.Errorf("a search query or --ids is required")
	}

	ctx, cancel := signalContext()
	defer cancel()

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(a)

	client := pubmedClient(a.Config)

	var records []*record.Record
	if len(pubmedIDs) > 0 {
		records, err = client.Fetch(ctx, pubmedIDs)
	} else {
		records, err = client.SearchRecords(ctx, strings.Join(args, " "), pubmedRetMax(cmd, a.Config))
	}
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No articles found")
		return nil
	}

	_, infoErr := a.Store.Info(ctx, pubmedCollection)
	isNew := errors.Is(infoErr, store.ErrCollectionNotFound)

	written, err := a.Store.Insert(ctx, pubmedCollection, records)
	if err != nil {
		return err
	}

	// Describe fresh collections; touch existing metadata only when the
	// caller asks for a new description.
	if isNew || cmd.Flags().Changed("description") {
		md := store.Metadata{ObjectType: "Publication", Description: pubmedDescription}
		if err := a.Store.SetMetadata(ctx, pubmedCollection, md); err != nil {
			return err
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d articles into %q\n", written, pubmedCollection)
	return nil
}

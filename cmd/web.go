package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cdelab/curator/internal/sources/web"
	"github.com/cdelab/curator/internal/store"
)

var (
	webCollection  string
	webDescription string
	webDepth       int
	webMaxPages    int
)

var webCmd = &cobra.Command{
	Use:   "web",
	Short: "Import web pages",
}

var webImportCmd = &cobra.Command{
	Use:   "import URL...",
	Short: "Fetch pages, extract readable text, and index it",
	Long: `Import fetches each URL, reduces the page to its readable text, and
indexes one record per page. With --depth above 1, same-site links are
followed up to that depth.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWebImport,
}

func init() {
	webImportCmd.Flags().StringVarP(&webCollection, "collection", "c", "", "target collection (required)")
	webImportCmd.Flags().StringVar(&webDescription, "description", "", "collection description")
	webImportCmd.Flags().IntVar(&webDepth, "depth", 1, "link-following depth, 1 fetches only the named pages")
	webImportCmd.Flags().IntVar(&webMaxPages, "max-pages", 0, "cap the total pages fetched")
	_ = webImportCmd.MarkFlagRequired("collection")
	webCmd.AddCommand(webImportCmd)
	rootCmd.AddCommand(webCmd)
}

func runWebImport(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(a)

	fetcher := web.NewFetcher(web.Config{
		MaxDepth:    webDepth,
		MaxPages:    webMaxPages,
		Parallelism: a.Config.Scraper.Parallelism,
		Delay:       time.Duration(a.Config.Scraper.DelayMs) * time.Millisecond,
		Timeout:     time.Duration(a.Config.Scraper.TimeoutMs) * time.Millisecond,
		Logger:      a.Logger.With("component", "web"),
	})

	records, err := fetcher.Fetch(ctx, args)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No readable pages found")
		return nil
	}

	_, infoErr := a.Store.Info(ctx, webCollection)
	isNew := errors.Is(infoErr, store.ErrCollectionNotFound)

	written, err := a.Store.Insert(ctx, webCollection, records)
	if err != nil {
		return err
	}

	if isNew || cmd.Flags().Changed("description") {
		md := store.Metadata{ObjectType: "WebPage", Description: webDescription}
		if err := a.Store.SetMetadata(ctx, webCollection, md); err != nil {
			return err
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d pages into %q\n", written, webCollection)
	return nil
}

package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cdelab/curator/internal/split"
	"github.com/cdelab/curator/internal/store"
)

// Collection management runs on the storage tier and needs no API keys.
var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "Manage collections",
}

var (
	collectionsJSON      bool
	collectionsPeekLimit int

	collectionsSetType        string
	collectionsSetDescription string
	collectionsSetModel       string

	splitFields        []string
	splitNumTraining   int
	splitNumTesting    int
	splitNumValidation int
	splitRatio         float64
	splitIDsFile       string
)

var collectionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List collections with their metadata and counts",
	Args:  cobra.NoArgs,
	RunE:  runCollectionsList,
}

var collectionsPeekCmd = &cobra.Command{
	Use:   "peek COLLECTION",
	Short: "Show the first few objects of a collection",
	Args:  cobra.ExactArgs(1),
	RunE:  runCollectionsPeek,
}

var collectionsDumpCmd = &cobra.Command{
	Use:   "dump COLLECTION",
	Short: "Write every object of a collection to stdout",
	Args:  cobra.ExactArgs(1),
	RunE:  runCollectionsDump,
}

var collectionsCopyCmd = &cobra.Command{
	Use:   "copy SRC DST",
	Short: "Copy a collection, objects, embeddings and metadata",
	Args:  cobra.ExactArgs(2),
	RunE:  runCollectionsCopy,
}

var collectionsDeleteCmd = &cobra.Command{
	Use:   "delete COLLECTION",
	Short: "Delete a collection",
	Args:  cobra.ExactArgs(1),
	RunE:  runCollectionsDelete,
}

var collectionsSetCmd = &cobra.Command{
	Use:   "set COLLECTION",
	Short: "Update a collection's metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  runCollectionsSet,
}

var collectionsSplitCmd = &cobra.Command{
	Use:   "split COLLECTION",
	Short: "Stratify a collection into training, testing and validation sets",
	Long: `Split partitions a collection into three disjoint sub-collections named
COLLECTION_training, COLLECTION_testing and COLLECTION_validation.

Records holding every --fields value are eligible for testing and
validation; the rest can only train. Existing sub-collections are
replaced. The sets are embedded as they are written, so split needs a
configured AI provider.`,
	Args: cobra.ExactArgs(1),
	RunE: runCollectionsSplit,
}

func init() {
	collectionsListCmd.Flags().BoolVar(&collectionsJSON, "json", false, "output JSON instead of YAML")
	collectionsPeekCmd.Flags().IntVarP(&collectionsPeekLimit, "limit", "l", 5, "objects to show")
	collectionsPeekCmd.Flags().BoolVar(&collectionsJSON, "json", false, "output JSON lines instead of YAML")
	collectionsDumpCmd.Flags().BoolVar(&collectionsJSON, "json", false, "output JSON lines instead of YAML")

	collectionsSetCmd.Flags().StringVar(&collectionsSetType, "object-type", "", "object type stored in the metadata")
	collectionsSetCmd.Flags().StringVar(&collectionsSetDescription, "description", "", "collection description")
	collectionsSetCmd.Flags().StringVar(&collectionsSetModel, "model-name", "", "model that produced the collection")

	collectionsSplitCmd.Flags().StringSliceVar(&splitFields, "fields", nil, "fields a record must hold to be eligible for testing (required)")
	collectionsSplitCmd.Flags().IntVar(&splitNumTraining, "num-training", 0, "cap the training set size")
	collectionsSplitCmd.Flags().IntVar(&splitNumTesting, "num-testing", 0, "testing set size")
	collectionsSplitCmd.Flags().IntVar(&splitNumValidation, "num-validation", 0, "validation set size")
	collectionsSplitCmd.Flags().Float64Var(&splitRatio, "ratio", 0, "testing fraction of the eligible pool")
	collectionsSplitCmd.Flags().StringVar(&splitIDsFile, "testing-ids", "", "file of identifiers forced into the testing set, one per line")
	_ = collectionsSplitCmd.MarkFlagRequired("fields")

	collectionsCmd.AddCommand(collectionsListCmd, collectionsPeekCmd, collectionsDumpCmd,
		collectionsCopyCmd, collectionsDeleteCmd, collectionsSetCmd, collectionsSplitCmd)
	rootCmd.AddCommand(collectionsCmd)
}

func runCollectionsList(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := setupStorage(ctx)
	if err != nil {
		return err
	}
	defer closeApp(a)

	infos, err := a.Store.List(ctx)
	if err != nil {
		return err
	}
	if collectionsJSON {
		return printJSON(cmd.OutOrStdout(), infos)
	}
	return printYAML(cmd.OutOrStdout(), infos)
}

func runCollectionsPeek(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := setupStorage(ctx)
	if err != nil {
		return err
	}
	defer closeApp(a)

	records, err := a.Store.Peek(ctx, args[0], collectionsPeekLimit)
	if err != nil {
		return err
	}
	return printRecords(cmd.OutOrStdout(), records, collectionsJSON)
}

func runCollectionsDump(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := setupStorage(ctx)
	if err != nil {
		return err
	}
	defer closeApp(a)

	records, err := a.Store.Dump(ctx, args[0])
	if err != nil {
		return err
	}
	return printRecords(cmd.OutOrStdout(), records, collectionsJSON)
}

func runCollectionsCopy(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := setupStorage(ctx)
	if err != nil {
		return err
	}
	defer closeApp(a)

	if err := a.Store.Copy(ctx, args[0], args[1]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Copied %q to %q\n", args[0], args[1])
	return nil
}

func runCollectionsDelete(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := setupStorage(ctx)
	if err != nil {
		return err
	}
	defer closeApp(a)

	if err := a.Store.Drop(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %q\n", args[0])
	return nil
}

func runCollectionsSet(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := setupStorage(ctx)
	if err != nil {
		return err
	}
	defer closeApp(a)

	md := store.Metadata{
		ObjectType:  collectionsSetType,
		Description: collectionsSetDescription,
		ModelName:   collectionsSetModel,
	}
	if err := a.Store.SetMetadata(ctx, args[0], md); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated metadata of %q\n", args[0])
	return nil
}

func runCollectionsSplit(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(a)

	source := args[0]
	records, err := a.Store.Dump(ctx, source)
	if err != nil {
		return err
	}

	opts := split.Options{
		NumTraining:   splitNumTraining,
		NumTesting:    splitNumTesting,
		NumValidation: splitNumValidation,
		Ratio:         splitRatio,
	}
	if splitIDsFile != "" {
		f, err := os.Open(splitIDsFile)
		if err != nil {
			return fmt.Errorf("opening testing ids: %w", err)
		}
		ids, err := split.ReadIdentifiers(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("reading testing ids: %w", err)
		}
		opts.TestingIdentifiers = ids
	}

	sc, err := split.Split(records, splitFields, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, suffix := range []string{split.SetTraining, split.SetTesting, split.SetValidation} {
		name := source + "_" + suffix
		set := sc.Set(suffix)
		if err := a.Store.Drop(ctx, name); err != nil && !errors.Is(err, store.ErrCollectionNotFound) {
			return fmt.Errorf("dropping stale collection %q: %w", name, err)
		}
		if len(set) == 0 {
			fmt.Fprintf(out, "%s: empty\n", name)
			continue
		}
		if _, err := a.Store.Insert(ctx, name, set); err != nil {
			return fmt.Errorf("writing %s set: %w", suffix, err)
		}
		md := store.Metadata{Description: fmt.Sprintf("%s set split from %q", suffix, source)}
		if err := a.Store.SetMetadata(ctx, name, md); err != nil {
			return fmt.Errorf("describing %s set: %w", suffix, err)
		}
		fmt.Fprintf(out, "%s: %d objects\n", name, len(set))
	}
	return nil
}

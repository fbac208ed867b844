package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cdelab/curator/internal/agent"
	"github.com/cdelab/curator/internal/record"
)

var (
	completeCollection string
	completeProperty   string
	completeFields     []string
	completeRules      []string
	completeExamples   int
	completeBackground bool
	completeJSON       bool
)

var completeCmd = &cobra.Command{
	Use:   "complete QUERY...",
	Short: "Complete a partial object from collection examples",
	Long: `Complete fills in the missing fields of a partial object, guided by
similar objects retrieved from the collection.

The query is either FIELD=VALUE pairs, an inline YAML mapping, or a bare
string that seeds the query property:

  curator complete -c terms label=asthma
  curator complete -c terms "label: asthma"
  curator complete -c terms asthma`,
	Args: cobra.MinimumNArgs(1),
	RunE: runComplete,
}

func init() {
	completeCmd.Flags().StringVarP(&completeCollection, "collection", "c", "", "collection supplying example objects (required)")
	completeCmd.Flags().StringVarP(&completeProperty, "query-property", "P", "", "field a bare query seeds (default label)")
	completeCmd.Flags().StringSliceVar(&completeFields, "fields", nil, "fields to predict (default all missing)")
	completeCmd.Flags().StringArrayVar(&completeRules, "rule", nil, "extra instruction for the model (repeatable)")
	completeCmd.Flags().IntVar(&completeExamples, "examples", 0, "few-shot examples to retrieve")
	completeCmd.Flags().BoolVar(&completeBackground, "generate-background", false, "generate background knowledge before completing")
	completeCmd.Flags().BoolVar(&completeJSON, "json", false, "output JSON instead of YAML")
	_ = completeCmd.MarkFlagRequired("collection")
	rootCmd.AddCommand(completeCmd)
}

func runComplete(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	seed, err := seedFromArgs(args, completeProperty)
	if err != nil {
		return err
	}

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(a)

	res, err := a.Agent.Complete(ctx, seed, agent.CompleteOptions{
		Collection:         completeCollection,
		FieldsToPredict:    completeFields,
		Rules:              completeRules,
		Examples:           completeExamples,
		GenerateBackground: completeBackground,
	})
	if err != nil {
		return err
	}

	if completeJSON {
		return printJSON(cmd.OutOrStdout(), res.Object)
	}
	return printYAML(cmd.OutOrStdout(), res.Object)
}

// seedFromArgs builds the partial object: FIELD=VALUE pairs become YAML
// lines, anything else passes through to the query parser as-is.
func seedFromArgs(args []string, property string) (*record.Record, error) {
	lines := make([]string, 0, len(args))
	for _, arg := range args {
		if key, value, ok := strings.Cut(arg, "="); ok && !strings.Contains(key, " ") {
			lines = append(lines, fmt.Sprintf("%s: %s", key, value))
			continue
		}
		lines = append(lines, arg)
	}
	return agent.ParseQuery(strings.Join(lines, "\n"), property)
}

package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cdelab/curator/internal/datadict"
)

var (
	datadictOutputDir string
	datadictMaxUnique int
	datadictStdout    bool
)

var datadictCmd = &cobra.Command{
	Use:   "datadict",
	Short: "Parse clinical data dictionaries",
}

var datadictValuesCmd = &cobra.Command{
	Use:   "values DATA.tsv HEADER.htm",
	Short: "Extract the distinct values per column",
	Long: `Values reads a headerless TSV data export and its HTM header table and
reports up to --max-unique distinct values per column. The result is
written to OUTPUT/{stem}_parsed_data_dict.json, where stem comes from
the data file name.`,
	Args: cobra.ExactArgs(2),
	RunE: runDatadictValues,
}

func init() {
	datadictValuesCmd.Flags().StringVarP(&datadictOutputDir, "output", "o", "data", "directory receiving the parsed dictionary")
	datadictValuesCmd.Flags().IntVar(&datadictMaxUnique, "max-unique", 0, "distinct values kept per column")
	datadictValuesCmd.Flags().BoolVar(&datadictStdout, "stdout", false, "print the result instead of writing a file")
	datadictCmd.AddCommand(datadictValuesCmd)
	rootCmd.AddCommand(datadictCmd)
}

func runDatadictValues(cmd *cobra.Command, args []string) error {
	dataPath, headerPath := args[0], args[1]

	rec, err := datadict.ExtractFile(dataPath, headerPath, datadictMaxUnique)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding dictionary: %w", err)
	}

	if datadictStdout {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", data)
		return nil
	}

	if err := os.MkdirAll(datadictOutputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	stem := strings.TrimSuffix(filepath.Base(dataPath), filepath.Ext(dataPath))
	outPath := filepath.Join(datadictOutputDir, stem+"_parsed_data_dict.json")
	if err := os.WriteFile(outPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing dictionary: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d columns)\n", outPath, rec.Len())
	return nil
}

package eval

import (
	"fmt"
	"slices"

	"github.com/cdelab/curator/internal/record"
)

// Defaults for generated tasks.
const (
	// DefaultModelName matches the config package's model default.
	DefaultModelName = "gemini-2.5-flash"

	// DefaultNumTesting is the test case count for generated tasks.
	DefaultNumTesting = 50
)

// DefaultMaskFields hides record identifiers from the predictor so held
// back values cannot be recovered by id lookup.
var DefaultMaskFields = []string{record.FieldID, record.FieldOriginalID}

// ConfigTemplate expands into one task per (collection, model, field,
// background) combination, each predicting a single field.
type ConfigTemplate struct {
	// Collections to evaluate. At least one is required.
	Collections []string `yaml:"collections"`

	// Models to evaluate with. Empty means DefaultModelName.
	Models []string `yaml:"models,omitempty"`

	// FieldsToPredict yields one task per field. At least one is required.
	FieldsToPredict []string `yaml:"fields_to_predict"`

	// FieldsToMask applies to every task. Empty means DefaultMaskFields.
	FieldsToMask []string `yaml:"fields_to_mask,omitempty"`

	// Backgrounds selects the background-generation variants to cover.
	// Empty means background generation off.
	Backgrounds []bool `yaml:"backgrounds,omitempty"`

	// NumTesting caps each task's test cases. Zero means
	// DefaultNumTesting.
	NumTesting int `yaml:"num_testing,omitempty"`

	// WorkingDirectory is copied into every task.
	WorkingDirectory string `yaml:"working_directory,omitempty"`

	// SourceDBURL and TargetDBURL are copied into every task.
	SourceDBURL string `yaml:"source_db_url,omitempty"`
	TargetDBURL string `yaml:"target_db_url,omitempty"`
}

// GenerateTasks expands the template into its full cartesian product, in
// collection, model, field, background order. The expansion is
// deterministic so a regenerated suite diffs cleanly against the last.
func GenerateTasks(tmpl ConfigTemplate) ([]*Task, error) {
	if len(tmpl.Collections) == 0 {
		return nil, fmt.Errorf("%w: at least one collection is required", ErrConfiguration)
	}
	if len(tmpl.FieldsToPredict) == 0 {
		return nil, fmt.Errorf("%w: at least one field to predict is required", ErrConfiguration)
	}

	models := tmpl.Models
	if len(models) == 0 {
		models = []string{DefaultModelName}
	}
	maskFields := tmpl.FieldsToMask
	if len(maskFields) == 0 {
		maskFields = DefaultMaskFields
	}
	backgrounds := tmpl.Backgrounds
	if len(backgrounds) == 0 {
		backgrounds = []bool{false}
	}
	numTesting := tmpl.NumTesting
	if numTesting == 0 {
		numTesting = DefaultNumTesting
	}

	var tasks []*Task
	for _, collection := range tmpl.Collections {
		for _, model := range models {
			for _, field := range tmpl.FieldsToPredict {
				for _, background := range backgrounds {
					tasks = append(tasks, &Task{
						ModelName:          model,
						SourceDBURL:        tmpl.SourceDBURL,
						TargetDBURL:        tmpl.TargetDBURL,
						SourceCollection:   collection,
						FieldsToPredict:    []string{field},
						FieldsToMask:       slices.Clone(maskFields),
						NumTesting:         numTesting,
						GenerateBackground: background,
						WorkingDirectory:   tmpl.WorkingDirectory,
						StratifiedCollection: StratifiedCollectionNames{
							Training: collection + "_training",
							Testing:  collection + "_testing",
						},
					})
				}
			}
		}
	}
	return tasks, nil
}

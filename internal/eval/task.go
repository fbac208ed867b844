// Package eval scores how well a model reconstructs masked record fields.
//
// An evaluation is described by a Task: which collection to draw from,
// which fields the predictor must fill in, and how the collection is
// stratified into training and testing sets. The Runner materializes the
// split, hands each masked testing record to a Predictor that may only
// retrieve from the training set, and compares the predicted values
// against the held-back originals field by field.
package eval

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cdelab/curator/internal/split"
)

// ErrConfiguration indicates an invalid or incomplete task definition.
// Check with errors.Is.
var ErrConfiguration = errors.New("invalid task configuration")

// Task configures one evaluation run. Tasks are loaded from YAML, adjusted
// by command-line overrides, validated fail-fast, and consumed once by the
// Runner.
type Task struct {
	// ModelName is the model the predictor generates with. Empty falls
	// back to the configured default.
	ModelName string `yaml:"model_name,omitempty"`

	// SourceDBURL and TargetDBURL name the databases holding the source
	// collection and receiving the stratified sets. Empty means the
	// ambient database for both.
	SourceDBURL string `yaml:"source_db_url,omitempty"`
	TargetDBURL string `yaml:"target_db_url,omitempty"`

	// SourceCollection is the collection the evaluation draws from.
	SourceCollection string `yaml:"source_collection"`

	// FieldsToPredict are held back from each testing record and must be
	// reconstructed by the predictor.
	FieldsToPredict []string `yaml:"fields_to_predict"`

	// FieldsToMask are additionally hidden from the predictor but not
	// scored. Defaults to FieldsToPredict when unset.
	FieldsToMask []string `yaml:"fields_to_mask,omitempty"`

	// Split sizes, passed through to the stratified splitter. NumTesting
	// also caps how many test cases the evaluator runs.
	NumTraining   int     `yaml:"num_training,omitempty"`
	NumTesting    int     `yaml:"num_testing,omitempty"`
	NumValidation int     `yaml:"num_validation,omitempty"`
	Ratio         float64 `yaml:"ratio,omitempty"`

	// GenerateBackground asks the predictor to generate background
	// knowledge before completing each record.
	GenerateBackground bool `yaml:"generate_background,omitempty"`

	// Rules are extra instructions passed to the predictor.
	Rules []string `yaml:"rules,omitempty"`

	// WorkingDirectory receives the run lock and the result report.
	// Empty means the current directory.
	WorkingDirectory string `yaml:"working_directory,omitempty"`

	// StratifiedCollection overrides the derived set collection names.
	StratifiedCollection StratifiedCollectionNames `yaml:"stratified_collection,omitempty"`

	// Fresh forces a new split even when the testing collection already
	// exists in the target store.
	Fresh bool `yaml:"fresh,omitempty"`
}

// StratifiedCollectionNames holds the collection names the three split
// sets are stored under. Empty names derive from the source collection.
type StratifiedCollectionNames struct {
	Training   string `yaml:"training_set_collection,omitempty"`
	Testing    string `yaml:"testing_set_collection,omitempty"`
	Validation string `yaml:"validation_set_collection,omitempty"`
}

// Validate reports the first configuration problem found.
func (t *Task) Validate() error {
	if t.SourceCollection == "" {
		return fmt.Errorf("%w: source_collection is required", ErrConfiguration)
	}
	if len(t.FieldsToPredict) == 0 {
		return fmt.Errorf("%w: fields_to_predict is required", ErrConfiguration)
	}
	for _, f := range t.FieldsToPredict {
		if f == "" {
			return fmt.Errorf("%w: empty field in fields_to_predict", ErrConfiguration)
		}
	}
	if t.NumTraining < 0 || t.NumTesting < 0 || t.NumValidation < 0 {
		return fmt.Errorf("%w: set sizes must not be negative", ErrConfiguration)
	}
	if t.Ratio < 0 || t.Ratio > 1 {
		return fmt.Errorf("%w: ratio must be within [0, 1], got %v", ErrConfiguration, t.Ratio)
	}
	return nil
}

// MaskFields returns the fields hidden from the predictor, defaulting to
// the fields to predict when the task does not name any.
func (t *Task) MaskFields() []string {
	if len(t.FieldsToMask) > 0 {
		return t.FieldsToMask
	}
	return t.FieldsToPredict
}

// CollectionNames returns the set collection names with unset entries
// derived from the source collection, e.g. "terms_training" for source
// "terms".
func (t *Task) CollectionNames() StratifiedCollectionNames {
	names := t.StratifiedCollection
	if names.Training == "" {
		names.Training = t.SourceCollection + "_" + split.SetTraining
	}
	if names.Testing == "" {
		names.Testing = t.SourceCollection + "_" + split.SetTesting
	}
	if names.Validation == "" {
		names.Validation = t.SourceCollection + "_" + split.SetValidation
	}
	return names
}

// ParseTasks decodes task definitions from YAML. The document may hold a
// single task mapping or a list of them; both normalize to a slice. The
// tasks are not validated here, so overrides can be applied first.
func ParseTasks(data []byte) ([]*Task, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing tasks: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("%w: empty task document", ErrConfiguration)
	}

	root := doc.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		var tasks []*Task
		if err := root.Decode(&tasks); err != nil {
			return nil, fmt.Errorf("parsing task list: %w", err)
		}
		return tasks, nil
	case yaml.MappingNode:
		task := &Task{}
		if err := root.Decode(task); err != nil {
			return nil, fmt.Errorf("parsing task: %w", err)
		}
		return []*Task{task}, nil
	default:
		return nil, fmt.Errorf("%w: task document must be a mapping or a list", ErrConfiguration)
	}
}

// LoadTasks reads task definitions from r.
func LoadTasks(r io.Reader) ([]*Task, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading tasks: %w", err)
	}
	return ParseTasks(data)
}

// LoadTaskFile reads task definitions from a YAML file.
func LoadTaskFile(path string) ([]*Task, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening task file: %w", err)
	}
	defer f.Close()

	tasks, err := LoadTasks(f)
	if err != nil {
		return nil, fmt.Errorf("task file %s: %w", path, err)
	}
	return tasks, nil
}

package eval

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/cdelab/curator/internal/log"
	"github.com/cdelab/curator/internal/record"
	"github.com/cdelab/curator/internal/split"
	"github.com/cdelab/curator/internal/store"
)

// lockFileName guards a working directory against concurrent runs.
const lockFileName = ".curator-eval.lock"

// ErrWorkspaceLocked indicates another evaluation run holds the working
// directory.
var ErrWorkspaceLocked = errors.New("evaluation workspace is locked")

// PredictorFactory builds the predictor for one run. The example
// collection is the training set the predictor may retrieve from; testing
// records must never reach it.
type PredictorFactory func(ctx context.Context, task *Task, exampleCollection string) (Predictor, error)

// RunnerConfig wires a Runner.
type RunnerConfig struct {
	// Source holds the collection named by the task.
	Source *store.Store

	// Target receives the stratified set collections and serves the
	// evaluation reads. Defaults to Source.
	Target *store.Store

	// Factory builds the predictor once the training collection is known.
	Factory PredictorFactory

	// Logger receives run progress. Defaults to a no-op logger.
	Logger log.Logger
}

func (cfg RunnerConfig) validate() error {
	if cfg.Source == nil {
		return errors.New("source store is required")
	}
	if cfg.Factory == nil {
		return errors.New("predictor factory is required")
	}
	return nil
}

// Runner drives an evaluation task end to end: stratify, predict, score,
// report.
type Runner struct {
	source  *store.Store
	target  *store.Store
	factory PredictorFactory
	logger  log.Logger
}

// NewRunner builds a Runner from the config.
func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid runner config: %w", err)
	}
	if cfg.Target == nil {
		cfg.Target = cfg.Source
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNop()
	}
	return &Runner{
		source:  cfg.Source,
		target:  cfg.Target,
		factory: cfg.Factory,
		logger:  cfg.Logger,
	}, nil
}

// Run executes a task: validates it, locks the working directory,
// stratifies the source collection when the testing set is missing or a
// fresh split is requested, evaluates the testing records, and writes the
// result as YAML into the working directory.
//
// Returns ErrWorkspaceLocked when another run holds the same directory.
func (r *Runner) Run(ctx context.Context, task *Task) (*EvaluationResult, error) {
	if task == nil {
		return nil, fmt.Errorf("%w: no task", ErrConfiguration)
	}
	if err := task.Validate(); err != nil {
		return nil, err
	}

	workdir := task.WorkingDirectory
	if workdir == "" {
		workdir = "."
	}
	if err := os.MkdirAll(workdir, 0o755); err != nil {
		return nil, fmt.Errorf("creating working directory: %w", err)
	}

	lock := flock.New(filepath.Join(workdir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("locking workspace %s: %w", workdir, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrWorkspaceLocked, workdir)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			r.logger.Debug("workspace unlock", "error", err)
		}
	}()

	names := task.CollectionNames()
	if err := r.ensureSplit(ctx, task, names); err != nil {
		return nil, err
	}

	testing, err := r.target.Dump(ctx, names.Testing)
	if err != nil {
		return nil, fmt.Errorf("reading testing collection: %w", err)
	}

	predictor, err := r.factory(ctx, task, names.Training)
	if err != nil {
		return nil, fmt.Errorf("building predictor: %w", err)
	}

	evaluator := NewEvaluator(predictor, task.FieldsToPredict, task.MaskFields(), r.logger)
	result, err := evaluator.Evaluate(ctx, testing, task.NumTesting)
	if err != nil {
		return nil, err
	}
	result.RunID = uuid.NewString()
	result.Task = task

	report := filepath.Join(workdir, "results-"+result.RunID+".yaml")
	if err := writeResult(report, result); err != nil {
		return nil, err
	}
	r.logger.Info("evaluation run complete",
		"run_id", result.RunID,
		"collection", task.SourceCollection,
		"report", report)
	return result, nil
}

// ensureSplit materializes the stratified set collections in the target
// store. An existing testing collection is reused unless the task asks
// for a fresh split.
func (r *Runner) ensureSplit(ctx context.Context, task *Task, names StratifiedCollectionNames) error {
	if !task.Fresh {
		if _, err := r.target.Info(ctx, names.Testing); err == nil {
			r.logger.Debug("reusing stratified collections", "testing", names.Testing)
			return nil
		} else if !errors.Is(err, store.ErrCollectionNotFound) {
			return fmt.Errorf("checking testing collection: %w", err)
		}
	}

	source, err := r.source.Dump(ctx, task.SourceCollection)
	if err != nil {
		return fmt.Errorf("reading source collection: %w", err)
	}

	sc, err := split.Split(source, task.FieldsToPredict, split.Options{
		NumTraining:   task.NumTraining,
		NumTesting:    task.NumTesting,
		NumValidation: task.NumValidation,
		Ratio:         task.Ratio,
	})
	if err != nil {
		return fmt.Errorf("splitting %q: %w", task.SourceCollection, err)
	}
	if len(sc.Testing) == 0 {
		return fmt.Errorf("%w: split produced no testing records (set num_testing or ratio)", ErrConfiguration)
	}

	sets := []struct {
		name    string
		suffix  string
		records []*record.Record
	}{
		{names.Training, split.SetTraining, sc.Training},
		{names.Testing, split.SetTesting, sc.Testing},
		{names.Validation, split.SetValidation, sc.Validation},
	}
	for _, set := range sets {
		if err := r.target.Drop(ctx, set.name); err != nil && !errors.Is(err, store.ErrCollectionNotFound) {
			return fmt.Errorf("dropping stale collection %q: %w", set.name, err)
		}
		if len(set.records) == 0 {
			continue
		}
		if _, err := r.target.Insert(ctx, set.name, set.records); err != nil {
			return fmt.Errorf("writing %s set: %w", set.suffix, err)
		}
		md := store.Metadata{
			Description: fmt.Sprintf("%s set split from %q", set.suffix, task.SourceCollection),
		}
		if err := r.target.SetMetadata(ctx, set.name, md); err != nil {
			return fmt.Errorf("describing %s set: %w", set.suffix, err)
		}
	}

	r.logger.Info("stratified source collection",
		"source", task.SourceCollection,
		"training", len(sc.Training),
		"testing", len(sc.Testing),
		"validation", len(sc.Validation))
	return nil
}

// writeResult serializes the report as YAML.
func writeResult(path string, result *EvaluationResult) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing result: %w", err)
	}
	return nil
}

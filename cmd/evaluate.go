package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cdelab/curator/internal/agent"
	"github.com/cdelab/curator/internal/app"
	"github.com/cdelab/curator/internal/eval"
	"github.com/cdelab/curator/internal/llm"
	"github.com/cdelab/curator/internal/store"
)

var (
	evalTaskFile      string
	evalModel         string
	evalCollection    string
	evalFields        []string
	evalNumTraining   int
	evalNumTesting    int
	evalNumValidation int
	evalRatio         float64
	evalRules         []string
	evalBackground    bool
	evalFresh         bool
	evalWorkdir       string
	evalSourceDB      string
	evalTargetDB      string

	evalConfigTemplate string
	evalConfigOut      string
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Run evaluation tasks from a YAML file",
	Long: `Evaluate runs each task in the file: the source collection is split
into training and testing sets, the predictor reconstructs the held-back
fields of every testing record retrieving only from the training set,
and the predictions are scored against the originals.

Flags override the corresponding task fields. Results are written into
the working directory and printed to stdout. Use "-t -" to read tasks
from stdin.`,
	Args: cobra.NoArgs,
	RunE: runEvaluate,
}

var generateEvaluateCmd = &cobra.Command{
	Use:   "generate-evaluate",
	Short: "Split a collection and evaluate it in one shot",
	Long: `Generate-evaluate builds a single evaluation task from flags, with a
fresh stratified split, and runs it. Equivalent to writing a one-task
file and calling evaluate.`,
	Args: cobra.NoArgs,
	RunE: runGenerateEvaluate,
}

var evalConfigCmd = &cobra.Command{
	Use:   "eval-config",
	Short: "Expand an evaluation template into its task suite",
	Long: `Eval-config expands a template into one task per (collection, model,
field, background) combination, in a stable order. The suite is printed
as YAML, ready for evaluate -t.`,
	Args: cobra.NoArgs,
	RunE: runEvalConfig,
}

// addTaskFlags registers the flags that mirror evaluation task fields.
func addTaskFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&evalModel, "model", "m", "", "model the predictor generates with")
	cmd.Flags().StringVarP(&evalCollection, "collection", "c", "", "source collection")
	cmd.Flags().StringSliceVar(&evalFields, "fields", nil, "fields to predict")
	cmd.Flags().IntVar(&evalNumTraining, "num-training", 0, "cap the training set size")
	cmd.Flags().IntVar(&evalNumTesting, "num-testing", 0, "testing set size")
	cmd.Flags().IntVar(&evalNumValidation, "num-validation", 0, "validation set size")
	cmd.Flags().Float64Var(&evalRatio, "ratio", 0, "testing fraction of the eligible pool")
	cmd.Flags().StringArrayVar(&evalRules, "rule", nil, "extra instruction for the predictor (repeatable)")
	cmd.Flags().BoolVar(&evalBackground, "generate-background", false, "generate background knowledge before each prediction")
	cmd.Flags().StringVar(&evalWorkdir, "workdir", "", "directory receiving the run lock and result report")
	cmd.Flags().StringVar(&evalSourceDB, "source-db", "", "database URL holding the source collection")
	cmd.Flags().StringVar(&evalTargetDB, "target-db", "", "database URL receiving the stratified sets")
}

func init() {
	evaluateCmd.Flags().StringVarP(&evalTaskFile, "tasks", "t", "", "task file, or - for stdin (required)")
	addTaskFlags(evaluateCmd)
	evaluateCmd.Flags().BoolVar(&evalFresh, "fresh", false, "force a new split even when one exists")
	_ = evaluateCmd.MarkFlagRequired("tasks")
	rootCmd.AddCommand(evaluateCmd)

	addTaskFlags(generateEvaluateCmd)
	_ = generateEvaluateCmd.MarkFlagRequired("collection")
	_ = generateEvaluateCmd.MarkFlagRequired("fields")
	rootCmd.AddCommand(generateEvaluateCmd)

	evalConfigCmd.Flags().StringVarP(&evalConfigTemplate, "template", "t", "", "template file, or - for stdin (required)")
	evalConfigCmd.Flags().StringVarP(&evalConfigOut, "output", "o", "", "write the suite to a file instead of stdout")
	_ = evalConfigCmd.MarkFlagRequired("template")
	rootCmd.AddCommand(evalConfigCmd)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	tasks, err := loadTasks(evalTaskFile)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(a)

	out := cmd.OutOrStdout()
	for i, task := range tasks {
		applyTaskOverrides(cmd, task)
		result, err := runTask(ctx, a, task)
		if err != nil {
			return err
		}
		if i > 0 {
			if _, err := fmt.Fprintln(out, "---"); err != nil {
				return err
			}
		}
		if err := printYAML(out, result); err != nil {
			return err
		}
	}
	return nil
}

func runGenerateEvaluate(cmd *cobra.Command, args []string) error {
	task := &eval.Task{
		ModelName:          evalModel,
		SourceCollection:   evalCollection,
		FieldsToPredict:    evalFields,
		NumTraining:        evalNumTraining,
		NumTesting:         evalNumTesting,
		NumValidation:      evalNumValidation,
		Ratio:              evalRatio,
		Rules:              evalRules,
		GenerateBackground: evalBackground,
		WorkingDirectory:   evalWorkdir,
		SourceDBURL:        evalSourceDB,
		TargetDBURL:        evalTargetDB,
		Fresh:              true,
	}
	if task.NumTesting == 0 && task.Ratio == 0 {
		task.NumTesting = eval.DefaultNumTesting
	}

	ctx, cancel := signalContext()
	defer cancel()

	a, err := setupApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(a)

	result, err := runTask(ctx, a, task)
	if err != nil {
		return err
	}
	return printYAML(cmd.OutOrStdout(), result)
}

func runEvalConfig(cmd *cobra.Command, args []string) error {
	data, err := readMaybeStdin(evalConfigTemplate)
	if err != nil {
		return err
	}

	var tmpl eval.ConfigTemplate
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return fmt.Errorf("parsing template: %w", err)
	}

	tasks, err := eval.GenerateTasks(tmpl)
	if err != nil {
		return err
	}

	suite, err := yaml.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("encoding suite: %w", err)
	}
	if evalConfigOut != "" {
		return os.WriteFile(evalConfigOut, suite, 0o644)
	}
	_, err = cmd.OutOrStdout().Write(suite)
	return err
}

// loadTasks reads task definitions from a file or stdin.
func loadTasks(path string) ([]*eval.Task, error) {
	if path == "-" {
		return eval.LoadTasks(os.Stdin)
	}
	return eval.LoadTaskFile(path)
}

// readMaybeStdin reads the whole named file, or stdin for "-".
func readMaybeStdin(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading template: %w", err)
	}
	return data, nil
}

// applyTaskOverrides copies changed flags onto the task, so file values
// survive unless the command line names them.
func applyTaskOverrides(cmd *cobra.Command, task *eval.Task) {
	flags := cmd.Flags()
	if flags.Changed("model") {
		task.ModelName = evalModel
	}
	if flags.Changed("collection") {
		task.SourceCollection = evalCollection
	}
	if flags.Changed("fields") {
		task.FieldsToPredict = evalFields
	}
	if flags.Changed("num-training") {
		task.NumTraining = evalNumTraining
	}
	if flags.Changed("num-testing") {
		task.NumTesting = evalNumTesting
	}
	if flags.Changed("num-validation") {
		task.NumValidation = evalNumValidation
	}
	if flags.Changed("ratio") {
		task.Ratio = evalRatio
	}
	if flags.Changed("rule") {
		task.Rules = evalRules
	}
	if flags.Changed("generate-background") {
		task.GenerateBackground = evalBackground
	}
	if flags.Changed("workdir") {
		task.WorkingDirectory = evalWorkdir
	}
	if flags.Changed("source-db") {
		task.SourceDBURL = evalSourceDB
	}
	if flags.Changed("target-db") {
		task.TargetDBURL = evalTargetDB
	}
	if evalFresh {
		task.Fresh = true
	}
}

// runTask resolves the task's databases and drives the runner.
func runTask(ctx context.Context, a *app.App, task *eval.Task) (*eval.EvaluationResult, error) {
	var cleanups []func()
	defer func() {
		for _, cleanup := range cleanups {
			cleanup()
		}
	}()

	source := a.Store
	if task.SourceDBURL != "" {
		st, cleanup, err := a.StoreAt(ctx, task.SourceDBURL)
		if err != nil {
			return nil, fmt.Errorf("opening source database: %w", err)
		}
		source = st
		cleanups = append(cleanups, cleanup)
	}
	target := a.Store
	if task.TargetDBURL != "" {
		st, cleanup, err := a.StoreAt(ctx, task.TargetDBURL)
		if err != nil {
			return nil, fmt.Errorf("opening target database: %w", err)
		}
		target = st
		cleanups = append(cleanups, cleanup)
	}

	runner, err := eval.NewRunner(eval.RunnerConfig{
		Source:  source,
		Target:  target,
		Factory: predictorFactory(a, target),
		Logger:  a.Logger.With("component", "eval"),
	})
	if err != nil {
		return nil, err
	}
	return runner.Run(ctx, task)
}

// predictorFactory builds completion-backed predictors. The ambient
// agent is reused unless the task overrides the model or the training
// set lives in another database.
func predictorFactory(a *app.App, target *store.Store) eval.PredictorFactory {
	return func(ctx context.Context, task *eval.Task, exampleCollection string) (eval.Predictor, error) {
		client := a.LLM
		if task.ModelName != "" {
			qualified := a.Config.QualifyModelName(task.ModelName)
			if qualified != client.ModelName() {
				c, err := llm.New(llm.Config{
					Genkit:    a.Genkit,
					ModelName: qualified,
					Logger:    a.Logger.With("component", "llm"),
				})
				if err != nil {
					return nil, fmt.Errorf("building client for %q: %w", qualified, err)
				}
				client = c
			}
		}

		ag := a.Agent
		if client != a.LLM || target != a.Store {
			var err error
			ag, err = agent.New(agent.Config{
				Genkit: a.Genkit,
				Store:  target,
				LLM:    client,
				Logger: a.Logger.With("component", "agent"),
			})
			if err != nil {
				return nil, err
			}
		}

		return agent.NewPredictor(ag, agent.CompleteOptions{
			Collection:         exampleCollection,
			Rules:              task.Rules,
			GenerateBackground: task.GenerateBackground,
		}), nil
	}
}

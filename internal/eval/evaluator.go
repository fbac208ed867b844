package eval

import (
	"context"
	"fmt"
	"time"

	"github.com/cdelab/curator/internal/log"
	"github.com/cdelab/curator/internal/metrics"
	"github.com/cdelab/curator/internal/record"
)

// Predictor fills held-back fields of a stubbed record. Implementations
// see only the stub; the original values stay with the evaluator.
type Predictor interface {
	Predict(ctx context.Context, stub *record.Record, fieldsToPredict []string) (*record.Record, error)
}

// FieldComparison scores one field of one test case.
type FieldComparison struct {
	Field     string                  `yaml:"field"`
	Expected  string                  `yaml:"expected,omitempty"`
	Predicted string                  `yaml:"predicted,omitempty"`
	Outcomes  []metrics.ScoredOutcome `yaml:"outcomes,omitempty"`
}

// CaseOutcome records one test record's evaluation: either per-field
// comparisons or the error that prevented a prediction.
type CaseOutcome struct {
	ID          string            `yaml:"id,omitempty"`
	Error       string            `yaml:"error,omitempty"`
	Comparisons []FieldComparison `yaml:"comparisons,omitempty"`
}

// FieldResult aggregates one predicted field's metrics across all cases.
type FieldResult struct {
	Field   string                        `yaml:"field"`
	Metrics metrics.ClassificationMetrics `yaml:"metrics"`
}

// EvaluationResult is the serializable report of one evaluation run.
type EvaluationResult struct {
	RunID     string                        `yaml:"run_id,omitempty"`
	Task      *Task                         `yaml:"task,omitempty"`
	Started   time.Time                     `yaml:"started,omitempty"`
	Finished  time.Time                     `yaml:"finished,omitempty"`
	Evaluated int                           `yaml:"evaluated"`
	Failed    int                           `yaml:"failed"`
	Fields    []FieldResult                 `yaml:"fields,omitempty"`
	Overall   metrics.ClassificationMetrics `yaml:"overall"`
	Cases     []CaseOutcome                 `yaml:"cases,omitempty"`
}

// Evaluator masks testing records, collects predictions, and scores them.
type Evaluator struct {
	predictor       Predictor
	fieldsToPredict []string
	stubFields      []string
	logger          log.Logger
}

// NewEvaluator builds an evaluator that hides both the masked and the
// predicted fields from the predictor and scores the predicted ones.
func NewEvaluator(p Predictor, fieldsToPredict, fieldsToMask []string, logger log.Logger) *Evaluator {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Evaluator{
		predictor:       p,
		fieldsToPredict: fieldsToPredict,
		stubFields:      unionFields(fieldsToMask, fieldsToPredict),
		logger:          logger,
	}
}

// Evaluate runs the predictor over the test records and scores every
// predicted field against the held-back original. numTests caps the
// number of cases when positive. A record whose prediction fails is
// logged, counted, and reported, but excluded from the metrics; only
// context cancellation aborts the run.
func (e *Evaluator) Evaluate(ctx context.Context, records []*record.Record, numTests int) (*EvaluationResult, error) {
	if e.predictor == nil {
		return nil, fmt.Errorf("%w: no predictor", ErrConfiguration)
	}
	if len(e.fieldsToPredict) == 0 {
		return nil, fmt.Errorf("%w: fields_to_predict is required", ErrConfiguration)
	}

	result := &EvaluationResult{Started: time.Now().UTC()}
	perField := make(map[string][]metrics.ScoredOutcome, len(e.fieldsToPredict))
	var overall []metrics.ScoredOutcome

	for _, rec := range records {
		if numTests > 0 && len(result.Cases) >= numTests {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("evaluation interrupted: %w", err)
		}

		kase := CaseOutcome{ID: rec.ID()}
		stub := rec.WithoutFields(e.stubFields...)
		predicted, err := e.predictor.Predict(ctx, stub, e.fieldsToPredict)
		if err == nil && predicted == nil {
			err = fmt.Errorf("predictor returned no object")
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("evaluation interrupted: %w", err)
			}
			e.logger.Warn("prediction failed", "id", kase.ID, "error", err)
			kase.Error = err.Error()
			result.Failed++
			result.Cases = append(result.Cases, kase)
			continue
		}

		for _, field := range e.fieldsToPredict {
			expected, _ := rec.Get(field)
			got, _ := predicted.Get(field)
			outcomes := metrics.EvaluatePredictions(got, expected)
			kase.Comparisons = append(kase.Comparisons, FieldComparison{
				Field:     field,
				Expected:  record.Canonical(expected),
				Predicted: record.Canonical(got),
				Outcomes:  outcomes,
			})
			perField[field] = append(perField[field], outcomes...)
			overall = append(overall, outcomes...)
		}
		result.Evaluated++
		result.Cases = append(result.Cases, kase)
		e.logger.Debug("case evaluated", "id", kase.ID, "case", len(result.Cases))
	}

	for _, field := range e.fieldsToPredict {
		result.Fields = append(result.Fields, FieldResult{
			Field:   field,
			Metrics: metrics.Calculate(perField[field]),
		})
	}
	result.Overall = metrics.Calculate(overall)
	result.Finished = time.Now().UTC()

	e.logger.Info("evaluation complete",
		"evaluated", result.Evaluated,
		"failed", result.Failed,
		"f1", result.Overall.F1)
	return result, nil
}

// unionFields merges two field lists, dropping duplicates and empty names
// while preserving first-seen order.
func unionFields(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, f := range a {
		if f != "" && !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	for _, f := range b {
		if f != "" && !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

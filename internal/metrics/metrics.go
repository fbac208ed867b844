// Package metrics scores curation predictions as classification outcomes
// and aggregates per-run scores into summary statistics.
//
// A prediction run produces a sequence of outcomes (true/false
// positive/negative). Calculate turns one run's outcomes into the five
// standard measures; Aggregate combines measures across runs using the
// macro, micro, or weighted strategy.
//
// Error handling follows the codebase convention:
//   - Sentinel errors for programming/configuration mistakes
//   - Wrap with context using fmt.Errorf("%w: details", ErrXxx)
package metrics

import (
	"errors"
	"fmt"
)

// Outcome classifies a single predicted element against expectation.
type Outcome string

// The four classification outcomes.
const (
	TruePositive  Outcome = "True Positive"
	TrueNegative  Outcome = "True Negative"
	FalsePositive Outcome = "False Positive"
	FalseNegative Outcome = "False Negative"
)

// ScoredOutcome pairs an outcome with a short explanation of the element
// that produced it, for inclusion in evaluation reports.
type ScoredOutcome struct {
	Outcome Outcome `json:"outcome" yaml:"outcome"`
	Detail  string  `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// ClassificationMetrics holds the five standard classification measures
// for one run. All values are in [0,1].
type ClassificationMetrics struct {
	Precision   float64 `json:"precision" yaml:"precision"`
	Recall      float64 `json:"recall" yaml:"recall"`
	F1          float64 `json:"f1_score" yaml:"f1_score"`
	Accuracy    float64 `json:"accuracy" yaml:"accuracy"`
	Specificity float64 `json:"specificity" yaml:"specificity"`
}

// AggregationMethod selects how per-run metrics combine into one summary.
type AggregationMethod string

// Supported aggregation methods.
const (
	AggregateMacro    AggregationMethod = "macro"
	AggregateMicro    AggregationMethod = "micro"
	AggregateWeighted AggregationMethod = "weighted"
)

var (
	// ErrInvalidAggregationMethod indicates an unsupported aggregation method.
	ErrInvalidAggregationMethod = errors.New("invalid aggregation method")

	// ErrNoMetrics indicates an aggregation over an empty metrics list.
	ErrNoMetrics = errors.New("no metrics to aggregate")
)

// Calculate counts the outcome kinds and computes the five classification
// measures. Details are ignored; only the outcomes matter. Any measure
// whose denominator is zero is reported as 0 rather than failing, so runs
// with no positives (or no negatives) still score.
func Calculate(outcomes []ScoredOutcome) ClassificationMetrics {
	var tp, tn, fp, fn float64
	for _, o := range outcomes {
		switch o.Outcome {
		case TruePositive:
			tp++
		case TrueNegative:
			tn++
		case FalsePositive:
			fp++
		case FalseNegative:
			fn++
		}
	}

	precision := ratio(tp, tp+fp)
	recall := ratio(tp, tp+fn)
	return ClassificationMetrics{
		Precision:   precision,
		Recall:      recall,
		F1:          ratio(2*precision*recall, precision+recall),
		Accuracy:    ratio(tp+tn, tp+tn+fp+fn),
		Specificity: ratio(tn, tn+fp),
	}
}

// Aggregate combines per-run metrics into a single summary using the given
// method. Returns ErrNoMetrics for an empty list and
// ErrInvalidAggregationMethod for an unknown method.
func Aggregate(list []ClassificationMetrics, method AggregationMethod) (ClassificationMetrics, error) {
	if len(list) == 0 {
		return ClassificationMetrics{}, fmt.Errorf("%w: method %q", ErrNoMetrics, method)
	}

	switch method {
	case AggregateMacro:
		return macro(list), nil
	case AggregateMicro:
		return micro(list), nil
	case AggregateWeighted:
		return weighted(list), nil
	default:
		return ClassificationMetrics{}, fmt.Errorf("%w: %q", ErrInvalidAggregationMethod, method)
	}
}

// macro averages each measure across runs, giving every run equal weight.
func macro(list []ClassificationMetrics) ClassificationMetrics {
	var sum ClassificationMetrics
	for _, m := range list {
		sum.Precision += m.Precision
		sum.Recall += m.Recall
		sum.F1 += m.F1
		sum.Accuracy += m.Accuracy
		sum.Specificity += m.Specificity
	}
	n := float64(len(list))
	return ClassificationMetrics{
		Precision:   sum.Precision / n,
		Recall:      sum.Recall / n,
		F1:          sum.F1 / n,
		Accuracy:    sum.Accuracy / n,
		Specificity: sum.Specificity / n,
	}
}

// micro back-derives approximate pooled TP/FP/FN/TN counts from each run's
// measures and recomputes the five measures over the pool. The derivation
// is lossy (the true counts are not recoverable from ratios alone) but
// weighs runs by their implied volume rather than equally. Zero pooled
// denominators are guarded the same way Calculate guards them.
func micro(list []ClassificationMetrics) ClassificationMetrics {
	var tp, fp, fn float64
	for _, m := range list {
		tp += m.Precision * (m.Recall * (m.Precision + m.F1))
		fp += m.F1 - m.Precision*m.Recall
		fn += (1 - m.Recall) * (m.Precision + m.F1)
	}
	var tn float64
	for _, m := range list {
		tn += m.Accuracy*(m.Precision+m.Recall+m.F1+1) - tp - fp - fn
	}

	precision := ratio(tp, tp+fp)
	recall := ratio(tp, tp+fn)
	return ClassificationMetrics{
		Precision:   precision,
		Recall:      recall,
		F1:          ratio(2*precision*recall, precision+recall),
		Accuracy:    ratio(tp+tn, tp+tn+fp+fn),
		Specificity: ratio(tn, tn+fp),
	}
}

// weighted averages each measure across runs, weighing every run by the
// sum of its own five measures. Runs that scored higher overall contribute
// proportionally more. A zero total weight yields all-zero metrics.
func weighted(list []ClassificationMetrics) ClassificationMetrics {
	var totalWeight float64
	for _, m := range list {
		totalWeight += m.weight()
	}
	if totalWeight == 0 {
		return ClassificationMetrics{}
	}

	var sum ClassificationMetrics
	for _, m := range list {
		w := m.weight()
		sum.Precision += m.Precision * w
		sum.Recall += m.Recall * w
		sum.F1 += m.F1 * w
		sum.Accuracy += m.Accuracy * w
		sum.Specificity += m.Specificity * w
	}
	return ClassificationMetrics{
		Precision:   sum.Precision / totalWeight,
		Recall:      sum.Recall / totalWeight,
		F1:          sum.F1 / totalWeight,
		Accuracy:    sum.Accuracy / totalWeight,
		Specificity: sum.Specificity / totalWeight,
	}
}

func (m ClassificationMetrics) weight() float64 {
	return m.Precision + m.Recall + m.F1 + m.Accuracy + m.Specificity
}

// ratio divides num by den, returning 0 when the denominator is zero.
func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

package metrics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cdelab/curator/internal/record"
)

// EvaluatePredictions compares a predicted value against the expected value
// element-by-element and reports one outcome per distinct element.
//
// When both values are lists, their elements are normalized to canonical
// strings and compared as sets, so element order and mapping key order do
// not matter. Otherwise both values are wrapped as singleton lists first,
// which means a list never matches a bare scalar even when the scalar
// equals one of its elements.
//
// Elements found only in expected score as false negatives, elements found
// only in predicted as false positives, and shared elements as true
// positives. True negatives are never produced: the universe of candidate
// values is unknown, so absence cannot be scored. Results are ordered by
// canonical element string for reproducible reports.
func EvaluatePredictions(predicted, expected record.Value) []ScoredOutcome {
	predItems, predOK := predicted.Items()
	expItems, expOK := expected.Items()
	if !predOK || !expOK {
		predItems = []record.Value{predicted}
		expItems = []record.Value{expected}
	}

	predSet := canonicalSet(predItems)
	expSet := canonicalSet(expItems)

	union := make([]string, 0, len(predSet)+len(expSet))
	for x := range predSet {
		union = append(union, x)
	}
	for x := range expSet {
		if !predSet[x] {
			union = append(union, x)
		}
	}
	sort.Strings(union)

	outcomes := make([]ScoredOutcome, 0, len(union))
	for _, x := range union {
		switch {
		case !predSet[x]:
			outcomes = append(outcomes, ScoredOutcome{
				Outcome: FalseNegative,
				Detail:  fmt.Sprintf("%s in %s", x, formatSet(expSet)),
			})
		case !expSet[x]:
			outcomes = append(outcomes, ScoredOutcome{
				Outcome: FalsePositive,
				Detail:  fmt.Sprintf("%s in %s", x, formatSet(predSet)),
			})
		default:
			outcomes = append(outcomes, ScoredOutcome{
				Outcome: TruePositive,
				Detail:  x + " in both",
			})
		}
	}
	return outcomes
}

// canonicalSet normalizes each value to its canonical string form.
func canonicalSet(items []record.Value) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, it := range items {
		set[record.Canonical(it)] = true
	}
	return set
}

// formatSet renders a set in sorted order for detail messages.
func formatSet(set map[string]bool) string {
	elems := make([]string, 0, len(set))
	for x := range set {
		elems = append(elems, x)
	}
	sort.Strings(elems)
	return "{" + strings.Join(elems, ", ") + "}"
}

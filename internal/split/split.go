// Package split partitions a collection of records into training, testing,
// and validation sets for evaluation runs.
//
// Splitting is deterministic: records are drawn in source order, never
// shuffled, so re-running a split over the same collection produces the
// same partition. Records missing any of the fields to predict cannot
// serve as test cases and are only ever assigned to training.
package split

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cdelab/curator/internal/record"
)

var (
	// ErrInsufficientData indicates the eligible pool cannot satisfy the
	// requested testing and validation counts.
	ErrInsufficientData = errors.New("insufficient eligible records")

	// ErrNoFields indicates an empty fields-to-predict list.
	ErrNoFields = errors.New("no fields to predict")
)

// Set names, also used as derived collection name suffixes.
const (
	SetTraining   = "training"
	SetTesting    = "testing"
	SetValidation = "validation"
)

// Options controls how a collection is partitioned. Zero values mean
// "unset": NumTesting 0 with Ratio 0 yields an empty testing set, and
// NumTraining 0 leaves the training set untruncated.
type Options struct {
	// NumTraining caps the training set size when positive.
	NumTraining int
	// NumTesting is the number of testing records to draw.
	NumTesting int
	// NumValidation is the number of validation records to draw.
	NumValidation int
	// Ratio derives the testing count as floor(len(eligible) * Ratio)
	// when NumTesting is unset.
	Ratio float64
	// TestingIdentifiers force-assigns the named records to the testing
	// set, overriding NumTesting and Ratio.
	TestingIdentifiers []string
}

// StratifiedCollection is the result of a split: three pairwise-disjoint
// record sets.
type StratifiedCollection struct {
	Training   []*record.Record
	Testing    []*record.Record
	Validation []*record.Record
}

// Set returns the named set (training, testing, or validation), or nil
// for an unknown name. Useful for iterating the three sets by suffix.
func (sc *StratifiedCollection) Set(name string) []*record.Record {
	switch name {
	case SetTraining:
		return sc.Training
	case SetTesting:
		return sc.Testing
	case SetValidation:
		return sc.Validation
	default:
		return nil
	}
}

// Split partitions records into training, testing, and validation sets.
//
// Records holding non-empty values for every field in fieldsToPredict are
// eligible for testing and validation; the rest can only train. Testing
// is drawn first (forced identifiers, explicit count, or ratio — in that
// precedence), then validation, both from the eligible pool in source
// order. Whatever remains, plus all ineligible records, becomes training,
// truncated to NumTraining when set.
//
// Returns ErrInsufficientData when the eligible pool is smaller than the
// requested testing plus validation counts.
func Split(records []*record.Record, fieldsToPredict []string, opts Options) (*StratifiedCollection, error) {
	if len(fieldsToPredict) == 0 {
		return nil, ErrNoFields
	}

	var eligible, ineligible []*record.Record
	for _, r := range records {
		if hasAllFields(r, fieldsToPredict) {
			eligible = append(eligible, r)
		} else {
			ineligible = append(ineligible, r)
		}
	}

	var testing []*record.Record
	if len(opts.TestingIdentifiers) > 0 {
		testing, eligible, ineligible = takeByIdentifier(opts.TestingIdentifiers, eligible, ineligible)
	} else {
		count := opts.NumTesting
		if count == 0 && opts.Ratio > 0 {
			count = int(float64(len(eligible)) * opts.Ratio)
		}
		if count+opts.NumValidation > len(eligible) {
			return nil, fmt.Errorf("%w: need %d testing + %d validation, have %d eligible",
				ErrInsufficientData, count, opts.NumValidation, len(eligible))
		}
		testing = eligible[:count]
		eligible = eligible[count:]
	}

	if opts.NumValidation > len(eligible) {
		return nil, fmt.Errorf("%w: need %d validation, have %d eligible after testing",
			ErrInsufficientData, opts.NumValidation, len(eligible))
	}
	validation := eligible[:opts.NumValidation]
	eligible = eligible[opts.NumValidation:]

	training := make([]*record.Record, 0, len(eligible)+len(ineligible))
	training = append(training, eligible...)
	training = append(training, ineligible...)
	if opts.NumTraining > 0 && len(training) > opts.NumTraining {
		training = training[:opts.NumTraining]
	}

	return &StratifiedCollection{
		Training:   training,
		Testing:    testing,
		Validation: validation,
	}, nil
}

// hasAllFields reports whether the record holds a non-empty value for
// every named field.
func hasAllFields(r *record.Record, fields []string) bool {
	for _, f := range fields {
		v, ok := r.Get(f)
		if !ok || v.Empty() {
			return false
		}
	}
	return true
}

// takeByIdentifier pulls the named records out of both pools and returns
// them in identifier-list order, followed by the remaining pools. The
// first record bearing an identifier wins; identifiers that match nothing
// are skipped.
func takeByIdentifier(ids []string, eligible, ineligible []*record.Record) (testing, keepEligible, keepIneligible []*record.Record) {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	found := make(map[string]*record.Record, len(ids))
	take := func(pool []*record.Record) []*record.Record {
		var keep []*record.Record
		for _, r := range pool {
			if id := r.ID(); id != "" && wanted[id] && found[id] == nil {
				found[id] = r
				continue
			}
			keep = append(keep, r)
		}
		return keep
	}
	keepEligible = take(eligible)
	keepIneligible = take(ineligible)

	for _, id := range ids {
		if r, ok := found[id]; ok {
			testing = append(testing, r)
			delete(found, id)
		}
	}
	return testing, keepEligible, keepIneligible
}

// ReadIdentifiers parses a testing-identifier list: one identifier per
// line, first whitespace-separated token, blank lines skipped.
func ReadIdentifiers(r io.Reader) ([]string, error) {
	var ids []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		ids = append(ids, fields[0])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading identifiers: %w", err)
	}
	return ids, nil
}

package ingest

import (
	"fmt"
	"strings"

	"github.com/cdelab/curator/internal/record"
)

// SelectPath narrows each record to the subtree at a dotted path such
// as "graphs.nodes". A leading "$." is accepted and ignored. When an
// intermediate value is a list the rest of the path applies to every
// element, so obograph-style documents select cleanly. Records that do
// not contain the path contribute nothing.
func SelectPath(records []*record.Record, path string) ([]*record.Record, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(path), "$")
	trimmed = strings.TrimPrefix(trimmed, ".")
	if trimmed == "" {
		return nil, fmt.Errorf("empty select path %q", path)
	}
	steps := strings.Split(trimmed, ".")
	for _, step := range steps {
		if step == "" {
			return nil, fmt.Errorf("select path %q has an empty segment", path)
		}
	}

	var out []*record.Record
	for _, rec := range records {
		out = append(out, selectIn(record.Object(rec), steps)...)
	}
	return out, nil
}

func selectIn(v record.Value, steps []string) []*record.Record {
	if len(steps) == 0 {
		return collectObjects(v)
	}
	if items, ok := v.Items(); ok {
		var out []*record.Record
		for _, item := range items {
			out = append(out, selectIn(item, steps)...)
		}
		return out
	}
	obj, ok := v.Obj()
	if !ok {
		return nil
	}
	next, ok := obj.Get(steps[0])
	if !ok {
		return nil
	}
	return selectIn(next, steps[1:])
}

// collectObjects flattens a selected value into records: an object is
// one record, a list contributes each of its object elements, and
// scalars are dropped.
func collectObjects(v record.Value) []*record.Record {
	if obj, ok := v.Obj(); ok {
		return []*record.Record{obj}
	}
	items, ok := v.Items()
	if !ok {
		return nil
	}
	var out []*record.Record
	for _, item := range items {
		if obj, ok := item.Obj(); ok {
			out = append(out, obj)
		}
	}
	return out
}

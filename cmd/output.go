package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/cdelab/curator/internal/record"
)

// printYAML writes v as a YAML document. Records marshal with their
// fields in insertion order.
func printYAML(w io.Writer, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// printJSON writes v as indented JSON followed by a newline.
func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err = fmt.Fprintln(w)
	return err
}

// printJSONLine writes v as one compact JSON line.
func printJSONLine(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

// printRecords streams records to w, as a "---"-separated YAML stream
// or as JSON lines.
func printRecords(w io.Writer, records []*record.Record, asJSON bool) error {
	for i, r := range records {
		if asJSON {
			data, err := json.Marshal(r)
			if err != nil {
				return fmt.Errorf("encoding record: %w", err)
			}
			if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
				return err
			}
			continue
		}
		if i > 0 {
			if _, err := fmt.Fprintln(w, "---"); err != nil {
				return err
			}
		}
		data, err := yaml.Marshal(r)
		if err != nil {
			return fmt.Errorf("encoding record: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
	}
	return nil
}

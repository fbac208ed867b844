// Package datadict parses clinical data dictionaries where the column
// names of a headerless TSV export live in a separate HTM header table,
// typically windows-1252 encoded. It reports the distinct values seen
// per column, capped so free-text columns stay summarizable.
package datadict

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/cdelab/curator/internal/record"
)

// DefaultMaxUnique caps the distinct values kept per column.
const DefaultMaxUnique = 25

// Headers extracts the column names from a header table: the first td
// of every tbody row, in document order. Rows without a td cell are
// skipped; a cell that is empty after trimming stays in the list as an
// empty name so later columns keep their positions. The reader may be
// windows-1252 or any other encoding the HTML charset sniffer handles.
func Headers(r io.Reader) ([]string, error) {
	decoded, err := charset.NewReader(r, "text/html")
	if err != nil {
		return nil, fmt.Errorf("detecting header encoding: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(decoded)
	if err != nil {
		return nil, fmt.Errorf("parsing header table: %w", err)
	}

	var headers []string
	doc.Find("tbody tr").Each(func(_ int, row *goquery.Selection) {
		cell := row.Find("td").First()
		if cell.Length() == 0 {
			return
		}
		headers = append(headers, strings.TrimSpace(cell.Text()))
	})
	return headers, nil
}

// UniqueValues scans headerless tab-separated data and collects up to
// maxUnique distinct values for each named column, in first-seen
// order. The result maps each column name to its value list, with
// fields in header order. Cells past the header count are dropped and
// short rows read as empty strings. A non-positive maxUnique means
// DefaultMaxUnique.
func UniqueValues(r io.Reader, headers []string, maxUnique int) (*record.Record, error) {
	named := 0
	for _, h := range headers {
		if h != "" {
			named++
		}
	}
	if named == 0 {
		return nil, fmt.Errorf("no named columns")
	}
	if maxUnique <= 0 {
		maxUnique = DefaultMaxUnique
	}

	seen := make(map[string]map[string]bool, named)
	values := make(map[string][]string, named)

	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	row := make(map[string]string, named)
	for {
		cells, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading data row: %w", err)
		}
		// Duplicate column names behave like a keyed row: the
		// rightmost column wins.
		clear(row)
		for i, h := range headers {
			if h == "" {
				continue
			}
			if i < len(cells) {
				row[h] = cells[i]
			} else {
				row[h] = ""
			}
		}
		for h, v := range row {
			set := seen[h]
			if set == nil {
				set = make(map[string]bool)
				seen[h] = set
			}
			if len(set) >= maxUnique || set[v] {
				continue
			}
			set[v] = true
			values[h] = append(values[h], v)
		}
	}

	out := record.New()
	for _, h := range headers {
		if h == "" {
			continue
		}
		vs := make([]record.Value, len(values[h]))
		for i, v := range values[h] {
			vs[i] = record.String(v)
		}
		out.Set(h, record.List(vs...))
	}
	return out, nil
}

// ExtractFile reads the header table and the data file and returns the
// distinct values per column.
func ExtractFile(dataPath, headerPath string, maxUnique int) (*record.Record, error) {
	hf, err := os.Open(headerPath)
	if err != nil {
		return nil, fmt.Errorf("opening header file: %w", err)
	}
	defer hf.Close()

	headers, err := Headers(hf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", headerPath, err)
	}
	if len(headers) == 0 {
		return nil, fmt.Errorf("no column headers in %s", headerPath)
	}

	df, err := os.Open(dataPath)
	if err != nil {
		return nil, fmt.Errorf("opening data file: %w", err)
	}
	defer df.Close()

	rec, err := UniqueValues(df, headers, maxUnique)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", dataPath, err)
	}
	return rec, nil
}

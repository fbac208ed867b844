package ingest

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"gopkg.in/yaml.v3"

	"github.com/cdelab/curator/internal/record"
)

// detectBytes is how much of a file the charset sniffer inspects.
const detectBytes = 4096

// supportedExtensions are the file types the directory walk ingests.
// Explicitly named files additionally fall back to YAML parsing.
var supportedExtensions = map[string]bool{
	".json":  true,
	".jsonl": true,
	".csv":   true,
	".tsv":   true,
	".yaml":  true,
	".yml":   true,
}

// Supported reports whether the file name carries an ingestable
// extension. Gzip compression is transparent, so "data.tsv.gz" counts.
func Supported(name string) bool {
	name = strings.ToLower(name)
	name = strings.TrimSuffix(name, ".gz")
	return supportedExtensions[filepath.Ext(name)]
}

// ReadFile loads all objects from one file, picking the parser from the
// file extension: .json, .jsonl, .csv, .tsv, and .yaml/.yml, each
// optionally gzipped. Unknown extensions are tried as YAML. Text that is
// not valid UTF-8 is transcoded via charset sniffing, falling back to
// windows-1252 the way browsers do.
func ReadFile(path string) ([]*record.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	name := strings.ToLower(filepath.Base(path))
	if strings.HasSuffix(name, ".gz") {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("opening gzip %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
		name = strings.TrimSuffix(name, ".gz")
	}

	records, err := readFormat(decodeReader(r), filepath.Ext(name))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

func readFormat(r io.Reader, ext string) ([]*record.Record, error) {
	switch ext {
	case ".json":
		return readJSON(r)
	case ".jsonl":
		return readJSONLines(r)
	case ".csv":
		return readDelimited(r, ',')
	case ".tsv":
		return readDelimited(r, '\t')
	default:
		return readYAML(r)
	}
}

// readJSON parses a document holding either a list of objects or a
// single object.
func readJSON(r io.Reader) ([]*record.Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading json: %w", err)
	}
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var records []*record.Record
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("parsing json list: %w", err)
		}
		return records, nil
	}
	rec := record.New()
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("parsing json object: %w", err)
	}
	return []*record.Record{rec}, nil
}

// readJSONLines parses a stream of concatenated JSON objects, one per
// line or not; the decoder does not care about the separators.
func readJSONLines(r io.Reader) ([]*record.Record, error) {
	dec := json.NewDecoder(r)
	var records []*record.Record
	for {
		rec := record.New()
		if err := dec.Decode(rec); err != nil {
			if errors.Is(err, io.EOF) {
				return records, nil
			}
			return nil, fmt.Errorf("parsing json object %d: %w", len(records)+1, err)
		}
		records = append(records, rec)
	}
}

// readDelimited parses header-first tabular data: every row becomes an
// object keyed by the header names, values kept as strings. Short rows
// leave the trailing fields empty; extra cells are dropped.
func readDelimited(r io.Reader, comma rune) ([]*record.Record, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	var records []*record.Record
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", len(records)+2, err)
		}
		rec := record.New()
		for i, name := range header {
			if name == "" {
				continue
			}
			value := ""
			if i < len(row) {
				value = row[i]
			}
			rec.Set(name, record.String(value))
		}
		records = append(records, rec)
	}
}

// readYAML parses a document holding either a list of objects or a
// single object, preserving field order.
func readYAML(r io.Reader) ([]*record.Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading yaml: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		var records []*record.Record
		if err := root.Decode(&records); err != nil {
			return nil, fmt.Errorf("parsing yaml list: %w", err)
		}
		return records, nil
	case yaml.MappingNode:
		rec := record.New()
		if err := root.Decode(rec); err != nil {
			return nil, fmt.Errorf("parsing yaml object: %w", err)
		}
		return []*record.Record{rec}, nil
	default:
		return nil, fmt.Errorf("yaml document holds no objects")
	}
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeReader wraps r so its contents arrive as UTF-8. A leading BOM
// is dropped, valid UTF-8 passes through untouched, and anything else
// goes through the HTML charset sniffer, whose fallback is
// windows-1252.
func decodeReader(r io.Reader) io.Reader {
	br := bufio.NewReaderSize(r, detectBytes)
	prefix, err := br.Peek(detectBytes)
	whole := errors.Is(err, io.EOF)
	if err != nil && !whole {
		return br
	}
	if bytes.HasPrefix(prefix, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
		return br
	}
	if looksUTF8(prefix, whole) {
		return br
	}
	enc, _, _ := charset.DetermineEncoding(prefix, "")
	return enc.NewDecoder().Reader(br)
}

// looksUTF8 reports whether the sniffed prefix is valid UTF-8. When the
// prefix is only a window into a larger file the last rune may be cut
// short, so an incomplete trailing sequence is trimmed first.
func looksUTF8(b []byte, whole bool) bool {
	if !whole {
		for len(b) > 0 && !utf8.RuneStart(b[len(b)-1]) {
			b = b[:len(b)-1]
		}
		if len(b) > 0 && b[len(b)-1] >= utf8.RuneSelf {
			b = b[:len(b)-1]
		}
	}
	return utf8.Valid(b)
}

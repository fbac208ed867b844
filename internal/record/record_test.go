package record

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
)

func TestRecordOrderPreserved(t *testing.T) {
	r := New()
	r.Set("name", String("hemoglobin"))
	r.Set("id", String("HP:0001877"))
	r.Set("synonyms", List(String("Hb"), String("Hgb")))

	want := []string{"name", "id", "synonyms"}
	if diff := cmp.Diff(want, r.Keys()); diff != "" {
		t.Errorf("key order mismatch (-want +got):\n%s", diff)
	}

	// Overwriting keeps the original position.
	r.Set("name", String("haemoglobin"))
	if diff := cmp.Diff(want, r.Keys()); diff != "" {
		t.Errorf("key order changed on overwrite (-want +got):\n%s", diff)
	}
}

func TestRecordJSONRoundTrip(t *testing.T) {
	in := `{"zeta":"last?","id":"T:1","nested":{"b":2,"a":[1,"two",null]},"flag":true}`

	var r Record
	if err := json.Unmarshal([]byte(in), &r); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	out, err := json.Marshal(&r)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(out) != in {
		t.Errorf("round trip changed document:\n in = %s\nout = %s", in, out)
	}
}

func TestRecordID(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]any
		want   string
	}{
		{"id field", map[string]any{"id": "HP:0001"}, "HP:0001"},
		{"original_id fallback", map[string]any{"original_id": "MONDO:7"}, "MONDO:7"},
		{"id wins over original_id", map[string]any{"id": "A", "original_id": "B"}, "A"},
		{"numeric id", map[string]any{"id": 42}, "42"},
		{"empty id falls back", map[string]any{"id": "", "original_id": "C"}, "C"},
		{"no identifier", map[string]any{"name": "x"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := FromMap(tt.fields)
			if err != nil {
				t.Fatalf("FromMap() error = %v", err)
			}
			if got := r.ID(); got != tt.want {
				t.Errorf("ID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWithoutFields(t *testing.T) {
	r := New()
	r.Set("id", String("X:1"))
	r.Set("label", String("fever"))
	r.Set("definition", String("elevated body temperature"))

	masked := r.WithoutFields("label", "definition", "absent")

	if masked.Has("label") || masked.Has("definition") {
		t.Errorf("masked record still has masked fields: %v", masked.Keys())
	}
	if !masked.Has("id") {
		t.Error("masked record lost unmasked field")
	}
	// The original is untouched.
	if !r.Has("label") || !r.Has("definition") {
		t.Errorf("original record mutated: %v", r.Keys())
	}
}

func TestValueEmpty(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want bool
	}{
		{"null", Null(), true},
		{"empty string", String(""), true},
		{"string", String("x"), false},
		{"zero number", Number(0), false},
		{"false", Bool(false), false},
		{"empty list", List(), true},
		{"list", List(String("a")), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.Empty(); got != tt.want {
				t.Errorf("Empty() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanonicalOrderInsensitive(t *testing.T) {
	a := New()
	a.Set("label", String("fever"))
	a.Set("id", String("HP:1"))

	b := New()
	b.Set("id", String("HP:1"))
	b.Set("label", String("fever"))

	if Canonical(Object(a)) != Canonical(Object(b)) {
		t.Errorf("canonical form depends on insertion order:\n a = %q\n b = %q",
			Canonical(Object(a)), Canonical(Object(b)))
	}
}

func TestCanonicalScalars(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"string verbatim", String("a: b"), "a: b"},
		{"integer", Number(3), "3"},
		{"float", Number(3.5), "3.5"},
		{"bool", Bool(true), "true"},
		{"null", Null(), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Canonical(tt.v); got != tt.want {
				t.Errorf("Canonical() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCanonicalDistinguishesValues(t *testing.T) {
	// Different list contents must canonicalize differently.
	a := List(String("x"), String("y"))
	b := List(String("x"), String("z"))
	if Canonical(a) == Canonical(b) {
		t.Error("distinct lists share a canonical form")
	}
}

func TestFromAnyRejectsUnknownTypes(t *testing.T) {
	if _, err := FromAny(struct{}{}); err == nil {
		t.Error("FromAny(struct{}{}) expected error, got nil")
	}
	if _, err := FromAny([]any{make(chan int)}); err == nil {
		t.Error("FromAny with channel element expected error, got nil")
	}
}

func TestParseYAMLPreservesOrder(t *testing.T) {
	doc := []byte("zeta: 1\nalpha: two\nnested:\n  b: 1\n  a: 2\n")
	r, err := ParseYAML(doc)
	if err != nil {
		t.Fatalf("ParseYAML() error = %v", err)
	}

	want := []string{"zeta", "alpha", "nested"}
	if diff := cmp.Diff(want, r.Keys()); diff != "" {
		t.Errorf("key order mismatch (-want +got):\n%s", diff)
	}

	nested, _ := r.Get("nested")
	obj, ok := nested.Obj()
	if !ok {
		t.Fatalf("nested is %s, want object", nested.Kind())
	}
	if diff := cmp.Diff([]string{"b", "a"}, obj.Keys()); diff != "" {
		t.Errorf("nested key order mismatch (-want +got):\n%s", diff)
	}
}

func TestRecordYAMLRoundTrip(t *testing.T) {
	r := New()
	r.Set("id", String("HP:0001877"))
	r.Set("label", String("abnormal erythrocyte morphology"))
	r.Set("count", Number(4))

	text, err := r.YAML()
	if err != nil {
		t.Fatalf("YAML() error = %v", err)
	}
	back, err := ParseYAML([]byte(text))
	if err != nil {
		t.Fatalf("ParseYAML() error = %v", err)
	}
	if diff := cmp.Diff(r.Keys(), back.Keys()); diff != "" {
		t.Errorf("round trip changed key order (-want +got):\n%s", diff)
	}
	if back.ID() != "HP:0001877" {
		t.Errorf("round trip lost id, got %q", back.ID())
	}
}

func TestRecordYAMLList(t *testing.T) {
	doc := []byte("- zeta: 1\n  alpha: two\n- id: HP:1\n")

	var records []*Record
	if err := yaml.Unmarshal(doc, &records); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if diff := cmp.Diff([]string{"zeta", "alpha"}, records[0].Keys()); diff != "" {
		t.Errorf("key order mismatch (-want +got):\n%s", diff)
	}
	if records[1].ID() != "HP:1" {
		t.Errorf("records[1].ID() = %q, want HP:1", records[1].ID())
	}

	// Marshal goes back through insertion order, not sorted order.
	out, err := yaml.Marshal(records)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if got, want := string(out), "- zeta: 1\n  alpha: two\n- id: HP:1\n"; got != want {
		t.Errorf("Marshal() = %q, want %q", got, want)
	}

	var scalar Record
	if err := yaml.Unmarshal([]byte("plain text"), &scalar); err == nil {
		t.Error("decoding a scalar into a record should fail")
	}
}

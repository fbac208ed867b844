//go:build integration

package store

import (
	"context"
	"errors"
	"log"
	"math"
	"os"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/go-cmp/cmp"

	"github.com/cdelab/curator/internal/record"
	"github.com/cdelab/curator/internal/testutil"
)

// ============================================================
// Setup + Helpers
// ============================================================

var (
	sharedDB  *testutil.TestDBContainer
	sharedEmb *testutil.MockEmbedder
	embedder  ai.Embedder
)

func TestMain(m *testing.M) {
	var (
		cleanup func()
		err     error
	)
	sharedDB, cleanup, err = testutil.SetupTestDBForMain()
	if err != nil {
		log.Fatalf("starting test database: %v", err)
	}

	// One Genkit instance and one mock embedder shared by every test;
	// per-test vectors are pinned with SetVector.
	g := testutil.NewGenkit()
	sharedEmb = testutil.NewMockEmbedder(int(VectorDimension))
	embedder = sharedEmb.RegisterEmbedder(g)

	code := m.Run()
	cleanup()
	os.Exit(code)
}

// setupStoreTest creates a Store on the shared database with the shared
// mock embedder. Truncates all tables for test isolation.
func setupStoreTest(t *testing.T) *Store {
	t.Helper()
	testutil.CleanTables(t, sharedDB.Pool)

	s, err := New(sharedDB.Pool, embedder, testutil.DiscardLogger())
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}
	return s
}

// term builds an ontology-term record with the field order id, label,
// synonyms.
func term(id, label string, synonyms ...string) *record.Record {
	rec := record.New()
	rec.Set("id", record.String(id))
	rec.Set("label", record.String(label))
	if len(synonyms) > 0 {
		items := make([]record.Value, len(synonyms))
		for i, s := range synonyms {
			items[i] = record.String(s)
		}
		rec.Set("synonyms", record.List(items...))
	}
	return rec
}

// vectorAt returns a unit vector at the given angle from the first axis,
// so two vectors at angles a and b have cosine similarity cos(a-b).
func vectorAt(angle float64) []float32 {
	vec := make([]float32, int(VectorDimension))
	vec[0] = float32(math.Cos(angle))
	vec[1] = float32(math.Sin(angle))
	return vec
}

func recordIDs(recs []*record.Record) []string {
	ids := make([]string, len(recs))
	for i, rec := range recs {
		ids[i] = rec.ID()
	}
	return ids
}

func fieldString(t *testing.T, rec *record.Record, key string) string {
	t.Helper()
	v, ok := rec.Get(key)
	if !ok {
		t.Fatalf("record %q has no field %q", rec.ID(), key)
	}
	s, ok := v.Str()
	if !ok {
		t.Fatalf("field %q is not a string", key)
	}
	return s
}

// ============================================================
// Insert + Dump
// ============================================================

func TestInsertAndDump(t *testing.T) {
	s := setupStoreTest(t)
	ctx := context.Background()

	recs := []*record.Record{
		term("HP:0002099", "Asthma", "bronchial asthma"),
		term("HP:0000822", "Hypertension"),
		term("HP:0001945", "Fever", "pyrexia", "hyperthermia"),
	}
	n, err := s.Insert(ctx, "ont_hp", recs)
	if err != nil {
		t.Fatalf("Insert() error: %v", err)
	}
	if n != 3 {
		t.Fatalf("Insert() wrote %d records, want 3", n)
	}

	got, err := s.Dump(ctx, "ont_hp")
	if err != nil {
		t.Fatalf("Dump() error: %v", err)
	}

	// Insertion order is preserved.
	wantIDs := []string{"HP:0002099", "HP:0000822", "HP:0001945"}
	if diff := cmp.Diff(wantIDs, recordIDs(got)); diff != "" {
		t.Errorf("Dump() order mismatch (-want +got):\n%s", diff)
	}

	// Field order survives the round trip through the body column.
	if diff := cmp.Diff([]string{"id", "label", "synonyms"}, got[0].Keys()); diff != "" {
		t.Errorf("Dump()[0].Keys() mismatch (-want +got):\n%s", diff)
	}
}

func TestInsertReplacesByID(t *testing.T) {
	s := setupStoreTest(t)
	ctx := context.Background()

	if _, err := s.Insert(ctx, "ont_hp", []*record.Record{term("HP:0002099", "Asthma")}); err != nil {
		t.Fatalf("Insert() first: %v", err)
	}
	if _, err := s.Insert(ctx, "ont_hp", []*record.Record{term("HP:0002099", "Asthma, revised")}); err != nil {
		t.Fatalf("Insert() second: %v", err)
	}

	count, err := s.Count(ctx, "ont_hp")
	if err != nil {
		t.Fatalf("Count() error: %v", err)
	}
	if count != 1 {
		t.Errorf("Count() = %d, want 1 (same id should replace, not append)", count)
	}

	rec, err := s.Lookup(ctx, "ont_hp", "HP:0002099")
	if err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}
	if got := fieldString(t, rec, "label"); got != "Asthma, revised" {
		t.Errorf("Lookup() label = %q, want %q", got, "Asthma, revised")
	}
}

func TestInsertAnonymousAppends(t *testing.T) {
	s := setupStoreTest(t)
	ctx := context.Background()

	note := record.New()
	note.Set("text", record.String("patient reports wheezing at night"))

	for range 2 {
		if _, err := s.Insert(ctx, "notes", []*record.Record{note}); err != nil {
			t.Fatalf("Insert() error: %v", err)
		}
	}

	count, err := s.Count(ctx, "notes")
	if err != nil {
		t.Fatalf("Count() error: %v", err)
	}
	if count != 2 {
		t.Errorf("Count() = %d, want 2 (records without ids always append)", count)
	}
}

func TestInsertValidation(t *testing.T) {
	s := setupStoreTest(t)
	ctx := context.Background()

	if _, err := s.Insert(ctx, "ont-hp", []*record.Record{term("HP:0002099", "Asthma")}); !errors.Is(err, ErrInvalidCollection) {
		t.Errorf("Insert() with bad name error = %v, want ErrInvalidCollection", err)
	}

	// Inserting nothing must not create the collection.
	if n, err := s.Insert(ctx, "ont_hp", nil); err != nil || n != 0 {
		t.Fatalf("Insert() empty = (%d, %v), want (0, nil)", n, err)
	}
	if _, err := s.Dump(ctx, "ont_hp"); !errors.Is(err, ErrCollectionNotFound) {
		t.Errorf("Dump() after empty insert error = %v, want ErrCollectionNotFound", err)
	}
}

// ============================================================
// Search
// ============================================================

func TestSearchRanksBySimilarity(t *testing.T) {
	s := setupStoreTest(t)
	ctx := context.Background()

	recs := []*record.Record{
		term("HP:0002099", "Asthma"),
		term("HP:0000822", "Hypertension"),
		term("HP:0001945", "Fever"),
	}

	// Pin each document at a known angle from the query vector, so the
	// expected similarity of document i is cos(angles[i]).
	angles := []float64{0.1, 0.5, 1.2}
	for i, rec := range recs {
		sharedEmb.SetVector(RenderText(rec), vectorAt(angles[i]))
	}
	query := "wheezing and shortness of breath"
	sharedEmb.SetVector(query, vectorAt(0))

	if _, err := s.Insert(ctx, "ont_hp", recs); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}

	hits, err := s.Search(ctx, "ont_hp", query)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}

	wantIDs := []string{"HP:0002099", "HP:0000822", "HP:0001945"}
	gotIDs := make([]string, len(hits))
	for i, h := range hits {
		gotIDs[i] = h.ID
	}
	if diff := cmp.Diff(wantIDs, gotIDs); diff != "" {
		t.Fatalf("Search() ranking mismatch (-want +got):\n%s", diff)
	}

	for i, h := range hits {
		want := math.Cos(angles[i])
		if math.Abs(h.Score-want) > 0.01 {
			t.Errorf("Search()[%d].Score = %.4f, want cos(%.1f) = %.4f", i, h.Score, angles[i], want)
		}
		if h.Record == nil {
			t.Fatalf("Search()[%d].Record is nil", i)
		}
	}

	// WithLimit caps how many hits come back, best first.
	hits, err = s.Search(ctx, "ont_hp", query, WithLimit(1))
	if err != nil {
		t.Fatalf("Search(WithLimit) error: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "HP:0002099" {
		t.Errorf("Search(WithLimit(1)) = %v, want single hit HP:0002099", gotHitIDs(hits))
	}

	// WithMinScore drops everything below the threshold: cos(1.2) is about
	// 0.36, so only the two closest documents survive 0.8.
	hits, err = s.Search(ctx, "ont_hp", query, WithMinScore(0.8))
	if err != nil {
		t.Fatalf("Search(WithMinScore) error: %v", err)
	}
	if diff := cmp.Diff([]string{"HP:0002099", "HP:0000822"}, gotHitIDs(hits)); diff != "" {
		t.Errorf("Search(WithMinScore(0.8)) mismatch (-want +got):\n%s", diff)
	}
}

func gotHitIDs(hits []ScoredRecord) []string {
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	return ids
}

func TestSearchEmptyQuery(t *testing.T) {
	s := setupStoreTest(t)
	ctx := context.Background()

	if _, err := s.Insert(ctx, "ont_hp", []*record.Record{term("HP:0002099", "Asthma")}); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}

	hits, err := s.Search(ctx, "ont_hp", "   ")
	if err != nil {
		t.Fatalf("Search() blank query error: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("Search() blank query returned %d hits, want 0", len(hits))
	}
}

// ============================================================
// Lookup
// ============================================================

func TestLookup(t *testing.T) {
	s := setupStoreTest(t)
	ctx := context.Background()

	migraine := record.New()
	migraine.Set("id", record.String("HP:0002076"))
	migraine.Set("original_id", record.String("MONDO:0005277"))
	migraine.Set("label", record.String("Migraine"))

	recs := []*record.Record{term("HP:0002099", "Asthma"), migraine}
	if _, err := s.Insert(ctx, "ont_hp", recs); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}

	// Direct identifier match.
	rec, err := s.Lookup(ctx, "ont_hp", "HP:0002099")
	if err != nil {
		t.Fatalf("Lookup() by id error: %v", err)
	}
	if got := fieldString(t, rec, "label"); got != "Asthma" {
		t.Errorf("Lookup() label = %q, want %q", got, "Asthma")
	}

	// The record's id wins the identifier column, so its original_id is
	// only reachable through the body fallback.
	rec, err = s.Lookup(ctx, "ont_hp", "MONDO:0005277")
	if err != nil {
		t.Fatalf("Lookup() by original_id error: %v", err)
	}
	if got := fieldString(t, rec, "label"); got != "Migraine" {
		t.Errorf("Lookup() label = %q, want %q", got, "Migraine")
	}

	if _, err := s.Lookup(ctx, "ont_hp", "HP:9999999"); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("Lookup() miss error = %v, want ErrObjectNotFound", err)
	}
}

// ============================================================
// Collection management
// ============================================================

func TestListAndInfo(t *testing.T) {
	s := setupStoreTest(t)
	ctx := context.Background()

	if _, err := s.Insert(ctx, "ont_hp", []*record.Record{
		term("HP:0002099", "Asthma"),
		term("HP:0000822", "Hypertension"),
	}); err != nil {
		t.Fatalf("Insert() ont_hp error: %v", err)
	}
	if _, err := s.Insert(ctx, "cde_variables", []*record.Record{term("CDE:001", "Age at enrollment")}); err != nil {
		t.Fatalf("Insert() cde_variables error: %v", err)
	}

	md := Metadata{
		ObjectType:  "OntologyClass",
		Description: "Human Phenotype Ontology terms",
		ModelName:   "gemini-embedding-001",
	}
	if err := s.SetMetadata(ctx, "ont_hp", md); err != nil {
		t.Fatalf("SetMetadata() error: %v", err)
	}

	infos, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("List() returned %d collections, want 2", len(infos))
	}
	// Sorted by name, counts included.
	if infos[0].Name != "cde_variables" || infos[0].Count != 1 {
		t.Errorf("List()[0] = %s/%d, want cde_variables/1", infos[0].Name, infos[0].Count)
	}
	if infos[1].Name != "ont_hp" || infos[1].Count != 2 {
		t.Errorf("List()[1] = %s/%d, want ont_hp/2", infos[1].Name, infos[1].Count)
	}
	if diff := cmp.Diff(md, infos[1].Metadata); diff != "" {
		t.Errorf("List()[1].Metadata mismatch (-want +got):\n%s", diff)
	}

	info, err := s.Info(ctx, "ont_hp")
	if err != nil {
		t.Fatalf("Info() error: %v", err)
	}
	if info.Count != 2 {
		t.Errorf("Info().Count = %d, want 2", info.Count)
	}
	if diff := cmp.Diff(md, info.Metadata); diff != "" {
		t.Errorf("Info().Metadata mismatch (-want +got):\n%s", diff)
	}
	if info.CreatedAt.IsZero() {
		t.Error("Info().CreatedAt is zero")
	}

	if _, err := s.Info(ctx, "missing"); !errors.Is(err, ErrCollectionNotFound) {
		t.Errorf("Info() missing error = %v, want ErrCollectionNotFound", err)
	}
	if err := s.SetMetadata(ctx, "missing", md); !errors.Is(err, ErrCollectionNotFound) {
		t.Errorf("SetMetadata() missing error = %v, want ErrCollectionNotFound", err)
	}
}

func TestCopy(t *testing.T) {
	s := setupStoreTest(t)
	ctx := context.Background()

	recs := []*record.Record{
		term("HP:0002099", "Asthma"),
		term("HP:0000822", "Hypertension"),
	}
	if _, err := s.Insert(ctx, "ont_hp", recs); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}
	md := Metadata{ObjectType: "OntologyClass"}
	if err := s.SetMetadata(ctx, "ont_hp", md); err != nil {
		t.Fatalf("SetMetadata() error: %v", err)
	}

	if err := s.Copy(ctx, "ont_hp", "ont_hp_backup"); err != nil {
		t.Fatalf("Copy() error: %v", err)
	}

	got, err := s.Dump(ctx, "ont_hp_backup")
	if err != nil {
		t.Fatalf("Dump() copy error: %v", err)
	}
	if diff := cmp.Diff(recordIDs(recs), recordIDs(got)); diff != "" {
		t.Errorf("copied records mismatch (-want +got):\n%s", diff)
	}

	info, err := s.Info(ctx, "ont_hp_backup")
	if err != nil {
		t.Fatalf("Info() copy error: %v", err)
	}
	if diff := cmp.Diff(md, info.Metadata); diff != "" {
		t.Errorf("copied metadata mismatch (-want +got):\n%s", diff)
	}

	if err := s.Copy(ctx, "ont_hp", "ont_hp_backup"); !errors.Is(err, ErrCollectionExists) {
		t.Errorf("Copy() onto existing error = %v, want ErrCollectionExists", err)
	}
	if err := s.Copy(ctx, "missing", "elsewhere"); !errors.Is(err, ErrCollectionNotFound) {
		t.Errorf("Copy() from missing error = %v, want ErrCollectionNotFound", err)
	}
}

func TestDrop(t *testing.T) {
	s := setupStoreTest(t)
	ctx := context.Background()

	if _, err := s.Insert(ctx, "ont_hp", []*record.Record{term("HP:0002099", "Asthma")}); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}

	if err := s.Drop(ctx, "ont_hp"); err != nil {
		t.Fatalf("Drop() error: %v", err)
	}

	// The FK cascade removes the documents with the collection row.
	var docs int
	if err := sharedDB.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM documents WHERE collection = 'ont_hp'`,
	).Scan(&docs); err != nil {
		t.Fatalf("counting documents: %v", err)
	}
	if docs != 0 {
		t.Errorf("documents remaining after Drop() = %d, want 0", docs)
	}

	if err := s.Drop(ctx, "ont_hp"); !errors.Is(err, ErrCollectionNotFound) {
		t.Errorf("Drop() again error = %v, want ErrCollectionNotFound", err)
	}
}

func TestPeek(t *testing.T) {
	s := setupStoreTest(t)
	ctx := context.Background()

	var recs []*record.Record
	for _, id := range []string{"HP:0000001", "HP:0000002", "HP:0000003", "HP:0000004", "HP:0000005"} {
		recs = append(recs, term(id, "Term "+id))
	}
	if _, err := s.Insert(ctx, "ont_hp", recs); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}

	got, err := s.Peek(ctx, "ont_hp", 2)
	if err != nil {
		t.Fatalf("Peek() error: %v", err)
	}
	if diff := cmp.Diff([]string{"HP:0000001", "HP:0000002"}, recordIDs(got)); diff != "" {
		t.Errorf("Peek(2) mismatch (-want +got):\n%s", diff)
	}

	// Non-positive limit falls back to the default, which covers all five.
	got, err = s.Peek(ctx, "ont_hp", 0)
	if err != nil {
		t.Fatalf("Peek(0) error: %v", err)
	}
	if len(got) != len(recs) {
		t.Errorf("Peek(0) returned %d records, want %d", len(got), len(recs))
	}

	if _, err := s.Peek(ctx, "missing", 5); !errors.Is(err, ErrCollectionNotFound) {
		t.Errorf("Peek() missing error = %v, want ErrCollectionNotFound", err)
	}
}

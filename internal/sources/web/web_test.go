package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/cdelab/curator/internal/record"
)

func TestFetchSinglePage(t *testing.T) {
	t.Parallel()

	srv := pageServer(t, map[string]string{
		"/article": articleHTML("Asthma overview", "/other"),
		"/other":   articleHTML("Other page"),
	})

	f := NewFetcher(Config{AllowPrivateHosts: true})
	records, err := f.Fetch(context.Background(), []string{srv.URL + "/article"})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	// Default depth fetches only the named page, not its links.
	if len(records) != 1 {
		t.Fatalf("Fetch() returned %d records, want 1", len(records))
	}

	rec := records[0]
	wantURL := srv.URL + "/article"
	if rec.ID() != wantURL {
		t.Errorf("record id = %q, want %q", rec.ID(), wantURL)
	}
	if got := fieldStr(t, rec, "url"); got != wantURL {
		t.Errorf("url field = %q, want %q", got, wantURL)
	}
	if got := fieldStr(t, rec, "title"); !strings.Contains(got, "Asthma") {
		t.Errorf("title field = %q, want it to mention Asthma", got)
	}
	if got := fieldStr(t, rec, "text"); !strings.Contains(got, "chronic inflammatory disease") {
		t.Errorf("text field = %q, want the article body", got)
	}
}

func TestFetchFollowsLinks(t *testing.T) {
	t.Parallel()

	// /broken 404s mid-crawl and /c sits one level too deep; neither
	// should produce a record or fail the run.
	srv := pageServer(t, map[string]string{
		"/":  articleHTML("Index", "/a", "/b", "/broken"),
		"/a": articleHTML("Page A", "/c"),
		"/b": articleHTML("Page B"),
		"/c": articleHTML("Page C"),
	})

	f := NewFetcher(Config{AllowPrivateHosts: true, MaxDepth: 2})
	records, err := f.Fetch(context.Background(), []string{srv.URL + "/"})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	got := make([]string, 0, len(records))
	for _, rec := range records {
		got = append(got, strings.TrimPrefix(rec.ID(), srv.URL))
	}
	sort.Strings(got)
	want := []string{"/", "/a", "/b"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("fetched pages mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchMaxPages(t *testing.T) {
	t.Parallel()

	srv := pageServer(t, map[string]string{
		"/":  articleHTML("Index", "/a", "/b", "/c"),
		"/a": articleHTML("Page A"),
		"/b": articleHTML("Page B"),
		"/c": articleHTML("Page C"),
	})

	f := NewFetcher(Config{AllowPrivateHosts: true, MaxDepth: 2, MaxPages: 2})
	records, err := f.Fetch(context.Background(), []string{srv.URL + "/"})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	got := make([]string, 0, len(records))
	for _, rec := range records {
		got = append(got, strings.TrimPrefix(rec.ID(), srv.URL))
	}
	want := []string{"/", "/a"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("fetched pages mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchSkipsNonHTML(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/data", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": "HP:0002099"}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	f := NewFetcher(Config{AllowPrivateHosts: true})
	records, err := f.Fetch(context.Background(), []string{srv.URL + "/data"})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("Fetch() returned %d records for a JSON response, want 0", len(records))
	}
}

func TestFetchSeedNotFound(t *testing.T) {
	t.Parallel()

	srv := pageServer(t, map[string]string{"/": articleHTML("Index")})

	f := NewFetcher(Config{AllowPrivateHosts: true})
	if _, err := f.Fetch(context.Background(), []string{srv.URL + "/missing"}); err == nil {
		t.Fatal("Fetch() of a 404 page succeeded, want error")
	}
}

func TestFetchRedirectLoopStopped(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/loop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	f := NewFetcher(Config{AllowPrivateHosts: true})
	_, err := f.Fetch(context.Background(), []string{srv.URL + "/loop"})
	if err == nil || !strings.Contains(err.Error(), "redirects") {
		t.Fatalf("Fetch() error = %v, want redirect limit error", err)
	}
}

func TestFetchBlocksPrivateSeeds(t *testing.T) {
	t.Parallel()

	f := NewFetcher(Config{})
	_, err := f.Fetch(context.Background(), []string{"http://127.0.0.1:9200/_search"})
	if err == nil || !strings.Contains(err.Error(), "not allowed") {
		t.Fatalf("Fetch() error = %v, want private address rejection", err)
	}
}

func TestFetchValidation(t *testing.T) {
	t.Parallel()

	f := NewFetcher(Config{AllowPrivateHosts: true})
	if _, err := f.Fetch(context.Background(), nil); err == nil {
		t.Fatal("Fetch() with no urls succeeded, want error")
	}
	if _, err := f.Fetch(context.Background(), []string{"http://exa mple.com/"}); err == nil {
		t.Fatal("Fetch() with an unparseable url succeeded, want error")
	}
}

func TestFetchCanceled(t *testing.T) {
	t.Parallel()

	srv := pageServer(t, map[string]string{"/": articleHTML("Index")})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := NewFetcher(Config{AllowPrivateHosts: true})
	if _, err := f.Fetch(ctx, []string{srv.URL + "/"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Fetch() error = %v, want context.Canceled", err)
	}
}

// pageServer serves the given paths as HTML and 404s everything else.
func pageServer(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// articleHTML renders a page with enough body text for content
// extraction, linking to the given paths.
func articleHTML(title string, links ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<!DOCTYPE html><html><head><title>%s</title></head><body><article>", title)
	fmt.Fprintf(&b, "<h1>%s</h1>", title)
	b.WriteString("<p>Asthma is a chronic inflammatory disease of the airways that affects millions of people worldwide and remains a leading cause of emergency department visits.</p>")
	b.WriteString("<p>Common triggers include airborne allergens, respiratory infections, cold air, and strenuous exercise, and the severity of symptoms varies widely between patients.</p>")
	b.WriteString("<p>Inhaled corticosteroids remain the cornerstone of long term control, while short acting bronchodilators provide relief during acute episodes.</p>")
	for _, link := range links {
		fmt.Fprintf(&b, `<p><a href="%s">related reading</a></p>`, link)
	}
	b.WriteString("</article></body></html>")
	return b.String()
}

func fieldStr(t *testing.T, rec *record.Record, key string) string {
	t.Helper()
	v, ok := rec.Get(key)
	if !ok {
		t.Fatalf("record %s has no %q field", rec.ID(), key)
	}
	s, ok := v.Str()
	if !ok {
		t.Fatalf("record %s field %q is not a string", rec.ID(), key)
	}
	return s
}

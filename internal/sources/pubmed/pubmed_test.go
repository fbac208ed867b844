package pubmed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/time/rate"
)

const searchXML = `<?xml version="1.0"?>
<eSearchResult>
  <Count>2</Count>
  <RetMax>2</RetMax>
  <IdList><Id>123</Id><Id>456</Id></IdList>
</eSearchResult>`

const fetchXML = `<?xml version="1.0"?>
<PubmedArticleSet>
  <PubmedArticle>
    <MedlineCitation>
      <PMID Version="1">123</PMID>
      <Article>
        <Journal>
          <Title>Journal of Testing</Title>
          <JournalIssue><PubDate><Year>2019</Year></PubDate></JournalIssue>
        </Journal>
        <ArticleTitle>Asthma and air quality</ArticleTitle>
        <Abstract>
          <AbstractText Label="BACKGROUND">Asthma is common.</AbstractText>
          <AbstractText Label="RESULTS">Air quality matters.</AbstractText>
        </Abstract>
        <AuthorList>
          <Author><LastName>Smith</LastName><Initials>J</Initials></Author>
          <Author><LastName>Doe</LastName><Initials>A</Initials></Author>
        </AuthorList>
      </Article>
    </MedlineCitation>
  </PubmedArticle>
  <PubmedArticle>
    <MedlineCitation>
      <PMID Version="1">456</PMID>
      <Article>
        <ArticleTitle>Untitled follow-up</ArticleTitle>
      </Article>
    </MedlineCitation>
  </PubmedArticle>
</PubmedArticleSet>`

// eutilsServer serves canned esearch/efetch responses and records the
// query parameters of every request.
func eutilsServer(t *testing.T) (*Client, *requestLog) {
	t.Helper()
	rl := &requestLog{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rl.add(r.URL.Path, r.URL.Query())
		switch {
		case strings.HasSuffix(r.URL.Path, "esearch.fcgi"):
			fmt.Fprint(w, searchXML)
		case strings.HasSuffix(r.URL.Path, "efetch.fcgi"):
			fmt.Fprint(w, fetchXML)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL, APIKey: "test-key"}), rl
}

type requestLog struct {
	mu     sync.Mutex
	paths  []string
	params []url.Values
}

func (rl *requestLog) add(path string, params url.Values) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.paths = append(rl.paths, path)
	rl.params = append(rl.params, params)
}

func (rl *requestLog) count() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.paths)
}

func (rl *requestLog) param(i int, key string) string {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.params[i].Get(key)
}

func TestSearch(t *testing.T) {
	t.Parallel()

	c, rl := eutilsServer(t)
	ids, err := c.Search(context.Background(), "asthma genetics", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if diff := cmp.Diff([]string{"123", "456"}, ids); diff != "" {
		t.Errorf("ids (-want +got):\n%s", diff)
	}
	if got := rl.param(0, "term"); got != "asthma genetics" {
		t.Errorf("term = %q", got)
	}
	if got := rl.param(0, "retmax"); got != "5" {
		t.Errorf("retmax = %q, want 5", got)
	}
	if got := rl.param(0, "db"); got != "pubmed" {
		t.Errorf("db = %q, want pubmed", got)
	}
	if got := rl.param(0, "api_key"); got != "test-key" {
		t.Errorf("api_key = %q", got)
	}
	if got := rl.param(0, "tool"); got == "" {
		t.Error("tool parameter not sent")
	}
}

func TestSearchDefaultLimit(t *testing.T) {
	t.Parallel()

	c, rl := eutilsServer(t)
	if _, err := c.Search(context.Background(), "asthma", 0); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if got := rl.param(0, "retmax"); got != fmt.Sprint(DefaultSearchLimit) {
		t.Errorf("retmax = %q, want default", got)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	t.Parallel()

	c, _ := eutilsServer(t)
	if _, err := c.Search(context.Background(), "   ", 5); err == nil {
		t.Fatal("Search() error = nil, want error")
	}
}

func TestFetch(t *testing.T) {
	t.Parallel()

	c, rl := eutilsServer(t)
	records, err := c.Fetch(context.Background(), []string{"PMID:123", "456"})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if got := rl.param(0, "id"); got != "123,456" {
		t.Errorf("id param = %q, want prefixes stripped and joined", got)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	first := records[0]
	if first.ID() != "PMID:123" {
		t.Errorf("id = %q, want PMID:123", first.ID())
	}
	wantAbstract := "BACKGROUND: Asthma is common.\nRESULTS: Air quality matters."
	if v, _ := first.Get("abstract"); v.Text() != wantAbstract {
		t.Errorf("abstract = %q, want %q", v.Text(), wantAbstract)
	}
	if v, _ := first.Get("journal"); v.Text() != "Journal of Testing" {
		t.Errorf("journal = %q", v.Text())
	}
	if v, _ := first.Get("year"); v.Text() != "2019" {
		t.Errorf("year = %q", v.Text())
	}
	authors, _ := first.Get("authors")
	items, _ := authors.Items()
	if len(items) != 2 || items[0].Text() != "Smith J" {
		t.Errorf("authors = %v, want [Smith J, Doe A]", authors)
	}

	// The sparse article carries only the fields it has.
	second := records[1]
	if second.ID() != "PMID:456" {
		t.Errorf("id = %q, want PMID:456", second.ID())
	}
	if second.Has("abstract") || second.Has("journal") || second.Has("authors") {
		t.Errorf("sparse article grew fields: %v", second.Keys())
	}
}

func TestFetchChunks(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var batchSizes []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		batchSizes = append(batchSizes, len(strings.Split(r.URL.Query().Get("id"), ",")))
		mu.Unlock()
		fmt.Fprint(w, `<PubmedArticleSet></PubmedArticleSet>`)
	}))
	t.Cleanup(srv.Close)

	ids := make([]string, 250)
	for i := range ids {
		ids[i] = fmt.Sprint(i + 1)
	}

	c := New(Config{BaseURL: srv.URL, Limiter: rate.NewLimiter(rate.Inf, 1)})
	if _, err := c.Fetch(context.Background(), ids); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if diff := cmp.Diff([]int{200, 50}, batchSizes); diff != "" {
		t.Errorf("batch sizes (-want +got):\n%s", diff)
	}
}

func TestFetchEmpty(t *testing.T) {
	t.Parallel()

	c, rl := eutilsServer(t)
	records, err := c.Fetch(context.Background(), nil)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(records) != 0 || rl.count() != 0 {
		t.Errorf("empty fetch hit the network: %d records, %d requests", len(records), rl.count())
	}
}

func TestLimiterBlocksSecondCall(t *testing.T) {
	t.Parallel()

	c, rl := eutilsServer(t)
	c.limiter = rate.NewLimiter(rate.Every(time.Hour), 1)

	if _, err := c.Search(context.Background(), "first", 1); err != nil {
		t.Fatalf("first Search() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.Search(ctx, "second", 1); err == nil {
		t.Fatal("second Search() error = nil, want rate limit error")
	}
	if got := rl.count(); got != 1 {
		t.Errorf("server saw %d requests, want 1", got)
	}
}

func TestServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	c := New(Config{BaseURL: srv.URL})
	_, err := c.Search(context.Background(), "asthma", 1)
	if err == nil || !strings.Contains(err.Error(), "status 500") {
		t.Fatalf("Search() error = %v, want status 500 error", err)
	}
}

func TestBadResponseBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "not xml at all")
	}))
	t.Cleanup(srv.Close)

	c := New(Config{BaseURL: srv.URL})
	if _, err := c.Search(context.Background(), "asthma", 1); err == nil {
		t.Fatal("Search() error = nil, want parse error")
	}
}

func TestSearchRecords(t *testing.T) {
	t.Parallel()

	c, rl := eutilsServer(t)
	records, err := c.SearchRecords(context.Background(), "asthma", 2)
	if err != nil {
		t.Fatalf("SearchRecords() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if rl.count() != 2 {
		t.Errorf("request count = %d, want esearch then efetch", rl.count())
	}
	if got := rl.param(1, "id"); got != "123,456" {
		t.Errorf("efetch id param = %q", got)
	}
}

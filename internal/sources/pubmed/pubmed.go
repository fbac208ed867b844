// Package pubmed fetches publication metadata from the NCBI
// E-utilities API: esearch resolves a query to PMIDs and efetch turns
// PMIDs into records ready for indexing.
package pubmed

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/cdelab/curator/internal/log"
	"github.com/cdelab/curator/internal/record"
)

const (
	// DefaultBaseURL is the public E-utilities endpoint.
	DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

	// DefaultSearchLimit caps esearch results when the caller does not
	// say otherwise.
	DefaultSearchLimit = 20

	// efetchBatch keeps efetch URLs under NCBI's length limits.
	efetchBatch = 200

	// toolName identifies this client to NCBI, per their usage policy.
	toolName = "curator"
)

// Config configures a Client. The zero value works against the public
// endpoint at the anonymous rate limit.
type Config struct {
	// BaseURL overrides the E-utilities endpoint, mainly for tests.
	BaseURL string

	// Email identifies the client to NCBI alongside the tool name, per
	// their usage policy.
	Email string

	// APIKey raises NCBI's rate allowance from 3 to 10 requests per
	// second.
	APIKey string

	// HTTPClient overrides the default client.
	HTTPClient *http.Client

	// Limiter overrides the request limiter derived from APIKey.
	Limiter *rate.Limiter

	Logger log.Logger
}

// Client is a rate-limited E-utilities client.
type Client struct {
	baseURL string
	email   string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	logger  log.Logger
}

// New returns a client honoring NCBI's courtesy limits: 3 requests per
// second anonymously, 10 with an API key.
func New(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	limiter := cfg.Limiter
	if limiter == nil {
		rps := 3
		if cfg.APIKey != "" {
			rps = 10
		}
		limiter = rate.NewLimiter(rate.Limit(rps), rps)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		email:   cfg.Email,
		apiKey:  cfg.APIKey,
		http:    httpClient,
		limiter: limiter,
		logger:  logger,
	}
}

// Search runs an esearch query and returns matching PMIDs, most recent
// first. A non-positive limit means DefaultSearchLimit.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]string, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty query")
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	params := url.Values{
		"db":     {"pubmed"},
		"term":   {query},
		"retmax": {fmt.Sprint(limit)},
		"sort":   {"pub_date"},
	}
	var result searchResult
	if err := c.get(ctx, "esearch.fcgi", params, &result); err != nil {
		return nil, fmt.Errorf("searching pubmed: %w", err)
	}
	c.logger.Debug("pubmed search", "query", query, "count", result.Count, "returned", len(result.IDs))
	return result.IDs, nil
}

// Fetch retrieves the articles behind the given PMIDs as records with
// id, title, abstract, journal, year, and authors fields. Fields the
// article lacks are left out. IDs may carry a "PMID:" prefix.
func (c *Client) Fetch(ctx context.Context, ids []string) ([]*record.Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cleaned := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(strings.TrimPrefix(id, "PMID:"))
		if id == "" {
			continue
		}
		cleaned = append(cleaned, id)
	}

	var records []*record.Record
	for batch := range slices.Chunk(cleaned, efetchBatch) {
		params := url.Values{
			"db":      {"pubmed"},
			"id":      {strings.Join(batch, ",")},
			"retmode": {"xml"},
		}
		var set articleSet
		if err := c.get(ctx, "efetch.fcgi", params, &set); err != nil {
			return nil, fmt.Errorf("fetching %d articles: %w", len(batch), err)
		}
		for _, art := range set.Articles {
			records = append(records, art.record())
		}
	}
	c.logger.Debug("pubmed fetch", "requested", len(cleaned), "returned", len(records))
	return records, nil
}

// SearchRecords is Search followed by Fetch.
func (c *Client) SearchRecords(ctx context.Context, query string, limit int) ([]*record.Record, error) {
	ids, err := c.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	return c.Fetch(ctx, ids)
}

// get performs one rate-limited GET against an E-utilities endpoint
// and decodes the XML response into result.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for rate limiter: %w", err)
	}

	params.Set("tool", toolName)
	if c.email != "" {
		params.Set("email", c.email)
	}
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}
	reqURL := c.baseURL + "/" + endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading %s response: %w", endpoint, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d: %s", endpoint, resp.StatusCode, excerpt(body))
	}
	if err := xml.Unmarshal(body, result); err != nil {
		return fmt.Errorf("parsing %s response: %w", endpoint, err)
	}
	return nil
}

func excerpt(body []byte) string {
	const max = 200
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

type searchResult struct {
	XMLName xml.Name `xml:"eSearchResult"`
	Count   int      `xml:"Count"`
	IDs     []string `xml:"IdList>Id"`
}

type articleSet struct {
	XMLName  xml.Name  `xml:"PubmedArticleSet"`
	Articles []article `xml:"PubmedArticle"`
}

type article struct {
	PMID     string         `xml:"MedlineCitation>PMID"`
	Title    string         `xml:"MedlineCitation>Article>ArticleTitle"`
	Abstract []abstractText `xml:"MedlineCitation>Article>Abstract>AbstractText"`
	Journal  string         `xml:"MedlineCitation>Article>Journal>Title"`
	Year     string         `xml:"MedlineCitation>Article>Journal>JournalIssue>PubDate>Year"`
	Authors  []author       `xml:"MedlineCitation>Article>AuthorList>Author"`
}

type abstractText struct {
	Label string `xml:"Label,attr"`
	Text  string `xml:",chardata"`
}

type author struct {
	LastName string `xml:"LastName"`
	Initials string `xml:"Initials"`
}

// record converts a parsed article into an indexable record. Sectioned
// abstracts keep their section labels.
func (a article) record() *record.Record {
	rec := record.New()
	rec.Set(record.FieldID, record.String("PMID:"+strings.TrimSpace(a.PMID)))
	if title := strings.TrimSpace(a.Title); title != "" {
		rec.Set("title", record.String(title))
	}
	if abstract := a.abstract(); abstract != "" {
		rec.Set("abstract", record.String(abstract))
	}
	if journal := strings.TrimSpace(a.Journal); journal != "" {
		rec.Set("journal", record.String(journal))
	}
	if year := strings.TrimSpace(a.Year); year != "" {
		rec.Set("year", record.String(year))
	}
	if len(a.Authors) > 0 {
		names := make([]record.Value, 0, len(a.Authors))
		for _, au := range a.Authors {
			name := strings.TrimSpace(strings.TrimSpace(au.LastName) + " " + strings.TrimSpace(au.Initials))
			if name != "" {
				names = append(names, record.String(name))
			}
		}
		if len(names) > 0 {
			rec.Set("authors", record.List(names...))
		}
	}
	return rec
}

func (a article) abstract() string {
	parts := make([]string, 0, len(a.Abstract))
	for _, section := range a.Abstract {
		text := strings.TrimSpace(section.Text)
		if text == "" {
			continue
		}
		if label := strings.TrimSpace(section.Label); label != "" {
			text = label + ": " + text
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n")
}

// Package web turns live web pages into indexable records: a colly
// crawler fetches the pages and go-readability boils each one down to
// its readable text. Every request is SSRF-guarded so crawling
// untrusted links cannot reach internal networks.
package web

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/gocolly/colly/v2"

	"github.com/cdelab/curator/internal/log"
	"github.com/cdelab/curator/internal/record"
)

const (
	// DefaultUserAgent identifies the fetcher to servers.
	DefaultUserAgent = "curator/1.0 (+https://github.com/cdelab/curator)"

	// DefaultMaxPages bounds a crawl that follows links.
	DefaultMaxPages = 50

	defaultTimeout = 30 * time.Second

	// maxBodyBytes caps how much of a response is read.
	maxBodyBytes = 5 * 1024 * 1024

	maxRedirects = 3
)

// Config configures a Fetcher. The zero value fetches single pages
// with sane limits.
type Config struct {
	// UserAgent overrides DefaultUserAgent.
	UserAgent string

	// MaxDepth controls link following: 1 (the default) fetches only
	// the named pages, larger values follow links on the same site up
	// to that depth.
	MaxDepth int

	// MaxPages bounds the total pages kept in one Fetch call.
	MaxPages int

	// Parallelism caps concurrent requests per domain and Delay spaces
	// them out, both enforced by the collector's limit rule. Zero
	// leaves the collector defaults.
	Parallelism int
	Delay       time.Duration

	// Timeout applies per request.
	Timeout time.Duration

	// AllowPrivateHosts disables the SSRF guard. Only for tests
	// against local fixture servers.
	AllowPrivateHosts bool

	Logger log.Logger
}

// Fetcher retrieves pages and reduces them to readable text records.
type Fetcher struct {
	userAgent    string
	maxDepth     int
	maxPages     int
	parallelism  int
	delay        time.Duration
	timeout      time.Duration
	allowPrivate bool
	logger       log.Logger
}

// NewFetcher returns a fetcher with cfg's limits applied.
func NewFetcher(cfg Config) *Fetcher {
	f := &Fetcher{
		userAgent:    cfg.UserAgent,
		maxDepth:     cfg.MaxDepth,
		maxPages:     cfg.MaxPages,
		parallelism:  cfg.Parallelism,
		delay:        cfg.Delay,
		timeout:      cfg.Timeout,
		allowPrivate: cfg.AllowPrivateHosts,
		logger:       cfg.Logger,
	}
	if f.userAgent == "" {
		f.userAgent = DefaultUserAgent
	}
	if f.maxDepth <= 0 {
		f.maxDepth = 1
	}
	if f.maxPages <= 0 {
		f.maxPages = DefaultMaxPages
	}
	if f.timeout <= 0 {
		f.timeout = defaultTimeout
	}
	if f.logger == nil {
		f.logger = log.NewNop()
	}
	return f
}

// Fetch retrieves every URL, following same-site links when MaxDepth
// allows, and returns one record per readable page with id, url,
// title, text, and site fields. An unsafe or malformed seed URL fails
// the call; pages that fail mid-crawl are logged and skipped. Fetch is
// an error when nothing at all could be fetched.
func (f *Fetcher) Fetch(ctx context.Context, urls []string) ([]*record.Record, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("no urls")
	}
	seeds := make([]*url.URL, 0, len(urls))
	for _, raw := range urls {
		if !f.allowPrivate {
			if err := ValidateURL(raw); err != nil {
				return nil, err
			}
		}
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid url %q: %w", raw, err)
		}
		seeds = append(seeds, u)
	}

	c := f.collector(ctx, seeds)

	var (
		records  []*record.Record
		failures int
	)
	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil || len(records) >= f.maxPages {
			r.Abort()
			return
		}
		if !f.allowPrivate {
			if err := ValidateURL(r.URL.String()); err != nil {
				f.logger.Warn("blocked url", "url", r.URL.String(), "error", err)
				r.Abort()
			}
		}
	})
	c.OnError(func(r *colly.Response, err error) {
		failures++
		f.logger.Warn("fetch failed", "url", r.Request.URL.String(), "status", r.StatusCode, "error", err)
	})
	c.OnResponse(func(r *colly.Response) {
		ct := strings.ToLower(r.Headers.Get("Content-Type"))
		if ct != "" && !strings.Contains(ct, "html") {
			f.logger.Debug("skipping non-html response", "url", r.Request.URL.String(), "content_type", ct)
			return
		}
		rec := pageRecord(r.Request.URL, r.Body)
		if rec == nil {
			f.logger.Debug("no readable text", "url", r.Request.URL.String())
			return
		}
		records = append(records, rec)
		f.logger.Info("fetched page", "url", r.Request.URL.String())
	})
	if f.maxDepth > 1 {
		c.OnHTML("a[href]", func(e *colly.HTMLElement) {
			if link := e.Request.AbsoluteURL(e.Attr("href")); link != "" {
				_ = e.Request.Visit(link)
			}
		})
	}

	for _, seed := range seeds {
		if err := ctx.Err(); err != nil {
			return records, err
		}
		err := c.Visit(seed.String())
		if err != nil && !errors.Is(err, colly.ErrAlreadyVisited) {
			return nil, fmt.Errorf("visiting %s: %w", seed, err)
		}
	}

	if len(records) == 0 && failures > 0 {
		return nil, fmt.Errorf("no pages fetched (%d requests failed)", failures)
	}
	return records, nil
}

// collector builds the colly instance: crawl limits, charset
// detection, and redirect validation. Link following is confined to
// the seed hosts.
func (f *Fetcher) collector(ctx context.Context, seeds []*url.URL) *colly.Collector {
	opts := []colly.CollectorOption{
		colly.UserAgent(f.userAgent),
		colly.MaxDepth(f.maxDepth),
		colly.MaxBodySize(maxBodyBytes),
		colly.DetectCharset(),
	}
	if f.maxDepth > 1 {
		hosts := make([]string, 0, len(seeds)*2)
		for _, u := range seeds {
			host := u.Hostname()
			hosts = append(hosts, host, "www."+host)
		}
		opts = append(opts, colly.AllowedDomains(hosts...))
	}

	c := colly.NewCollector(opts...)
	c.SetRequestTimeout(f.timeout)
	if f.parallelism > 0 || f.delay > 0 {
		_ = c.Limit(&colly.LimitRule{
			DomainGlob:  "*",
			Parallelism: f.parallelism,
			Delay:       f.delay,
		})
	}
	c.SetRedirectHandler(func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !f.allowPrivate {
			if err := ValidateURL(req.URL.String()); err != nil {
				return fmt.Errorf("unsafe redirect: %w", err)
			}
		}
		return nil
	})
	return c
}

// pageRecord reduces one HTML page to a record, or nil when the page
// has no text worth indexing. Readability output is preferred; pages
// it cannot handle fall back to stripped body text.
func pageRecord(pageURL *url.URL, body []byte) *record.Record {
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	title := strings.TrimSpace(article.Title)
	text := strings.TrimSpace(article.TextContent)
	site := strings.TrimSpace(article.SiteName)
	if err != nil || text == "" {
		rawTitle, rawBody := strippedText(body)
		if title == "" {
			title = rawTitle
		}
		text = rawBody
	}
	if text == "" {
		return nil
	}

	rec := record.New()
	rec.Set(record.FieldID, record.String(pageURL.String()))
	rec.Set("url", record.String(pageURL.String()))
	if title != "" {
		rec.Set("title", record.String(title))
	}
	rec.Set("text", record.String(text))
	if site != "" {
		rec.Set("site", record.String(site))
	}
	return rec
}

// strippedText extracts the title and whitespace-collapsed body text
// of a page without readability's content scoring.
func strippedText(body []byte) (title, text string) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", ""
	}
	doc.Find("script, style, noscript").Remove()
	title = strings.TrimSpace(doc.Find("title").First().Text())
	text = strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	return title, text
}

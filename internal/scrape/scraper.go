// Package scrape implements the best-effort content fetcher. Extraction is
// deliberately heuristic; what it does guarantee is non-empty output, so
// later pipeline stages never need to special-case "no articles".
package scrape

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/kulfy/kulfy-agent/internal/agent"
)

const (
	defaultMaxURLs  = 10
	defaultTimeout  = 15 * time.Second
	snippetMaxChars = 500
	snippetMinChars = 100
	titleMinChars   = 10

	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
)

//go:embed placeholders.yaml
var placeholdersYAML []byte

var (
	placeholdersOnce sync.Once
	placeholders     []agent.Article
)

// Placeholders returns the fixed article set substituted when fetching yields
// nothing. Callers get a copy.
func Placeholders() []agent.Article {
	placeholdersOnce.Do(func() {
		if err := yaml.Unmarshal(placeholdersYAML, &placeholders); err != nil {
			panic(fmt.Sprintf("scrape: invalid embedded placeholders: %v", err))
		}
	})
	return append([]agent.Article(nil), placeholders...)
}

// Ordered title strategies; the first candidate that is long enough and does
// not look like navigation boilerplate wins.
var titleSelectors = []string{"h1", "h2", ".article-title", ".post-title", "title"}

// Ordered content containers tried before falling back to bare paragraphs.
var contentSelectors = []string{"article", ".article-content", ".post-content", ".entry-content", "main"}

var boilerplateWords = []string{"menu", "navigation", "subscribe", "sign in", "log in", "cookie"}

// Options configures a Scraper.
type Options struct {
	HTTPClient *http.Client
	Timeout    time.Duration
	MaxURLs    int
	Sink       agent.Sink
}

// Scraper fetches pages sequentially and extracts a title/snippet pair per
// page.
type Scraper struct {
	client  *http.Client
	maxURLs int
	sink    agent.Sink
}

// New builds a Scraper with defaults applied.
func New(opts Options) *Scraper {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	maxURLs := opts.MaxURLs
	if maxURLs <= 0 {
		maxURLs = defaultMaxURLs
	}
	sink := opts.Sink
	if sink == nil {
		sink = agent.NopSink
	}
	return &Scraper{client: client, maxURLs: maxURLs, sink: sink}
}

// Fetch processes at most the first 10 URLs in order. Per-URL failures are
// returned as error strings and never abort the remaining URLs. An empty
// input or an empty result substitutes the placeholder set and reports
// fallback=true.
func (s *Scraper) Fetch(ctx context.Context, urls []string) ([]agent.Article, []string, bool) {
	if len(urls) == 0 {
		return Placeholders(), nil, true
	}

	if len(urls) > s.maxURLs {
		urls = urls[:s.maxURLs]
	}

	var articles []agent.Article
	var errs []string
	for _, u := range urls {
		s.sink.Emit(agent.Event{Level: agent.LevelInfo, Message: fmt.Sprintf("Fetching: %s", truncate(u, 60))})

		article, err := s.fetchOne(ctx, u)
		if err != nil {
			errs = append(errs, fmt.Sprintf("Failed to fetch %s: %v", u, err))
			continue
		}
		if article == nil {
			// Neither title nor snippet found; skip without recording.
			continue
		}
		articles = append(articles, *article)
		s.sink.Emit(agent.Event{Level: agent.LevelSuccess, Message: fmt.Sprintf("Fetched: %s", article.Title)})
	}

	if len(articles) == 0 {
		return Placeholders(), errs, true
	}
	return articles, errs, false
}

func (s *Scraper) fetchOne(ctx context.Context, pageURL string) (*agent.Article, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, err
	}

	title := extractTitle(doc)
	snippet := extractSnippet(doc)
	if title == "" && snippet == "" {
		return nil, nil
	}
	if title == "" {
		title = derivedTitle(pageURL)
	}
	return &agent.Article{Title: title, Snippet: snippet, URL: pageURL}, nil
}

func extractTitle(doc *goquery.Document) string {
	for _, sel := range titleSelectors {
		text := strings.TrimSpace(doc.Find(sel).First().Text())
		if utf8.RuneCountInString(text) > titleMinChars && !looksLikeBoilerplate(text) {
			return text
		}
	}
	if meta, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok {
		meta = strings.TrimSpace(meta)
		if utf8.RuneCountInString(meta) > titleMinChars && !looksLikeBoilerplate(meta) {
			return meta
		}
	}
	return ""
}

func extractSnippet(doc *goquery.Document) string {
	for _, sel := range contentSelectors {
		var parts []string
		doc.Find(sel).Slice(0, intMin(doc.Find(sel).Length(), 5)).Each(func(_ int, container *goquery.Selection) {
			container.Find("p").Each(func(_ int, p *goquery.Selection) {
				if text := strings.TrimSpace(p.Text()); text != "" {
					parts = append(parts, text)
				}
			})
		})
		content := strings.Join(parts, " ")
		if utf8.RuneCountInString(content) >= snippetMinChars {
			return truncate(content, snippetMaxChars)
		}
	}

	// Fall back to the first 10 paragraphs anywhere in the document.
	var parts []string
	doc.Find("p").EachWithBreak(func(i int, p *goquery.Selection) bool {
		if text := strings.TrimSpace(p.Text()); text != "" {
			parts = append(parts, text)
		}
		return i < 9
	})
	return truncate(strings.Join(parts, " "), snippetMaxChars)
}

func looksLikeBoilerplate(text string) bool {
	lower := strings.ToLower(text)
	for _, w := range boilerplateWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// derivedTitle produces a readable stand-in title from the page host when no
// title could be extracted.
func derivedTitle(pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil || parsed.Host == "" {
		return "Untitled article"
	}
	host := strings.TrimPrefix(parsed.Host, "www.")
	if name, _, found := strings.Cut(host, "."); found && name != "" {
		return "Article from " + cases.Title(language.Und).String(name)
	}
	return "Article from " + host
}

// truncate caps s at n characters, not bytes. Telugu text is three bytes per
// rune, so a byte slice would regularly cut mid-rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

func intMin(a, b int) int {
	if a < b {
		return a
	}
	return b
}

var _ agent.ContentFetcher = (*Scraper)(nil)

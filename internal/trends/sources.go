package trends

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

const maxItemsPerSource = 30

// FeedSource reads a specialist RSS/Atom feed. These feeds are already
// topic-relevant, so their items enter the pool without filtering.
type FeedSource struct {
	name   string
	url    string
	parser *gofeed.Parser
}

// NewFeedSource builds an RSS source for the given feed URL.
func NewFeedSource(name, url string) *FeedSource {
	return &FeedSource{
		name:   name,
		url:    url,
		parser: gofeed.NewParser(),
	}
}

func (s *FeedSource) Name() string { return s.name }

// Fetch parses the feed and returns its item titles.
func (s *FeedSource) Fetch(ctx context.Context) ([]TrendItem, error) {
	parsed, err := s.parser.ParseURLWithContext(s.url, ctx)
	if err != nil {
		return nil, err
	}

	items := make([]TrendItem, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}
		items = append(items, TrendItem{Headline: title, Source: s.name})
		if len(items) >= maxItemsPerSource {
			break
		}
	}

	return items, nil
}

// TrendingSource scrapes a general trending-topics page. It is inherently
// noisy, so headlines pass a keyword relevance filter before entering the
// pool.
type TrendingSource struct {
	name     string
	url      string
	selector string
	keywords []string
	client   *http.Client
}

// NewTrendingSource builds the scraper; keywords are matched case-insensitively.
func NewTrendingSource(name, url string, keywords []string) *TrendingSource {
	lowered := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		lowered = append(lowered, strings.ToLower(kw))
	}
	return &TrendingSource{
		name:     name,
		url:      url,
		selector: "item title, .trend-title, li a",
		keywords: lowered,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *TrendingSource) Name() string { return s.name }

// Fetch downloads the trending page and extracts candidate headlines.
func (s *TrendingSource) Fetch(ctx context.Context) ([]TrendItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "starpress/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request trending page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("trending page returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse trending page: %w", err)
	}

	var items []TrendItem
	doc.Find(s.selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		headline := strings.TrimSpace(sel.Text())
		if headline == "" || !s.relevant(headline) {
			return true
		}
		items = append(items, TrendItem{Headline: headline, Source: s.name})
		return len(items) < maxItemsPerSource
	})

	return items, nil
}

func (s *TrendingSource) relevant(headline string) bool {
	if len(s.keywords) == 0 {
		return true
	}
	lowered := strings.ToLower(headline)
	for _, kw := range s.keywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

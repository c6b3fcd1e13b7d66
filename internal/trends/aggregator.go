package trends

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"
)

// TrendItem is one candidate topic pulled from a source. Items are ephemeral:
// they live only inside a single aggregation pass.
type TrendItem struct {
	Headline string
	Source   string
}

// Source pulls candidate topics from one upstream provider.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]TrendItem, error)
}

// Aggregator fans out to all sources in parallel, retries each source
// independently, and merges the results into a deduplicated topic pool. A
// failing source is logged and skipped; it never aborts the pass. An empty
// pool is returned as an empty slice, and falling back to a static topic list
// is the caller's job.
type Aggregator struct {
	sources []Source
	retries int
	timeout time.Duration
	backoff time.Duration
	logger  *slog.Logger
}

// NewAggregator wires the source set. retries is the number of re-attempts
// per source after the first try.
func NewAggregator(sources []Source, retries int, timeout time.Duration, logger *slog.Logger) *Aggregator {
	if retries < 0 {
		retries = 0
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Aggregator{
		sources: sources,
		retries: retries,
		timeout: timeout,
		backoff: 500 * time.Millisecond,
		logger:  logger,
	}
}

// Collect fetches every source concurrently and returns the ordered, unique
// topic pool. Order is source order, then item order; on duplicate normalized
// keys the first occurrence wins.
func (a *Aggregator) Collect(ctx context.Context) []string {
	results := make([][]TrendItem, len(a.sources))

	var wg sync.WaitGroup
	for i, src := range a.sources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			results[i] = a.fetchWithRetry(ctx, src)
		}(i, src)
	}
	wg.Wait()

	seen := make(map[string]struct{})
	topics := make([]string, 0)
	for _, items := range results {
		for _, item := range items {
			key := NormalizeKey(item.Headline)
			if key == "" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			topics = append(topics, strings.TrimSpace(item.Headline))
		}
	}

	a.logger.Info("trend pool collected", "sources", len(a.sources), "topics", len(topics))
	return topics
}

// fetchWithRetry runs one source with its own timeout budget and linearly
// increasing backoff between attempts. Total failure yields nil.
func (a *Aggregator) fetchWithRetry(ctx context.Context, src Source) []TrendItem {
	attempts := a.retries + 1

	for attempt := 1; attempt <= attempts; attempt++ {
		fetchCtx, cancel := context.WithTimeout(ctx, a.timeout)
		items, err := src.Fetch(fetchCtx)
		cancel()

		if err == nil {
			a.logger.Debug("trend source ok", "source", src.Name(), "items", len(items), "attempt", attempt)
			return items
		}

		a.logger.Warn("trend source failed", "source", src.Name(), "attempt", attempt, "error", err)

		if attempt < attempts {
			select {
			case <-time.After(a.backoff * time.Duration(attempt)):
			case <-ctx.Done():
				return nil
			}
		}
	}

	return nil
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9 ]+`)
var spaces = regexp.MustCompile(`\s+`)

// NormalizeKey produces the dedup key for a headline: lowercased, punctuation
// stripped, whitespace collapsed.
func NormalizeKey(headline string) string {
	key := strings.ToLower(headline)
	key = nonAlnum.ReplaceAllString(key, "")
	key = spaces.ReplaceAllString(key, " ")
	return strings.TrimSpace(key)
}

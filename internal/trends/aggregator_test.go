package trends

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubSource struct {
	name  string
	fetch func(ctx context.Context) ([]TrendItem, error)
}

func (s *stubSource) Name() string { return s.name }
func (s *stubSource) Fetch(ctx context.Context) ([]TrendItem, error) {
	return s.fetch(ctx)
}

func fixedSource(name string, headlines ...string) *stubSource {
	return &stubSource{
		name: name,
		fetch: func(ctx context.Context) ([]TrendItem, error) {
			items := make([]TrendItem, 0, len(headlines))
			for _, h := range headlines {
				items = append(items, TrendItem{Headline: h, Source: name})
			}
			return items, nil
		},
	}
}

func newTestAggregator(sources ...Source) *Aggregator {
	a := NewAggregator(sources, 2, time.Second, discardLogger())
	a.backoff = time.Millisecond
	return a
}

func TestCollectDeduplicates(t *testing.T) {
	t.Parallel()

	a := newTestAggregator(
		fixedSource("one", "Blood Moon Rising!", "Meteor shower peaks"),
		fixedSource("two", "blood moon rising", "Saturn at opposition"),
	)

	topics := a.Collect(context.Background())
	if len(topics) != 3 {
		t.Fatalf("expected 3 unique topics, got %d: %v", len(topics), topics)
	}

	seen := make(map[string]struct{})
	for _, topic := range topics {
		key := NormalizeKey(topic)
		if _, ok := seen[key]; ok {
			t.Fatalf("duplicate normalized key %q in %v", key, topics)
		}
		seen[key] = struct{}{}
	}

	// first occurrence wins
	if topics[0] != "Blood Moon Rising!" {
		t.Fatalf("expected first source's spelling to win, got %q", topics[0])
	}
}

func TestCollectAllSourcesFail(t *testing.T) {
	t.Parallel()

	failing := &stubSource{name: "down", fetch: func(ctx context.Context) ([]TrendItem, error) {
		return nil, errors.New("unreachable")
	}}

	a := newTestAggregator(failing, failing)

	topics := a.Collect(context.Background())
	if len(topics) != 0 {
		t.Fatalf("expected empty pool, got %v", topics)
	}
}

func TestCollectToleratesPartialFailure(t *testing.T) {
	t.Parallel()

	failing := &stubSource{name: "down", fetch: func(ctx context.Context) ([]TrendItem, error) {
		return nil, errors.New("unreachable")
	}}

	a := newTestAggregator(failing, fixedSource("up", "Comet watch tonight"))

	topics := a.Collect(context.Background())
	if len(topics) != 1 || topics[0] != "Comet watch tonight" {
		t.Fatalf("expected the healthy source's item, got %v", topics)
	}
}

func TestFetchWithRetryRecovers(t *testing.T) {
	t.Parallel()

	var calls int32
	flaky := &stubSource{name: "flaky", fetch: func(ctx context.Context) ([]TrendItem, error) {
		if atomic.AddInt32(&calls, 1) < 3 {
			return nil, errors.New("transient")
		}
		return []TrendItem{{Headline: "Aurora alert", Source: "flaky"}}, nil
	}}

	a := newTestAggregator(flaky)

	topics := a.Collect(context.Background())
	if len(topics) != 1 {
		t.Fatalf("expected recovery on the final attempt, got %v", topics)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestNormalizeKey(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"Blood Moon Rising!", "blood moon rising"},
		{"  BLOOD   moon, rising  ", "blood moon rising"},
		{"Saturn's Rings", "saturns rings"},
		{"???", ""},
	}

	for _, tc := range cases {
		if got := NormalizeKey(tc.in); got != tc.want {
			t.Fatalf("NormalizeKey(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTrendingSourceFiltersByKeyword(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`
		<html><body><ul>
		  <li><a href="#">Blood moon visible this weekend</a></li>
		  <li><a href="#">Celebrity gossip roundup</a></li>
		  <li><a href="#">New telescope breaks records</a></li>
		</ul></body></html>`))
	}))
	defer server.Close()

	src := NewTrendingSource("trending", server.URL, []string{"moon", "telescope"})

	items, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 relevant items, got %d: %v", len(items), items)
	}
	for _, item := range items {
		if item.Source != "trending" {
			t.Fatalf("unexpected source %q", item.Source)
		}
	}
}

func TestPickerAvoidsImmediateRepetition(t *testing.T) {
	t.Parallel()

	pool := []string{"Topic A", "Topic B", "Topic C"}
	p := NewPicker(nil)

	picked := make(map[string]int)
	for i := 0; i < 3; i++ {
		choice := p.Pick(pool)
		if choice == "" {
			t.Fatal("pick from non-empty pool returned nothing")
		}
		picked[choice]++
	}

	if len(picked) != 3 {
		t.Fatalf("first 3 picks should cover the pool, got %v", picked)
	}

	// pool exhausted: picks fall back to random choice from the full pool
	if choice := p.Pick(pool); choice == "" {
		t.Fatal("exhausted pool should still yield a choice")
	}
}

func TestPickerEmptyPool(t *testing.T) {
	t.Parallel()

	p := NewPicker(nil)
	if got := p.Pick(nil); got != "" {
		t.Fatalf("expected empty string for empty pool, got %q", got)
	}
}

package enrich

import (
	"fmt"
	"log/slog"

	"starpress/internal/model"
)

// Meta carries the record fields the passes need beyond the body itself.
type Meta struct {
	Title       string
	Excerpt     string
	CoverImage  string
	Author      string
	SiteURL     string
	Slug        string
	Tags        []string
}

// RelatedLookup queries the system of record for published records sharing at
// least one tag with the current one.
type RelatedLookup func(tags []string, excludeSlug string, limit int) ([]model.Content, error)

// Pass is one body-rewriting step. Every pass is idempotent: applying it to
// its own output is a no-op.
type Pass struct {
	Name  string
	Apply func(body string) (string, error)
}

// Chain applies the passes in order. A pass that errors or panics is skipped
// and the body flows through unchanged; enrichment is best-effort and the
// parsed content stays publishable even if every pass fails.
type Chain struct {
	passes []Pass
	logger *slog.Logger
}

// NewChain builds a chain from explicit passes.
func NewChain(logger *slog.Logger, passes ...Pass) *Chain {
	return &Chain{passes: passes, logger: logger}
}

// Default assembles the standard publishing chain. Heading-ID injection runs
// before the table of contents, which scans for the injected ids.
func Default(meta Meta, related RelatedLookup, logger *slog.Logger) *Chain {
	passes := []Pass{
		{Name: "cleanup", Apply: wrap(Cleanup)},
		{Name: "heading-ids", Apply: wrap(InjectHeadingIDs)},
		{Name: "toc", Apply: wrap(BuildTOC)},
		{Name: "article-schema", Apply: func(body string) (string, error) {
			return ArticleSchema(body, meta)
		}},
		{Name: "faq-schema", Apply: func(body string) (string, error) {
			return FAQSchema(body)
		}},
		{Name: "promos", Apply: wrap(InjectPromos)},
		{Name: "reference-links", Apply: wrap(LinkReferences)},
	}

	if related != nil {
		passes = append(passes, Pass{Name: "related-content", Apply: func(body string) (string, error) {
			return RelatedContent(body, meta, related)
		}})
	}

	return NewChain(logger, passes...)
}

// Run executes the chain with per-pass failure containment.
func (c *Chain) Run(body string) string {
	for _, pass := range c.passes {
		next, err := runPass(pass, body)
		if err != nil {
			c.logger.Warn("enrichment pass skipped", "pass", pass.Name, "error", err)
			continue
		}
		body = next
	}
	return body
}

func runPass(p Pass, body string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pass %s panicked: %v", p.Name, r)
		}
	}()
	return p.Apply(body)
}

func wrap(fn func(string) string) func(string) (string, error) {
	return func(body string) (string, error) {
		return fn(body), nil
	}
}

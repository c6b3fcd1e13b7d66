package enrich

import (
	"fmt"
	"strings"
)

const relatedLimit = 3

// RelatedContent appends a card list of up to 3 published records sharing a
// tag with the current one. Lookup failures produce nothing, silently.
func RelatedContent(body string, meta Meta, lookup RelatedLookup) (string, error) {
	if strings.Contains(body, `class="related-posts"`) {
		return body, nil
	}
	if len(meta.Tags) == 0 {
		return body, nil
	}

	records, err := lookup(meta.Tags, meta.Slug, relatedLimit)
	if err != nil || len(records) == 0 {
		return body, nil
	}

	var b strings.Builder
	b.WriteString("\n" + `<div class="related-posts"><h2>Keep Exploring</h2><ul>`)
	for _, rec := range records {
		b.WriteString(fmt.Sprintf(`<li><a class="related-card" href="%s/content/%s">%s</a></li>`,
			strings.TrimRight(meta.SiteURL, "/"), rec.Slug, rec.Title))
	}
	b.WriteString(`</ul></div>`)

	return body + b.String(), nil
}

package enrich

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	faqPair     = regexp.MustCompile(`(?s)<h3[^>]*>([^<]+\?)\s*</h3>\s*<p>(.*?)</p>`)
	wordSplit   = regexp.MustCompile(`\s+`)
	schemaBlock = `<script type="application/ld+json">`
)

// ArticleSchema prepends a machine-readable summary of the record: headline,
// description, image, author, word count, keywords. Skipped when an Article
// object is already embedded.
func ArticleSchema(body string, meta Meta) (string, error) {
	if strings.Contains(body, `"@type":"Article"`) {
		return body, nil
	}

	payload := map[string]any{
		"@context":    "https://schema.org",
		"@type":       "Article",
		"headline":    meta.Title,
		"description": meta.Excerpt,
		"wordCount":   wordCount(body),
	}
	if meta.CoverImage != "" {
		payload["image"] = meta.CoverImage
	}
	if meta.Author != "" {
		payload["author"] = map[string]any{"@type": "Person", "name": meta.Author}
	}
	if len(meta.Tags) > 0 {
		payload["keywords"] = strings.Join(meta.Tags, ", ")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return body, fmt.Errorf("marshal article schema: %w", err)
	}

	return schemaBlock + string(data) + "</script>\n" + body, nil
}

// FAQSchema scans for question/answer markup (a level-3 heading ending in a
// question mark followed by a paragraph) and prepends a FAQPage object when
// at least one pair is found.
func FAQSchema(body string) (string, error) {
	if strings.Contains(body, `"@type":"FAQPage"`) {
		return body, nil
	}

	pairs := faqPair.FindAllStringSubmatch(body, -1)
	if len(pairs) == 0 {
		return body, nil
	}

	entities := make([]map[string]any, 0, len(pairs))
	for _, pair := range pairs {
		entities = append(entities, map[string]any{
			"@type": "Question",
			"name":  strings.TrimSpace(pair[1]),
			"acceptedAnswer": map[string]any{
				"@type": "Answer",
				"text":  strings.TrimSpace(tagStrip.ReplaceAllString(pair[2], "")),
			},
		})
	}

	payload := map[string]any{
		"@context":   "https://schema.org",
		"@type":      "FAQPage",
		"mainEntity": entities,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return body, fmt.Errorf("marshal faq schema: %w", err)
	}

	return schemaBlock + string(data) + "</script>\n" + body, nil
}

func wordCount(body string) int {
	text := strings.TrimSpace(tagStrip.ReplaceAllString(body, " "))
	if text == "" {
		return 0
	}
	return len(wordSplit.Split(text, -1))
}

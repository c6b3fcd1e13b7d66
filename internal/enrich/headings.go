package enrich

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	h2WithID   = regexp.MustCompile(`<h2[^>]*\bid="([^"]+)"[^>]*>(.*?)</h2>`)
	tagStrip   = regexp.MustCompile(`<[^>]*>`)
	slugExpr   = regexp.MustCompile(`[^a-z0-9]+`)
	firstPara  = regexp.MustCompile(`(?s)<p>.*?</p>`)
	tocMarker  = `<nav class="toc"`
)

const tocMinHeadings = 4

// Slugify turns text into a URL-safe id fragment.
func Slugify(text string) string {
	slug := strings.ToLower(strings.TrimSpace(text))
	slug = slugExpr.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// InjectHeadingIDs gives every level-2 heading an id derived from its
// stripped text. Headings that already carry an id are left alone, which
// also makes the pass idempotent.
func InjectHeadingIDs(body string) string {
	return replaceH2Blocks(body, func(attrs, inner string) string {
		if strings.Contains(attrs, `id="`) {
			return fmt.Sprintf("<h2%s>%s</h2>", attrs, inner)
		}
		id := Slugify(tagStrip.ReplaceAllString(inner, ""))
		if id == "" {
			return fmt.Sprintf("<h2%s>%s</h2>", attrs, inner)
		}
		return fmt.Sprintf(`<h2%s id="%s">%s</h2>`, attrs, id, inner)
	})
}

var h2Block = regexp.MustCompile(`(?s)<h2([^>]*)>(.*?)</h2>`)

func replaceH2Blocks(body string, fn func(attrs, inner string) string) string {
	return h2Block.ReplaceAllStringFunc(body, func(m string) string {
		sub := h2Block.FindStringSubmatch(m)
		return fn(sub[1], sub[2])
	})
}

// BuildTOC synthesizes a table of contents when the body has at least 4
// level-2 headings with ids, inserted immediately after the first paragraph.
func BuildTOC(body string) string {
	if strings.Contains(body, tocMarker) {
		return body
	}

	matches := h2WithID.FindAllStringSubmatch(body, -1)
	if len(matches) < tocMinHeadings {
		return body
	}

	var b strings.Builder
	b.WriteString(`<nav class="toc"><ul>`)
	for _, m := range matches {
		text := strings.TrimSpace(tagStrip.ReplaceAllString(m[2], ""))
		b.WriteString(fmt.Sprintf(`<li><a href="#%s">%s</a></li>`, m[1], text))
	}
	b.WriteString(`</ul></nav>`)
	toc := b.String()

	if loc := firstPara.FindStringIndex(body); loc != nil {
		return body[:loc[1]] + "\n" + toc + body[loc[1]:]
	}
	return toc + "\n" + body
}

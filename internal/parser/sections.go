package parser

import (
	"regexp"
	"strings"
	"unicode"

	"starpress/internal/model"
)

// Draft is the structured record produced from one raw generated text blob.
// Every field is independently optional; the publisher decides what is enough
// to persist.
type Draft struct {
	Title          string
	Excerpt        string
	SEOTitle       string
	SEODescription string
	Category       string
	ImageQuery     string
	Body           string
	Tags           []string
	Citations      []model.Citation
}

// Field length caps applied after extraction.
const (
	maxTitleLen   = 80
	maxExcerptLen = 150
	maxSEOTitle   = 60
	maxSEODesc    = 155
)

// Known section labels. Aliases map onto the canonical name.
var knownLabels = map[string]string{
	"TITLE":           "TITLE",
	"EXCERPT":         "EXCERPT",
	"SEO_TITLE":       "SEO_TITLE",
	"SEO_DESCRIPTION": "SEO_DESCRIPTION",
	"TAGS":            "TAGS",
	"CATEGORY":        "CATEGORY",
	"CONTENT":         "CONTENT",
	"BODY":            "CONTENT",
	"CITATIONS":       "CITATIONS",
	"SOURCES":         "CITATIONS",
	"IMAGE_QUERY":     "IMAGE_QUERY",
	"IMAGE":           "IMAGE_QUERY",
}

var (
	strictHeading = regexp.MustCompile(`^#{1,6}\s+([A-Z][A-Z0-9_]*)\s*$`)
	looseHeading  = regexp.MustCompile(`^#{1,6}\s+([A-Z][A-Z0-9 _]*[A-Z0-9])\s*$`)
	inlineLabel   = regexp.MustCompile(`^([A-Z][A-Z0-9 _]*?)\s*[:\-]\s+(.+)$`)
	anyHeading    = regexp.MustCompile(`^#{1,6}\s+(.+?)\s*$`)
)

// Parser converts a labeled-section text blob into a Draft. Parse is a pure
// function: the same input always yields the same output.
type Parser struct {
	// TitleCaseMinLen guards the all-caps title fix; see fixShoutingTitle.
	TitleCaseMinLen int
}

// New builds a parser; minLen <= 0 selects the default threshold of 10.
func New(minLen int) *Parser {
	if minLen <= 0 {
		minLen = 10
	}
	return &Parser{TitleCaseMinLen: minLen}
}

// Parse runs the extraction strategies in order of strictness, stopping at
// the first that recognizes at least 3 sections, then merges and cleans the
// fields.
func (p *Parser) Parse(text string) Draft {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	strategies := []func([]string) map[string]string{
		strictSections,
		looseSections,
		inlineSections,
	}

	var sections map[string]string
	var best map[string]string
	for _, strat := range strategies {
		got := strat(lines)
		if len(got) >= 3 {
			sections = got
			break
		}
		if len(got) > len(best) {
			best = got
		}
	}
	if sections == nil {
		sections = best
	}

	draft := p.merge(sections)

	if draft.Title == "" {
		draft.Title = p.cleanTitle(fallbackTitle(lines))
	}

	return draft
}

// strictSections matches heading lines whose label is all uppercase with
// underscores and names a known section.
func strictSections(lines []string) map[string]string {
	return headingSections(lines, strictHeading)
}

// looseSections is the same but tolerates embedded spaces in the label.
func looseSections(lines []string) map[string]string {
	return headingSections(lines, looseHeading)
}

func headingSections(lines []string, expr *regexp.Regexp) map[string]string {
	sections := make(map[string]string)
	current := ""
	var buf []string

	flush := func() {
		if current != "" {
			sections[current] = strings.TrimSpace(strings.Join(buf, "\n"))
		}
		buf = buf[:0]
	}

	for _, line := range lines {
		if m := expr.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			if canonical, ok := knownLabels[normalizeLabel(m[1])]; ok {
				flush()
				current = canonical
				continue
			}
		}
		if current != "" {
			buf = append(buf, line)
		}
	}
	flush()

	return sections
}

// inlineSections recognizes single-line `LABEL: value` or `LABEL - value`
// pairs for known labels.
func inlineSections(lines []string) map[string]string {
	sections := make(map[string]string)
	for _, line := range lines {
		m := inlineLabel.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		canonical, ok := knownLabels[normalizeLabel(m[1])]
		if !ok {
			continue
		}
		if _, exists := sections[canonical]; exists {
			continue
		}
		sections[canonical] = strings.TrimSpace(m[2])
	}
	return sections
}

func normalizeLabel(label string) string {
	return strings.ReplaceAll(strings.TrimSpace(label), " ", "_")
}

// fallbackTitle returns the first heading line that is not itself an
// all-caps section label.
func fallbackTitle(lines []string) string {
	for _, line := range lines {
		m := anyHeading.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		if strictHeading.MatchString(strings.TrimSpace(line)) || looseHeading.MatchString(strings.TrimSpace(line)) {
			continue
		}
		return m[1]
	}
	return ""
}

func (p *Parser) merge(sections map[string]string) Draft {
	draft := Draft{
		Title:          p.cleanTitle(sections["TITLE"]),
		Excerpt:        truncate(stripQuotes(sections["EXCERPT"]), maxExcerptLen),
		SEOTitle:       truncate(stripQuotes(sections["SEO_TITLE"]), maxSEOTitle),
		SEODescription: truncate(stripQuotes(sections["SEO_DESCRIPTION"]), maxSEODesc),
		Category:       strings.ToLower(stripQuotes(sections["CATEGORY"])),
		ImageQuery:     stripQuotes(sections["IMAGE_QUERY"]),
		Tags:           parseTags(sections["TAGS"]),
		Citations:      parseCitations(sections["CITATIONS"]),
	}

	body := strings.TrimSpace(sections["CONTENT"])
	if body != "" && !strings.HasPrefix(body, "<") {
		body = MarkdownToHTML(body)
	}
	draft.Body = body

	return draft
}

func (p *Parser) cleanTitle(raw string) string {
	title := truncate(stripQuotes(raw), maxTitleLen)
	return fixShoutingTitle(title, p.TitleCaseMinLen)
}

// fixShoutingTitle corrects a known upstream generator quirk: titles that
// come back entirely uppercase. Titles at or below minLen (e.g. acronyms)
// are left alone. Isolated here so the heuristic can be tuned or disabled
// without touching the parser core.
func fixShoutingTitle(title string, minLen int) string {
	if len([]rune(title)) <= minLen {
		return title
	}

	hasLetter := false
	for _, r := range title {
		if unicode.IsLetter(r) {
			hasLetter = true
			if unicode.IsLower(r) {
				return title
			}
		}
	}
	if !hasLetter {
		return title
	}

	return titleCase(title)
}

// titleCase capitalizes the first letter of each space-separated word and
// lowercases the rest, leaving punctuation (apostrophes etc.) in place.
func titleCase(s string) string {
	words := strings.Split(strings.ToLower(s), " ")
	for i, word := range words {
		runes := []rune(word)
		for j, r := range runes {
			if unicode.IsLetter(r) {
				runes[j] = unicode.ToUpper(r)
				break
			}
		}
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

var quoteRunes = map[rune]rune{'"': '"', '\'': '\'', '“': '”', '‘': '’'}

func stripQuotes(s string) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	for len(runes) >= 2 {
		closer, ok := quoteRunes[runes[0]]
		if !ok || runes[len(runes)-1] != closer {
			break
		}
		runes = runes[1 : len(runes)-1]
	}
	return strings.TrimSpace(string(runes))
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max]))
}

func parseTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	seen := make(map[string]struct{})
	for _, part := range parts {
		tag := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(part), "#")))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}

// parseCitations reads dash-prefixed `name | url | claim` lines. Entries
// without a URL segment are dropped.
func parseCitations(raw string) []model.Citation {
	var citations []model.Citation
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "-") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "-"))

		parts := strings.Split(line, "|")
		if len(parts) < 2 {
			continue
		}

		url := strings.TrimSpace(parts[1])
		if url == "" {
			continue
		}

		citation := model.Citation{
			Source: strings.TrimSpace(parts[0]),
			URL:    url,
		}
		if len(parts) > 2 {
			citation.Claim = strings.TrimSpace(strings.Join(parts[2:], "|"))
		}
		citations = append(citations, citation)
	}
	return citations
}

// Serialize renders a draft back into the strict section format. Parsing the
// result yields the same draft (round-trip stability for strict output).
func Serialize(d Draft) string {
	var b strings.Builder

	write := func(label, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		b.WriteString("## " + label + "\n" + value + "\n\n")
	}

	write("TITLE", d.Title)
	write("EXCERPT", d.Excerpt)
	write("SEO_TITLE", d.SEOTitle)
	write("SEO_DESCRIPTION", d.SEODescription)
	write("CATEGORY", d.Category)
	write("IMAGE_QUERY", d.ImageQuery)
	if len(d.Tags) > 0 {
		write("TAGS", strings.Join(d.Tags, ", "))
	}
	write("CONTENT", d.Body)
	if len(d.Citations) > 0 {
		var lines []string
		for _, c := range d.Citations {
			lines = append(lines, "- "+c.Source+" | "+c.URL+" | "+c.Claim)
		}
		write("CITATIONS", strings.Join(lines, "\n"))
	}

	return strings.TrimSpace(b.String()) + "\n"
}

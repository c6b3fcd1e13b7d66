package parser

import (
	"fmt"
	"regexp"
	"strings"
)

// Minimal markdown-to-HTML conversion for generated bodies that did not come
// back as markup. Lines that already start a structural HTML block are passed
// through verbatim and never re-escaped or re-wrapped.

var (
	mdHeading = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*$`)
	mdRule    = regexp.MustCompile(`^(-{3,}|\*{3,}|_{3,})\s*$`)
	mdUlItem  = regexp.MustCompile(`^[-*+]\s+(.+)$`)
	mdOlItem  = regexp.MustCompile(`^\d+\.\s+(.+)$`)
	mdFence   = regexp.MustCompile("^```\\s*([A-Za-z0-9+-]*)\\s*$")

	mdImage  = regexp.MustCompile(`!\[([^\]]*)\]\(([^)\s]+)\)`)
	mdLink   = regexp.MustCompile(`\[([^\]]+)\]\(([^)\s]+)\)`)
	mdBold   = regexp.MustCompile(`\*\*(.+?)\*\*|__(.+?)__`)
	mdItalic = regexp.MustCompile(`\*([^*\n]+)\*|_([^_\n]+)_`)
	mdCode   = regexp.MustCompile("`([^`\n]+)`")
)

// MarkdownToHTML converts the supported markdown subset: headings, bold,
// italic, inline code, links, images, lists, block quotes, horizontal rules,
// and fenced code blocks. Everything else becomes paragraphs.
func MarkdownToHTML(md string) string {
	lines := strings.Split(md, "\n")

	var out []string
	var para []string
	var list []string
	var quote []string
	var code []string
	listTag := ""
	inCode := false
	codeLang := ""

	flushPara := func() {
		if len(para) == 0 {
			return
		}
		out = append(out, "<p>"+inlineMarkdown(strings.Join(para, " "))+"</p>")
		para = para[:0]
	}
	flushList := func() {
		if len(list) == 0 {
			return
		}
		out = append(out, "<"+listTag+">")
		for _, item := range list {
			out = append(out, "<li>"+inlineMarkdown(item)+"</li>")
		}
		out = append(out, "</"+listTag+">")
		list = list[:0]
		listTag = ""
	}
	flushQuote := func() {
		if len(quote) == 0 {
			return
		}
		out = append(out, "<blockquote><p>"+inlineMarkdown(strings.Join(quote, " "))+"</p></blockquote>")
		quote = quote[:0]
	}
	flushAll := func() {
		flushPara()
		flushList()
		flushQuote()
	}

	for _, raw := range lines {
		line := strings.TrimRight(raw, " \t")
		trimmed := strings.TrimSpace(line)

		if inCode {
			if mdFence.MatchString(trimmed) {
				attrs := ""
				if codeLang != "" {
					attrs = fmt.Sprintf(` class="language-%s"`, codeLang)
				}
				out = append(out, "<pre><code"+attrs+">"+escapeHTML(strings.Join(code, "\n"))+"</code></pre>")
				code = code[:0]
				inCode = false
				codeLang = ""
				continue
			}
			code = append(code, line)
			continue
		}

		switch {
		case trimmed == "":
			flushAll()

		case strings.HasPrefix(trimmed, "<"):
			// pre-existing structural markup stays untouched
			flushAll()
			out = append(out, line)

		case mdFence.MatchString(trimmed):
			flushAll()
			inCode = true
			codeLang = mdFence.FindStringSubmatch(trimmed)[1]

		case mdRule.MatchString(trimmed):
			flushAll()
			out = append(out, "<hr>")

		case mdHeading.MatchString(trimmed):
			flushAll()
			m := mdHeading.FindStringSubmatch(trimmed)
			level := len(m[1])
			out = append(out, fmt.Sprintf("<h%d>%s</h%d>", level, inlineMarkdown(m[2]), level))

		case strings.HasPrefix(trimmed, ">"):
			flushPara()
			flushList()
			quote = append(quote, strings.TrimSpace(strings.TrimPrefix(trimmed, ">")))

		case mdUlItem.MatchString(trimmed):
			flushPara()
			flushQuote()
			if listTag == "ol" {
				flushList()
			}
			listTag = "ul"
			list = append(list, mdUlItem.FindStringSubmatch(trimmed)[1])

		case mdOlItem.MatchString(trimmed):
			flushPara()
			flushQuote()
			if listTag == "ul" {
				flushList()
			}
			listTag = "ol"
			list = append(list, mdOlItem.FindStringSubmatch(trimmed)[1])

		default:
			flushList()
			flushQuote()
			para = append(para, trimmed)
		}
	}
	flushAll()

	if inCode && len(code) > 0 {
		// unterminated fence: emit what we have
		out = append(out, "<pre><code>"+escapeHTML(strings.Join(code, "\n"))+"</code></pre>")
	}

	return strings.Join(out, "\n")
}

func inlineMarkdown(text string) string {
	text = escapeHTML(text)

	text = mdCode.ReplaceAllString(text, "<code>$1</code>")
	text = mdImage.ReplaceAllString(text, `<img src="$2" alt="$1">`)
	text = mdLink.ReplaceAllString(text, `<a href="$2">$1</a>`)
	text = mdBold.ReplaceAllStringFunc(text, func(m string) string {
		inner := strings.Trim(m, "*_")
		return "<strong>" + inner + "</strong>"
	})
	text = mdItalic.ReplaceAllStringFunc(text, func(m string) string {
		inner := strings.Trim(m, "*_")
		return "<em>" + inner + "</em>"
	})

	return text
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

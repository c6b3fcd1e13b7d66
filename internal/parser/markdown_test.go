package parser

import (
	"strings"
	"testing"
)

func TestMarkdownHeadingsAndParagraphs(t *testing.T) {
	t.Parallel()

	md := `## First Light

Point the scope at the horizon.
Wait for full darkness.

### Setup

Level the tripod.`

	got := MarkdownToHTML(md)

	for _, want := range []string{
		"<h2>First Light</h2>",
		"<p>Point the scope at the horizon. Wait for full darkness.</p>",
		"<h3>Setup</h3>",
		"<p>Level the tripod.</p>",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in output:\n%s", want, got)
		}
	}
}

func TestMarkdownInlineStyles(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"use **averted vision** here", "<strong>averted vision</strong>"},
		{"the *terminator* line", "<em>terminator</em>"},
		{"run `stellarium` first", "<code>stellarium</code>"},
		{"[sky chart](https://example.test/chart)", `<a href="https://example.test/chart">sky chart</a>`},
		{"![moon](https://example.test/moon.jpg)", `<img src="https://example.test/moon.jpg" alt="moon">`},
	}

	for _, tc := range cases {
		got := MarkdownToHTML(tc.in)
		if !strings.Contains(got, tc.want) {
			t.Fatalf("MarkdownToHTML(%q): missing %q in %q", tc.in, tc.want, got)
		}
	}
}

func TestMarkdownLists(t *testing.T) {
	t.Parallel()

	md := `- binoculars
- red flashlight

1. align the finder
2. focus on a bright star`

	got := MarkdownToHTML(md)

	if !strings.Contains(got, "<ul>\n<li>binoculars</li>\n<li>red flashlight</li>\n</ul>") {
		t.Fatalf("unordered list malformed:\n%s", got)
	}
	if !strings.Contains(got, "<ol>\n<li>align the finder</li>\n<li>focus on a bright star</li>\n</ol>") {
		t.Fatalf("ordered list malformed:\n%s", got)
	}
}

func TestMarkdownFencedCodeEscapes(t *testing.T) {
	t.Parallel()

	md := "```python\nif alt < 10:\n    print(\"<too low>\")\n```"

	got := MarkdownToHTML(md)

	if !strings.Contains(got, `<pre><code class="language-python">`) {
		t.Fatalf("missing language class:\n%s", got)
	}
	if !strings.Contains(got, "&lt;too low&gt;") {
		t.Fatalf("code content not escaped:\n%s", got)
	}
}

func TestMarkdownBlockquoteAndRule(t *testing.T) {
	t.Parallel()

	md := `> Dark skies reward patience.
> Always.

---`

	got := MarkdownToHTML(md)

	if !strings.Contains(got, "<blockquote><p>Dark skies reward patience. Always.</p></blockquote>") {
		t.Fatalf("blockquote malformed:\n%s", got)
	}
	if !strings.Contains(got, "<hr>") {
		t.Fatalf("missing horizontal rule:\n%s", got)
	}
}

func TestMarkdownPassesHTMLThrough(t *testing.T) {
	t.Parallel()

	md := `Intro paragraph.

<figure><img src="/m42.jpg"></figure>

Closing paragraph.`

	got := MarkdownToHTML(md)

	if !strings.Contains(got, `<figure><img src="/m42.jpg"></figure>`) {
		t.Fatalf("structural markup was rewritten:\n%s", got)
	}
	if !strings.Contains(got, "<p>Intro paragraph.</p>") || !strings.Contains(got, "<p>Closing paragraph.</p>") {
		t.Fatalf("surrounding paragraphs lost:\n%s", got)
	}
}

func TestMarkdownEscapesRawAngleBrackets(t *testing.T) {
	t.Parallel()

	got := MarkdownToHTML("magnitudes are weird: brighter means a value 1 < 2")
	if !strings.Contains(got, "1 &lt; 2") {
		t.Fatalf("inline text not escaped:\n%s", got)
	}
}

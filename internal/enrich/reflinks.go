package enrich

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

type refLink struct {
	pattern *regexp.Regexp
	term    string
}

// Recognized product names and the canonical search term each one links to.
var refLinks = []refLink{
	{regexp.MustCompile(`(?i)\bCelestron NexStar ?8SE\b`), "Celestron NexStar 8SE"},
	{regexp.MustCompile(`(?i)\bCelestron AstroMaster\b`), "Celestron AstroMaster 130EQ"},
	{regexp.MustCompile(`(?i)\bSky-?Watcher Dobsonian\b`), "Sky-Watcher Classic Dobsonian"},
	{regexp.MustCompile(`(?i)\bOrion SkyQuest\b`), "Orion SkyQuest XT8"},
	{regexp.MustCompile(`(?i)\bNikon Prostaff\b`), "Nikon Prostaff binoculars"},
	{regexp.MustCompile(`(?i)\bVortex Diamondback\b`), "Vortex Diamondback binoculars"},
}

func searchURL(term string) string {
	return "https://www.amazon.com/s?k=" + url.QueryEscape(term)
}

// LinkReferences rewrites the first unlinked mention of each recognized
// product name into an outbound search link. A term already linked anywhere
// in the body is never linked again, and mentions inside an existing link
// are never rewritten.
func LinkReferences(body string) string {
	for _, ref := range refLinks {
		href := searchURL(ref.term)
		if strings.Contains(body, href) {
			continue
		}

		for _, loc := range ref.pattern.FindAllStringIndex(body, -1) {
			if insideLink(body, loc[0]) {
				continue
			}
			mention := body[loc[0]:loc[1]]
			link := fmt.Sprintf(`<a href="%s" target="_blank" rel="nofollow noopener">%s</a>`, href, mention)
			body = body[:loc[0]] + link + body[loc[1]:]
			break
		}
	}
	return body
}

// insideLink reports whether the offset falls between an <a> open and its
// close.
func insideLink(body string, offset int) bool {
	before := body[:offset]
	open := strings.LastIndex(before, "<a ")
	if open == -1 {
		return false
	}
	return strings.LastIndex(before, "</a>") < open
}

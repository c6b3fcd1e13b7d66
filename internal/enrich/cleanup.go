package enrich

import (
	"regexp"
	"strings"
)

var (
	hrRun          = regexp.MustCompile(`(?:<hr\s*/?>\s*){2,}`)
	newsletterExpr = regexp.MustCompile(`(?is)<(p|div)[^>]*>[^<]*(subscribe|sign up)[^<]*newsletter[^<]*</(p|div)>\s*`)
	trailingRules  = regexp.MustCompile(`(?:\s*<hr\s*/?>)+\s*$`)
)

// Cleanup normalizes generator leftovers: runs of horizontal rules collapse
// to one, stray newsletter-style promotional blocks are removed, and trailing
// rules are trimmed.
func Cleanup(body string) string {
	body = newsletterExpr.ReplaceAllString(body, "")
	body = hrRun.ReplaceAllString(body, "<hr>\n")
	body = trailingRules.ReplaceAllString(body, "")
	return strings.TrimSpace(body)
}

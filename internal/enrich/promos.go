package enrich

import "strings"

// promoUnit is the fixed-format in-body promotional block. The marker class
// doubles as the idempotence guard.
const promoUnit = `<aside class="promo-unit"><p>Planning a night under the stars? Check our <a href="/content/stargazing-gear-guide">stargazing gear guide</a> for tested picks.</p></aside>`

// InjectPromos inserts the promo unit after the first level-2 heading and
// after every third one thereafter, plus one appended at the end. A body that
// already carries promo units is left alone.
func InjectPromos(body string) string {
	if strings.Contains(body, `class="promo-unit"`) {
		return body
	}

	locs := h2Block.FindAllStringIndex(body, -1)

	var b strings.Builder
	last := 0
	for i, loc := range locs {
		// after heading 1, 4, 7, ...
		if i%3 != 0 {
			continue
		}
		b.WriteString(body[last:loc[1]])
		b.WriteString("\n" + promoUnit)
		last = loc[1]
	}
	b.WriteString(body[last:])
	b.WriteString("\n" + promoUnit)

	return b.String()
}

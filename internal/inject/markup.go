package inject

import (
	"regexp"
	"strings"

	"github.com/dgallion1/docmap/internal/docmodel"
	"golang.org/x/net/html"
)

var tagRe = regexp.MustCompile(`<[^>]+>`)

// HasMarkup reports whether s contains anything tag-shaped.
func HasMarkup(s string) bool {
	return tagRe.MatchString(s)
}

// ParseMarkup splits s on tag boundaries into formatted spans. Only bare
// b/strong, i/em, u and br tags are interpreted; any other tag, or one
// carrying attributes, is kept as literal text. Entities in text are
// unescaped. Each br (or </br>) becomes its own "\n" span.
func ParseMarkup(s string) []docmodel.Span {
	var (
		spans []docmodel.Span
		cur   docmodel.Span
	)
	text := func(t string) {
		if t == "" {
			return
		}
		if n := len(spans); n > 0 && spans[n-1].Text != "\n" && sameFormat(spans[n-1], cur) {
			spans[n-1].Text += t
			return
		}
		sp := cur
		sp.Text = t
		spans = append(spans, sp)
	}

	z := html.NewTokenizer(strings.NewReader(s))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return spans
		}
		if tt == html.TextToken {
			text(string(z.Text()))
			continue
		}
		raw := string(z.Raw())
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken && tt != html.EndTagToken {
			text(html.UnescapeString(raw))
			continue
		}
		name, hasAttr := z.TagName()
		if hasAttr {
			text(html.UnescapeString(raw))
			continue
		}
		on := tt != html.EndTagToken
		switch string(name) {
		case "b", "strong":
			cur.Bold = on
		case "i", "em":
			cur.Italic = on
		case "u":
			cur.Underline = on
		case "br":
			spans = append(spans, docmodel.Span{Text: "\n"})
		default:
			text(html.UnescapeString(raw))
		}
	}
}

func sameFormat(a, b docmodel.Span) bool {
	return a.Bold == b.Bold && a.Italic == b.Italic && a.Underline == b.Underline
}

package markdown

import (
	"regexp"
	"strings"

	"github.com/russross/blackfriday/v2"
)

var (
	paragraphRe = regexp.MustCompile(`<p>(.*?)</p>`)
	codeBlockRe = regexp.MustCompile(`<pre><code(?: class="[^"]*")?>(.*?)</code></pre>`)
	anyTagRe    = regexp.MustCompile(`</?([a-zA-Z]+)(?:\s[^>]*)?>`)
	tagNameRe   = regexp.MustCompile(`</?([a-zA-Z]+)`)
	newlinesRe  = regexp.MustCompile(`\n{3,}`)
)

// telegramTags is the tag set Telegram's HTML parse mode accepts.
// Everything else is stripped, keeping the inner text.
var telegramTags = map[string]struct{}{
	"b": {}, "i": {}, "u": {}, "s": {},
	"code": {}, "pre": {}, "a": {}, "br": {},
}

var tagRewrites = []struct{ from, to string }{
	{"<strong>", "<b>"}, {"</strong>", "</b>"},
	{"<em>", "<i>"}, {"</em>", "</i>"},
	{"<ul>", ""}, {"</ul>", ""},
	{"<ol>", ""}, {"</ol>", ""},
	{"<li>", "• "}, {"</li>", "\n"},
}

// ToTelegramHTML renders markdown and reduces the result to the HTML
// subset Telegram accepts.
func ToTelegramHTML(text string) string {
	if text == "" {
		return ""
	}

	html := string(blackfriday.Run([]byte(text), blackfriday.WithExtensions(blackfriday.CommonExtensions)))

	html = paragraphRe.ReplaceAllString(html, "$1\n")
	for _, r := range tagRewrites {
		html = strings.ReplaceAll(html, r.from, r.to)
	}
	html = codeBlockRe.ReplaceAllString(html, "<pre>$1</pre>")

	html = anyTagRe.ReplaceAllStringFunc(html, func(match string) string {
		m := tagNameRe.FindStringSubmatch(match)
		if len(m) > 1 {
			if _, ok := telegramTags[m[1]]; ok {
				return match
			}
		}
		return ""
	})

	html = newlinesRe.ReplaceAllString(html, "\n\n")
	return strings.TrimSpace(html)
}

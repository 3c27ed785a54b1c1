package markup

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// Bullet prefixes every list item line in rich text.
const Bullet = "• "

var htmlTagRegex = regexp.MustCompile(`<[^>]*>`)

// CleanText converts an HTML fragment or entity-encoded string to a single
// line of plain text: entities are decoded, tags stripped and runs of
// whitespace or control characters collapsed to one space.
func CleanText(content string) string {
	unescaped := html.UnescapeString(content)
	plain := htmlTagRegex.ReplaceAllString(unescaped, " ")
	return collapse(plain)
}

func collapse(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || r == ' ' {
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "ul": true, "ol": true, "li": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"section": true, "article": true, "header": true, "footer": true,
	"blockquote": true, "pre": true, "table": true, "tr": true, "hr": true,
}

var skippedElements = map[string]bool{
	"script": true, "style": true, "noscript": true, "button": true, "svg": true, "template": true,
}

// lineWriter accumulates inline text and emits one normalized line whenever
// a block boundary is crossed.
type lineWriter struct {
	lines   []string
	current strings.Builder
	prefix  string // pending bullet for the next emitted line
}

func (w *lineWriter) flush() {
	line := collapse(w.current.String())
	w.current.Reset()
	if line == "" {
		return
	}
	if w.prefix != "" {
		line = w.prefix + line
		w.prefix = ""
	}
	w.lines = append(w.lines, line)
}

func (w *lineWriter) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.current.WriteString(n.Data)
		return
	case html.ElementNode:
		if skippedElements[n.Data] {
			return
		}
	case html.CommentNode:
		return
	}

	block := n.Type == html.ElementNode && blockElements[n.Data]
	if block {
		w.flush()
		if n.Data == "li" {
			w.prefix = Bullet
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
	if block {
		w.flush()
		if n.Data == "li" {
			w.prefix = ""
		}
	}
}

// richText flattens the subtree rooted at n into newline separated lines.
func richText(n *html.Node) string {
	w := &lineWriter{}
	w.walk(n)
	w.flush()
	return strings.Join(w.lines, "\n")
}

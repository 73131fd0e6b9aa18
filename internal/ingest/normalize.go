package ingest

import (
	"strings"

	"golang.org/x/net/html"
)

// NormalizeText trims whitespace and strips HTML markup. Feedback forwarded
// from email clients often arrives as HTML fragments.
func NormalizeText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || !looksLikeHTML(s) {
		return compactWhitespace(s)
	}
	node, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return compactWhitespace(s)
	}
	var b strings.Builder
	extractText(node, &b, false)
	return compactWhitespace(b.String())
}

func looksLikeHTML(s string) bool {
	open := strings.IndexByte(s, '<')
	return open != -1 && strings.IndexByte(s[open:], '>') != -1
}

func extractText(n *html.Node, b *strings.Builder, hidden bool) {
	if n.Type == html.ElementNode {
		switch strings.ToLower(n.Data) {
		case "script", "style", "noscript":
			hidden = true
		case "br", "p", "div", "li", "tr":
			b.WriteString("\n")
		}
	}
	if !hidden && n.Type == html.TextNode {
		b.WriteString(n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractText(c, b, hidden)
	}
}

func compactWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\t", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

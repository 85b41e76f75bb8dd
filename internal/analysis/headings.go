package analysis

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	// MaxAllCapsHeadingLen bounds all-caps heading candidates.
	MaxAllCapsHeadingLen = 100
	// MaxShortHeadingLen bounds capital-initial heading candidates.
	MaxShortHeadingLen = 50
	// MaxHeadings caps DocumentStructure.Headings.
	MaxHeadings = 20
)

var numberedHeadingRe = regexp.MustCompile(`^\d+(\.\d+)*[.)]?\s+\p{Lu}`)

// DetectHeadings merges <h1>–<h6> texts from htmlContent with heading-like
// plain-text lines, de-duplicated in first-seen order.
func DetectHeadings(htmlContent, text string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(h string) {
		h = CollapseWhitespace(h)
		if h == "" || seen[h] {
			return
		}
		seen[h] = true
		out = append(out, h)
	}

	for _, h := range HTMLHeadings(htmlContent) {
		add(h)
	}
	for _, line := range Lines(text) {
		if IsHeadingLine(line) {
			add(line)
		}
	}
	return Truncate(out, MaxHeadings)
}

// IsHeadingLine reports whether a plain line looks like a heading: short
// all-caps text, a numbered section marker followed by a capital, or a short
// capital-initial line without terminal punctuation.
func IsHeadingLine(line string) bool {
	line = strings.TrimSpace(line)
	n := len([]rune(line))
	if n == 0 {
		return false
	}
	if n < MaxAllCapsHeadingLen && hasLetter(line) && strings.ToUpper(line) == line {
		return true
	}
	if numberedHeadingRe.MatchString(line) {
		return true
	}
	first := []rune(line)[0]
	if n < MaxShortHeadingLen && unicode.IsUpper(first) && !strings.ContainsAny(line[len(line)-1:], ".,;:!?") {
		return true
	}
	return false
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// HTMLHeadings returns the text of every <h1>–<h6> element.
func HTMLHeadings(htmlContent string) []string {
	if strings.TrimSpace(htmlContent) == "" {
		return nil
	}
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil
	}
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
				if t := nodeText(n); t != "" {
					out = append(out, t)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}

// HTMLToText strips tags, emitting one line per block element.
func HTMLToText(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return ""
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style:
				return
			case atom.Br:
				sb.WriteByte('\n')
			case atom.Td, atom.Th:
				sb.WriteByte('\t')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && isBlock(n.DataAtom) {
			sb.WriteByte('\n')
		}
	}
	walk(doc)
	return CleanDocumentText(sb.String())
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Li, atom.Tr, atom.Table, atom.Ul, atom.Ol,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.Blockquote, atom.Pre:
		return true
	}
	return false
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return CollapseWhitespace(sb.String())
}

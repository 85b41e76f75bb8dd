// Package analysis holds the text normalizer, statistics engine, quality
// assessor and heading heuristics shared by the format processors.
package analysis

import (
	"regexp"
	"strings"
)

// Pre-compiled regexes for the cleaners to avoid recompilation on every call.
var (
	controlCharRe  = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F-\x{9F}]`)
	multiSpaceRe   = regexp.MustCompile(`[ \t]+`)
	multiNewlineRe = regexp.MustCompile(`\n{3,}`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
)

// NormalizeLineEndings converts \r\n and lone \r to \n.
func NormalizeLineEndings(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}

// CleanText removes control characters (except newlines and tabs), collapses
// runs of spaces and tabs, trims every line and collapses 3+ consecutive
// newlines into 2. Paragraph breaks survive.
func CleanText(text string) string {
	text = NormalizeLineEndings(text)
	text = controlCharRe.ReplaceAllString(text, "")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(multiSpaceRe.ReplaceAllString(line, " "))
	}
	text = strings.Join(lines, "\n")

	text = multiNewlineRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// CleanDocumentText is the stricter cleaner used for word-processor and
// plain-text uploads: on top of CleanText it drops blank-only lines, so the
// result holds one non-empty line per text line.
func CleanDocumentText(text string) string {
	text = CleanText(text)
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// CollapseWhitespace joins all whitespace runs into single spaces.
func CollapseWhitespace(text string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// xmlEntities covers the five predefined XML entities.
var xmlEntities = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&apos;", "'",
	"&amp;", "&",
)

// UnescapeXML decodes the five predefined XML entities.
func UnescapeXML(s string) string {
	return xmlEntities.Replace(s)
}

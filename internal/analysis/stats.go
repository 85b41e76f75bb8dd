package analysis

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"doclens/internal/model"
)

const (
	// MeaningfulWordMinLen: words longer than this count as meaningful.
	MeaningfulWordMinLen = 3
	// WordsPerMinute drives the reading-time estimate.
	WordsPerMinute = 200
	// TopWordsLimit caps WordAnalysis.TopWords.
	TopWordsLimit = 50

	// Structure list caps.
	MaxParagraphs = 50
	MaxSentences  = 100
	MaxLines      = 100
)

var (
	sentenceSplitRe  = regexp.MustCompile(`[.!?]+`)
	paragraphSplitRe = regexp.MustCompile(`\n\s*\n`)
)

// Words splits text on whitespace.
func Words(text string) []string {
	return strings.Fields(text)
}

// normalizeWord lowercases w and drops everything that is not a letter or digit.
func normalizeWord(w string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(w) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// MeaningfulWords returns the normalized words of text longer than
// MeaningfulWordMinLen runes, in order.
func MeaningfulWords(text string) []string {
	var out []string
	for _, w := range Words(text) {
		n := normalizeWord(w)
		if len([]rune(n)) > MeaningfulWordMinLen {
			out = append(out, n)
		}
	}
	return out
}

// DiversityRatio is unique meaningful words over total meaningful words.
func DiversityRatio(meaningful []string) float64 {
	if len(meaningful) == 0 {
		return 0
	}
	seen := make(map[string]struct{}, len(meaningful))
	for _, w := range meaningful {
		seen[w] = struct{}{}
	}
	return float64(len(seen)) / float64(len(meaningful))
}

// Sentences splits text on terminal punctuation and drops empty pieces.
func Sentences(text string) []string {
	var out []string
	for _, s := range sentenceSplitRe.Split(text, -1) {
		if s = CollapseWhitespace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Paragraphs splits text on blank lines. Text that has no blank lines (the
// document cleaner removes them) is split per line instead.
func Paragraphs(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	parts := paragraphSplitRe.Split(text, -1)
	if len(parts) == 1 {
		parts = strings.Split(text, "\n")
	}
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Lines returns the non-empty trimmed lines of text.
func Lines(text string) []string {
	var out []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// ComputeStatistics derives TextStatistics from already-normalized text.
func ComputeStatistics(text string) model.TextStatistics {
	words := Words(text)
	meaningful := MeaningfulWords(text)
	sentences := Sentences(text)
	paragraphs := Paragraphs(text)

	unique := make(map[string]struct{}, len(meaningful))
	for _, w := range meaningful {
		unique[w] = struct{}{}
	}

	st := model.TextStatistics{
		TotalCharacters:      len([]rune(text)),
		TotalWords:           len(words),
		MeaningfulWords:      len(meaningful),
		TotalSentences:       len(sentences),
		TotalParagraphs:      len(paragraphs),
		TotalLines:           len(Lines(text)),
		UniqueWords:          len(unique),
		EstimatedReadingTime: int(math.Ceil(float64(len(words)) / WordsPerMinute)),
		WordDiversity:        round(DiversityRatio(meaningful), 3),
	}
	if len(sentences) > 0 {
		st.AvgWordsPerSentence = round(float64(len(words))/float64(len(sentences)), 1)
	}
	if len(paragraphs) > 0 {
		st.AvgSentencesPerParagraph = round(float64(len(sentences))/float64(len(paragraphs)), 1)
	}
	return st
}

// AnalyzeWords builds the meaningful-word frequency table. TopWords is sorted
// by descending count, ties broken alphabetically.
func AnalyzeWords(text string) model.WordAnalysis {
	freq := make(map[string]int)
	for _, w := range MeaningfulWords(text) {
		freq[w]++
	}

	top := make([]model.WordCount, 0, len(freq))
	for w, c := range freq {
		top = append(top, model.WordCount{Word: w, Count: c})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].Word < top[j].Word
	})
	if len(top) > TopWordsLimit {
		top = top[:TopWordsLimit]
	}
	return model.WordAnalysis{TopWords: top, WordFrequency: freq}
}

// Truncate returns at most n leading elements of s, never nil.
func Truncate(s []string, n int) []string {
	if s == nil {
		return []string{}
	}
	if len(s) > n {
		return s[:n]
	}
	return s
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// Round2 rounds v to two decimals.
func Round2(v float64) float64 { return round(v, 2) }

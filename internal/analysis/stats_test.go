package analysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeStatistics(t *testing.T) {
	text := "Alpha beta gamma delta. Second sentence here!\nThird line without end"
	st := ComputeStatistics(text)

	assert.Equal(t, len([]rune(text)), st.TotalCharacters)
	assert.Equal(t, 11, st.TotalWords)
	assert.Equal(t, 10, st.MeaningfulWords) // all but "end"
	assert.Equal(t, 3, st.TotalSentences)
	assert.Equal(t, 2, st.TotalLines)
	assert.Equal(t, 2, st.TotalParagraphs)
	assert.Equal(t, 10, st.UniqueWords)
	assert.Equal(t, 3.7, st.AvgWordsPerSentence)
	assert.Equal(t, 1.5, st.AvgSentencesPerParagraph)
	assert.Equal(t, 1, st.EstimatedReadingTime)
	assert.Equal(t, 1.0, st.WordDiversity)
}

func TestComputeStatistics_Empty(t *testing.T) {
	st := ComputeStatistics("")
	assert.Zero(t, st.TotalWords)
	assert.Zero(t, st.AvgWordsPerSentence)
	assert.Zero(t, st.AvgSentencesPerParagraph)
	assert.Zero(t, st.EstimatedReadingTime)
}

func TestComputeStatistics_ReadingTimeRoundsUp(t *testing.T) {
	st := ComputeStatistics(strings.Repeat("word ", 201))
	assert.Equal(t, 2, st.EstimatedReadingTime)
}

func TestMeaningfulWords_NormalizesCaseAndPunctuation(t *testing.T) {
	got := MeaningfulWords("The Quick, brown FOX! jumps... over")
	assert.Equal(t, []string{"quick", "brown", "jumps", "over"}, got)
}

func TestDiversityRatio(t *testing.T) {
	assert.Zero(t, DiversityRatio(nil))
	assert.InDelta(t, 0.5, DiversityRatio([]string{"word", "word", "text", "text"}), 1e-9)
}

func TestAnalyzeWords_SortsByCountThenWord(t *testing.T) {
	wa := AnalyzeWords("zeta alpha beta zeta beta zeta")
	require.Len(t, wa.TopWords, 3)
	assert.Equal(t, "zeta", wa.TopWords[0].Word)
	assert.Equal(t, 3, wa.TopWords[0].Count)
	assert.Equal(t, "beta", wa.TopWords[1].Word)
	assert.Equal(t, "alpha", wa.TopWords[2].Word)
	assert.Equal(t, map[string]int{"zeta": 3, "beta": 2, "alpha": 1}, wa.WordFrequency)
}

func TestAnalyzeWords_CapsTopWords(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 80; i++ {
		sb.WriteString("word")
		sb.WriteByte(byte('a' + i%26))
		sb.WriteByte(byte('a' + i/26))
		sb.WriteByte(' ')
	}
	wa := AnalyzeWords(sb.String())
	assert.Len(t, wa.TopWords, TopWordsLimit)
	assert.Len(t, wa.WordFrequency, 80)
}

func TestParagraphs_FallsBackToLines(t *testing.T) {
	assert.Equal(t, []string{"one", "two"}, Paragraphs("one\ntwo"))
	assert.Equal(t, []string{"one\ntwo", "three"}, Paragraphs("one\ntwo\n\nthree"))
	assert.Nil(t, Paragraphs("   "))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, []string{}, Truncate(nil, 3))
	assert.Equal(t, []string{"a", "b"}, Truncate([]string{"a", "b", "c"}, 2))
}

package processor

import (
	"doclens/internal/analysis"
	"doclens/internal/model"
)

// Improvement tips, shared by every gate.
var textTips = []string{
	"Add more detailed content with complete sentences",
	"Use a wider vocabulary instead of repeating the same words",
	"Combine short notes into a single longer document",
}

// ProcessText analyses plain text. Text that fails the content gates gets an
// improvement recommendation instead of statistics views.
func ProcessText(raw string) *model.TextResult {
	text := analysis.CleanDocumentText(raw)
	meaningful := analysis.MeaningfulWords(text)

	switch {
	case len([]rune(text)) < analysis.MinTextLength:
		return textRecommendation(text, model.ReasonTooShort,
			"This text is too short to analyse. Add more content and upload it again.")
	case len(meaningful) < analysis.MinMeaningfulWords:
		return textRecommendation(text, model.ReasonInsufficientContent,
			"This text has too few meaningful words to analyse. Add more content and upload it again.")
	case analysis.DiversityRatio(meaningful) < analysis.MinDiversityRatio:
		return textRecommendation(text, model.ReasonPoorDiversity,
			"This text repeats the same words too often to produce useful statistics.")
	}

	stats := analysis.ComputeStatistics(text)
	var avgWordsPerLine float64
	if stats.TotalLines > 0 {
		avgWordsPerLine = float64(stats.TotalWords) / float64(stats.TotalLines)
	}
	return &model.TextResult{
		Content:    text,
		Statistics: stats,
		Structure: model.TextStructure{
			Lines:      stats.TotalLines,
			Paragraphs: analysis.Truncate(analysis.Paragraphs(text), analysis.MaxParagraphs),
			Sentences:  analysis.Truncate(analysis.Sentences(text), analysis.MaxSentences),
		},
		WordAnalysis:   analysis.AnalyzeWords(text),
		ContentQuality: analysis.AssessTextQuality(stats.TotalCharacters, stats.WordDiversity, avgWordsPerLine),
	}
}

func textRecommendation(text, reason, msg string) *model.TextResult {
	return &model.TextResult{
		Statistics:   analysis.ComputeStatistics(text),
		Structure:    model.TextStructure{Paragraphs: []string{}, Sentences: []string{}},
		WordAnalysis: emptyWordAnalysis(),
		Recommendation: &model.Recommendation{
			Kind:        model.ImprovementAdvice,
			Reason:      reason,
			Message:     msg,
			Suggestions: textTips,
		},
	}
}

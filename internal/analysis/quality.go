package analysis

import (
	"strings"

	"doclens/internal/model"
)

// Product-tuned thresholds. They are policy, kept verbatim for parity.
const (
	// Plain-text content gate.
	MinTextLength          = 50
	MinMeaningfulWords     = 20
	MinDiversityRatio      = 0.3
	DiversityFairBand      = 0.4
	DiversityGoodBand      = 0.5
	DiversityExcellentBand = 0.6

	// Word-processor extraction.
	DocxFallbackLength  = 50  // below this, text is derived from the HTML rendering
	MinExtractionLength = 100 // below this, DOCX quality is poor and DOC asks for conversion
	MinExtractionWords  = 20
	MaxGoodWarnings     = 5
)

// replacementMarkers show up when an extractor hits glyphs it cannot map.
var replacementMarkers = []string{"???", "□", "�"}

// AssessTextQuality labels plain text by length, diversity and line density.
func AssessTextQuality(length int, diversity, avgWordsPerLine float64) model.Quality {
	switch {
	case length > 2000 && diversity > DiversityExcellentBand && avgWordsPerLine > 8:
		return model.QualityExcellent
	case length > 1000 && diversity > DiversityGoodBand && avgWordsPerLine > 5:
		return model.QualityGood
	case length > 500 && diversity > DiversityFairBand:
		return model.QualityFair
	default:
		return model.QualityPoor
	}
}

// AssessPresentationQuality labels slide text by length, diversity and word count.
func AssessPresentationQuality(length int, diversity float64, words int) model.Quality {
	switch {
	case length > 2000 && diversity > DiversityGoodBand && words > 200:
		return model.QualityExcellent
	case length > 1000 && diversity > DiversityFairBand && words > 100:
		return model.QualityGood
	case length > 500 && diversity > MinDiversityRatio && words > 50:
		return model.QualityFair
	default:
		return model.QualityPoor
	}
}

// AssessExtractionQuality labels word-processor extraction. parseErr is any
// error reported by the text or HTML extractor.
func AssessExtractionQuality(text string, wordCount int, warnings []string, parseErr error) model.Quality {
	switch {
	case parseErr != nil:
		return model.QualityPoor
	case len([]rune(text)) < MinExtractionLength || wordCount < MinExtractionWords:
		return model.QualityPoor
	case len(warnings) > MaxGoodWarnings || hasReplacementMarkers(text):
		return model.QualityFair
	case len(warnings) > 0:
		return model.QualityGood
	default:
		return model.QualityExcellent
	}
}

func hasReplacementMarkers(text string) bool {
	for _, m := range replacementMarkers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

// Package model defines the processed-document contract shared by the
// pipeline, the result cache and the HTTP/CLI surfaces.
package model

// UploadedFile is one raw input to the pipeline. The pipeline only reads it.
type UploadedFile struct {
	Name     string
	MimeType string
	Size     int64
	Data     []byte
}

// ProcessedDocument is the output envelope, one per uploaded file.
type ProcessedDocument struct {
	Name string       `json:"name"`
	Type string       `json:"type"` // MIME type as reported by the uploader
	Size int64        `json:"size"`
	Data FormatResult `json:"data"`
}

// ResultType discriminates FormatResult variants on the wire.
type ResultType string

const (
	TypeCSV          ResultType = "csv"
	TypeExcel        ResultType = "excel"
	TypePDF          ResultType = "pdf"
	TypeDocument     ResultType = "document"
	TypePresentation ResultType = "presentation"
	TypeText         ResultType = "text"
)

// FormatResult is the sealed union of per-format results. Every value carries
// either content, a failure message, or a recommendation.
type FormatResult interface {
	ResultType() ResultType
	// Failure returns the processing error message, or "" when none.
	Failure() string
	// Advice returns the conversion/improvement recommendation, or nil.
	Advice() *Recommendation
	isFormatResult()
}

// Quality is a categorical confidence label for extracted content.
type Quality string

const (
	QualityExcellent   Quality = "excellent"
	QualityGood        Quality = "good"
	QualityFair        Quality = "fair"
	QualityPoor        Quality = "poor"
	QualityFailed      Quality = "failed"
	QualityUnsupported Quality = "unsupported"
)

// RecommendationKind tells consumers which re-upload guidance applies.
type RecommendationKind string

const (
	// ConversionAdvice asks for the file in a better format.
	ConversionAdvice RecommendationKind = "conversion"
	// ImprovementAdvice asks for more or better content.
	ImprovementAdvice RecommendationKind = "improvement"
)

// Reason codes carried by recommendations.
const (
	ReasonUnsupportedFormat   = "unsupported_format"
	ReasonMinimalContent      = "minimal_content"
	ReasonExtractionFailed    = "extraction_failed"
	ReasonPoorExtraction      = "poor_extraction"
	ReasonTooShort            = "too_short"
	ReasonInsufficientContent = "insufficient_content"
	ReasonPoorDiversity       = "poor_diversity"
)

// Recommendation replaces content when showing it would mislead.
type Recommendation struct {
	Kind        RecommendationKind
	Reason      string
	Message     string
	Suggestions []string // target formats for conversions, tips for improvements
}

// Outcome buckets a result for logging and metrics.
func Outcome(r FormatResult) string {
	switch {
	case r == nil:
		return "error"
	case r.Failure() != "":
		return "error"
	case r.Advice() != nil:
		return "recommendation"
	default:
		return "ok"
	}
}

// TextStatistics is shared by text, document and presentation results.
type TextStatistics struct {
	TotalCharacters          int     `json:"totalCharacters"`
	TotalWords               int     `json:"totalWords"`
	MeaningfulWords          int     `json:"meaningfulWords"`
	TotalSentences           int     `json:"totalSentences"`
	TotalParagraphs          int     `json:"totalParagraphs"`
	TotalLines               int     `json:"totalLines"`
	UniqueWords              int     `json:"uniqueWords"`
	AvgWordsPerSentence      float64 `json:"avgWordsPerSentence"`
	AvgSentencesPerParagraph float64 `json:"avgSentencesPerParagraph"`
	EstimatedReadingTime     int     `json:"estimatedReadingTime"`
	WordDiversity            float64 `json:"wordDiversity"`
}

// WordCount is one entry of a ranked word table.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// WordAnalysis holds the word-frequency table and its top entries.
type WordAnalysis struct {
	TopWords      []WordCount    `json:"topWords"`
	WordFrequency map[string]int `json:"wordFrequency"`
}

package model

// Row maps column name to raw cell text.
type Row map[string]string

// ColumnSummary describes one column of a tabular result. Min, Max and Avg
// are nil when the column holds no numeric values.
type ColumnSummary struct {
	Total    int      `json:"total"`
	Numeric  int      `json:"numeric"`
	Min      *float64 `json:"min"`
	Max      *float64 `json:"max"`
	Avg      *float64 `json:"avg"`
	DataType string   `json:"dataType"`
}

// Column data types.
const (
	DataTypeNumeric = "numeric"
	DataTypeText    = "text"
)

// TabularResult is produced for CSV and spreadsheet uploads.
type TabularResult struct {
	Kind      ResultType               `json:"type"` // TypeCSV or TypeExcel
	RowCount  int                      `json:"rows"`
	Columns   []string                 `json:"columns"`
	Data      []Row                    `json:"data"`
	Summary   map[string]ColumnSummary `json:"summary"`
	SheetName string                   `json:"sheetName,omitempty"`
	Error     string                   `json:"error,omitempty"`
}

func (r *TabularResult) ResultType() ResultType  { return r.Kind }
func (r *TabularResult) Failure() string         { return r.Error }
func (r *TabularResult) Advice() *Recommendation { return nil }
func (*TabularResult) isFormatResult()           {}

// PdfPage is the extracted text of one page.
type PdfPage struct {
	PageNumber int    `json:"pageNumber"`
	Text       string `json:"text"`
	TextLength int    `json:"textLength"`
	Error      string `json:"error,omitempty"`
}

// RenderedPage is the raster preview of one page.
type RenderedPage struct {
	PageNumber int    `json:"pageNumber"`
	ImageData  string `json:"imageData,omitempty"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Error      string `json:"error,omitempty"`
}

// PdfMetadata fields default to MetadataNotSpecified.
type PdfMetadata struct {
	Title            string `json:"title"`
	Author           string `json:"author"`
	Subject          string `json:"subject"`
	Creator          string `json:"creator"`
	Producer         string `json:"producer"`
	CreationDate     string `json:"creationDate"`
	ModificationDate string `json:"modificationDate"`
	Keywords         string `json:"keywords"`
	PDFVersion       string `json:"pdfVersion"`
}

const (
	MetadataNotSpecified     = "Not specified"
	MetadataProcessingFailed = "Processing failed"
)

// FilledMetadata returns metadata with every field set to v.
func FilledMetadata(v string) PdfMetadata {
	return PdfMetadata{
		Title: v, Author: v, Subject: v, Creator: v, Producer: v,
		CreationDate: v, ModificationDate: v, Keywords: v, PDFVersion: v,
	}
}

// PdfResult is produced for PDF uploads. ProcessingNote is non-nil iff the
// page cap truncated the document.
type PdfResult struct {
	NumPages        int            `json:"numPages"`
	ProcessedPages  int            `json:"processedPages"`
	Pages           []PdfPage      `json:"pages"`
	RenderedPages   []RenderedPage `json:"renderedPages"`
	FullText        string         `json:"fullText"`
	Metadata        PdfMetadata    `json:"metadata"`
	ProcessingNote  *string        `json:"processingNote"`
	WordCount       int            `json:"wordCount"`
	AvgWordsPerPage int            `json:"avgWordsPerPage"`
	Error           string         `json:"error,omitempty"`
}

func (*PdfResult) ResultType() ResultType    { return TypePDF }
func (r *PdfResult) Failure() string         { return r.Error }
func (r *PdfResult) Advice() *Recommendation { return nil }
func (*PdfResult) isFormatResult()           {}

// DocumentStructure lists paragraphs (≤50), headings (≤20) and lines (≤100).
type DocumentStructure struct {
	Paragraphs []string `json:"paragraphs"`
	Headings   []string `json:"headings"`
	Lines      []string `json:"lines"`
}

// DocumentResult is produced for DOC/DOCX uploads and unknown binaries.
type DocumentResult struct {
	Format            string            `json:"format"` // docx, doc or binary
	Title             string            `json:"title,omitempty"`
	Content           string            `json:"content"`
	HTMLContent       string            `json:"htmlContent"`
	MarkdownContent   string            `json:"markdownContent,omitempty"`
	ExtractionQuality Quality           `json:"extractionQuality"`
	Statistics        TextStatistics    `json:"statistics"`
	Structure         DocumentStructure `json:"structure"`
	WordAnalysis      WordAnalysis      `json:"wordAnalysis"`
	Warnings          []string          `json:"warnings,omitempty"`
	Recommendation    *Recommendation   `json:"-"`
	Error             string            `json:"error,omitempty"`
}

func (*DocumentResult) ResultType() ResultType    { return TypeDocument }
func (r *DocumentResult) Failure() string         { return r.Error }
func (r *DocumentResult) Advice() *Recommendation { return r.Recommendation }
func (*DocumentResult) isFormatResult()           {}

// Slide preview sources.
const (
	PreviewEmbedded    = "embedded"
	PreviewRendered    = "rendered"
	PreviewPlaceholder = "placeholder"
)

// Slide is one presentation slide with its preview.
type Slide struct {
	SlideNumber      int    `json:"slideNumber"`
	Text             string `json:"text"`
	ImageData        string `json:"imageData"`
	PreviewSource    string `json:"previewSource"`
	HasVisualContent bool   `json:"hasVisualContent"`
	WordCount        int    `json:"wordCount"`
	Notes            string `json:"notes,omitempty"`
	Error            string `json:"error,omitempty"`
}

// PresentationResult is produced for PPT/PPTX uploads.
type PresentationResult struct {
	VisualSlides    []Slide         `json:"visualSlides"`
	Content         string          `json:"content"`
	SlideCount      int             `json:"slideCount"`
	SlidesWithNotes int             `json:"slidesWithNotes"`
	Statistics      TextStatistics  `json:"statistics"`
	WordAnalysis    WordAnalysis    `json:"wordAnalysis"`
	ContentQuality  Quality         `json:"contentQuality"`
	Recommendation  *Recommendation `json:"-"`
	Error           string          `json:"error,omitempty"`
}

func (*PresentationResult) ResultType() ResultType    { return TypePresentation }
func (r *PresentationResult) Failure() string         { return r.Error }
func (r *PresentationResult) Advice() *Recommendation { return r.Recommendation }
func (*PresentationResult) isFormatResult()           {}

// TextStructure holds the line count, paragraphs (≤50) and sentences (≤100).
type TextStructure struct {
	Lines      int      `json:"lines"`
	Paragraphs []string `json:"paragraphs"`
	Sentences  []string `json:"sentences"`
}

// TextResult is produced for plain-text uploads.
type TextResult struct {
	Content        string          `json:"content"`
	Statistics     TextStatistics  `json:"statistics"`
	Structure      TextStructure   `json:"structure"`
	WordAnalysis   WordAnalysis    `json:"wordAnalysis"`
	ContentQuality Quality         `json:"contentQuality,omitempty"`
	Recommendation *Recommendation `json:"-"`
	Error          string          `json:"error,omitempty"`
}

func (*TextResult) ResultType() ResultType    { return TypeText }
func (r *TextResult) Failure() string         { return r.Error }
func (r *TextResult) Advice() *Recommendation { return r.Recommendation }
func (*TextResult) isFormatResult()           {}

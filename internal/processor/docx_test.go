package processor

import (
	"errors"
	"strings"
	"testing"

	goword "github.com/VantageDataChat/GoWord"
	"github.com/VantageDataChat/GoWord/document"
	"github.com/VantageDataChat/GoWord/style"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doclens/internal/analysis"
	"doclens/internal/model"
)

const docxBody = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>Introduction</w:t></w:r></w:p>
<w:p><w:r><w:t>We surveyed forty participants across three regional offices.</w:t></w:r></w:p>
<w:p><w:r><w:rPr><w:b/></w:rPr><w:t>METHODOLOGY</w:t></w:r></w:p>
<w:p><w:r><w:t xml:space="preserve">Interviews ran for </w:t></w:r><w:r><w:rPr><w:i/></w:rPr><w:t>one hour</w:t></w:r><w:r><w:t> each.</w:t></w:r></w:p>
<w:p><w:pPr><w:pStyle w:val="ListParagraph"/><w:numPr><w:ilvl w:val="0"/></w:numPr></w:pPr><w:r><w:t>Recorded sessions</w:t></w:r></w:p>
<w:p><w:pPr><w:pStyle w:val="ListParagraph"/><w:numPr><w:ilvl w:val="0"/></w:numPr></w:pPr><w:r><w:t>Written notes</w:t></w:r></w:p>
<w:p><w:r><w:drawing><w:inline/></w:drawing></w:r></w:p>
<w:tbl><w:tr><w:tc><w:p><w:r><w:t>Site</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>Count</w:t></w:r></w:p></w:tc></w:tr></w:tbl>
</w:body>
</w:document>`

func docxPackage(t *testing.T, body string) []byte {
	return buildZip(t, map[string][]byte{
		"[Content_Types].xml":   []byte(`<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="xml" ContentType="application/xml"/><Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/></Types>`),
		"_rels/.rels":           []byte(`<?xml version="1.0" encoding="UTF-8"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/></Relationships>`),
		"word/document.xml":     []byte(body),
		"word/media/image1.png": []byte("\x89PNG\r\n\x1a\n"),
	})
}

func docxFixture(t *testing.T) []byte { return docxPackage(t, docxBody) }

func openFixture(t *testing.T, data []byte) *goword.Document {
	t.Helper()
	doc, err := openDOCX(data)
	require.NoError(t, err)
	return doc
}

func TestDOCXHTML(t *testing.T) {
	data := docxFixture(t)
	html, warnings, err := docxHTML(openFixture(t, data), embeddedMedia(data))
	require.NoError(t, err)

	assert.Contains(t, html, "<h1>Introduction</h1>")
	assert.Contains(t, html, "<p><strong>METHODOLOGY</strong></p>")
	assert.Contains(t, html, "<p>Interviews ran for <em>one hour</em> each.</p>")
	assert.Contains(t, html, "<ul><li>Recorded sessions</li><li>Written notes</li></ul>")
	assert.Contains(t, html, "<table><tr><td><p>Site</p></td><td><p>Count</p></td></tr></table>")
	assert.Equal(t, []string{msgObjectOmitted}, warnings)
}

func TestDOCXHTML_ElementTree(t *testing.T) {
	para := func(text string) *document.Paragraph {
		return &document.Paragraph{Runs: []*document.Run{{Text: text}}}
	}
	nested := &document.Table{Rows: []*document.Row{{Cells: []*document.Cell{
		{Elements: []document.Element{para("north")}},
		{Elements: []document.Element{para("12")}},
	}}}}
	doc := &goword.Document{Sections: []*goword.Section{{Elements: []document.Element{
		&document.Paragraph{StyleName: "Title", Runs: []*document.Run{{Text: "Plan"}}},
		&document.ListItem{Text: "first"},
		&document.ListItem{Text: "second & last"},
		&document.Paragraph{Runs: []*document.Run{
			{Text: "seen "},
			{Text: "hidden", Style: style.FontStyle{Hidden: true}},
			{Text: "line", Break: true},
		}},
		&document.Image{Name: "image1.png"},
		&document.Table{Rows: []*document.Row{{Cells: []*document.Cell{
			{Elements: []document.Element{nested}},
		}}}},
	}}}}

	html, warnings, err := docxHTML(doc, 0)
	require.NoError(t, err)
	assert.Equal(t,
		"<h1>Plan</h1><ul><li>first</li><li>second &amp; last</li></ul><p>seen line<br></p>"+
			"<table><tr><td><p>north | 12</p></td></tr></table>",
		html)
	assert.Equal(t, []string{msgObjectOmitted, msgTableFlattened}, warnings)
}

func TestDOCXHTML_UnknownStyleWarns(t *testing.T) {
	body := strings.Replace(docxBody,
		`<w:p><w:r><w:t>We surveyed`,
		`<w:p><w:pPr><w:pStyle w:val="FancyQuote"/></w:pPr><w:r><w:t>We surveyed`, 1)
	data := buildZip(t, map[string][]byte{"word/document.xml": []byte(body)})

	_, warnings, err := docxHTML(openFixture(t, data), embeddedMedia(data))
	require.NoError(t, err)
	assert.Equal(t, []string{"Unrecognised paragraph style: FancyQuote"}, warnings)
}

func TestDocumentStructure_HeadingsFromHTMLAndText(t *testing.T) {
	html, _, err := docxHTML(openFixture(t, docxFixture(t)), 0)
	require.NoError(t, err)

	s := documentStructure(html, analysis.HTMLToText(html))
	assert.Equal(t, []string{"Introduction", "METHODOLOGY"}, s.Headings[:2])
	seen := map[string]bool{}
	for _, h := range s.Headings {
		assert.False(t, seen[h], "duplicate heading %q", h)
		seen[h] = true
	}
	assert.LessOrEqual(t, len(s.Paragraphs), analysis.MaxParagraphs)
	assert.LessOrEqual(t, len(s.Lines), analysis.MaxLines)
}

func TestDocxHeadingLevel(t *testing.T) {
	assert.Equal(t, 1, docxHeadingLevel("heading1"))
	assert.Equal(t, 3, docxHeadingLevel("heading 3"))
	assert.Equal(t, 1, docxHeadingLevel("title"))
	assert.Equal(t, 2, docxHeadingLevel("subtitle"))
	assert.Equal(t, 0, docxHeadingLevel("heading9"))
	assert.Equal(t, 0, docxHeadingLevel("normal"))
}

func TestProcessDOCX(t *testing.T) {
	res := New(DefaultConfig()).processDOCX(docxFixture(t))

	require.Empty(t, res.Error)
	assert.Equal(t, "docx", res.Format)
	assert.Contains(t, res.HTMLContent, "<h1>Introduction</h1>")
	assert.Contains(t, res.MarkdownContent, "# Introduction")
	assert.Contains(t, res.Content, "METHODOLOGY")
	assert.Contains(t, res.Structure.Headings, "Introduction")
	assert.NotEqual(t, model.QualityFailed, res.ExtractionQuality)
	assert.NotEqual(t, model.QualityExcellent, res.ExtractionQuality, "omitted image must cost a grade")
	assert.Nil(t, res.Recommendation)
}

func TestProcessDOCX_HTMLIsSanitized(t *testing.T) {
	body := strings.Replace(docxBody, "Introduction", "&lt;script&gt;alert(1)&lt;/script&gt;Intro", 1)
	res := New(DefaultConfig()).processDOCX(docxPackage(t, body))
	assert.NotContains(t, res.HTMLContent, "<script>")
}

func TestProcessDOCX_Corrupt(t *testing.T) {
	res := New(DefaultConfig()).processDOCX([]byte("definitely not a zip"))

	assert.Equal(t, "docx", res.Format)
	assert.True(t, strings.HasPrefix(res.Error, "word parse error: "), res.Error)
	assert.Equal(t, 1, strings.Count(res.Error, "word parse error"))
	assert.Equal(t, model.QualityFailed, res.ExtractionQuality)
	assert.Equal(t, []string{}, res.Structure.Headings)
}

const docxSummary = "<h1>Summary</h1><p>The quarterly summary covers revenue, hiring and the product roadmap for the coming year.</p>"

func TestDOCXResult_TextFromHTMLWhenRawIsThin(t *testing.T) {
	res := New(DefaultConfig()).docxResult("", "Summary", docxSummary, nil, nil, nil)

	assert.Equal(t, "Summary\nThe quarterly summary covers revenue, hiring and the product roadmap for the coming year.", res.Content)
	assert.Equal(t, 15, res.Statistics.TotalWords)
}

func TestDOCXResult_RawTextKeptWhenLongEnough(t *testing.T) {
	raw := "Raw text straight from the document body, long enough to stand on its own."
	res := New(DefaultConfig()).docxResult("", raw, docxSummary, nil, nil, nil)
	assert.Equal(t, raw, res.Content)
}

func TestDOCXResult_ParserErrors(t *testing.T) {
	long := strings.Repeat("Every paragraph in this report was extracted without trouble. ", 4)
	textErr := errors.New("text extraction: nil run")
	htmlErr := errors.New("html conversion: nil cell")

	tests := []struct {
		name             string
		textErr, htmlErr error
		wantQuality      model.Quality
	}{
		{"clean", nil, nil, model.QualityExcellent},
		{"html failed", nil, htmlErr, model.QualityPoor},
		{"text failed", textErr, nil, model.QualityPoor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			html := "<p>" + long + "</p>"
			res := New(DefaultConfig()).docxResult("", long, html, nil, tt.textErr, tt.htmlErr)
			require.Empty(t, res.Error)
			assert.Equal(t, tt.wantQuality, res.ExtractionQuality)
		})
	}

	res := New(DefaultConfig()).docxResult("", "", "", nil, textErr, htmlErr)
	assert.Equal(t, "word parse error: text extraction: nil run\nhtml conversion: nil cell", res.Error)
	assert.Equal(t, model.QualityFailed, res.ExtractionQuality)
}

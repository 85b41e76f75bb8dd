package processor

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	goword "github.com/VantageDataChat/GoWord"
	"github.com/VantageDataChat/GoWord/document"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"doclens/internal/analysis"
	"doclens/internal/model"
)

const (
	msgObjectOmitted  = "Embedded image or object omitted from HTML"
	msgTableFlattened = "Nested table flattened into cell text"
)

var (
	htmlPolicy  = bluemonday.UGCPolicy()
	mdConverter = converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
)

func (p *Processor) processDOCX(data []byte) *model.DocumentResult {
	doc, err := openDOCX(data)
	if err != nil {
		p.log.Warn("[Word] open failed", zap.Error(err))
		return documentFailure("docx", err.Error())
	}

	text, textErr := docxText(doc)
	if textErr != nil {
		p.log.Warn("[Word] text extraction failed", zap.Error(textErr))
	}
	rawHTML, warnings, htmlErr := docxHTML(doc, embeddedMedia(data))
	if htmlErr != nil {
		p.log.Warn("[Word] html conversion failed", zap.Error(htmlErr))
	}
	return p.docxResult(strings.TrimSpace(doc.Properties.Title), text, rawHTML, warnings, textErr, htmlErr)
}

// docxResult assembles the result from the two extraction paths. Either
// path failing grades the extraction poor; both failing is a parse error.
func (p *Processor) docxResult(title, text, rawHTML string, warnings []string, textErr, htmlErr error) *model.DocumentResult {
	if textErr != nil && htmlErr != nil {
		return documentFailure("docx", fmt.Sprintf("word parse error: %v", errors.Join(textErr, htmlErr)))
	}

	htmlContent := htmlPolicy.Sanitize(rawHTML)
	text = analysis.CleanDocumentText(text)
	if len([]rune(text)) < analysis.DocxFallbackLength && strings.TrimSpace(htmlContent) != "" {
		if derived := analysis.HTMLToText(htmlContent); derived != "" {
			p.log.Debug("[Word] deriving text from html", zap.Int("rawLength", len(text)))
			text = derived
		}
	}

	var markdown string
	if strings.TrimSpace(htmlContent) != "" {
		md, err := mdConverter.ConvertString(htmlContent)
		if err != nil {
			p.log.Debug("[Word] markdown conversion failed", zap.Error(err))
		} else {
			markdown = strings.TrimSpace(md)
		}
	}

	stats := analysis.ComputeStatistics(text)
	return &model.DocumentResult{
		Format:            "docx",
		Title:             title,
		Content:           text,
		HTMLContent:       htmlContent,
		MarkdownContent:   markdown,
		ExtractionQuality: analysis.AssessExtractionQuality(text, stats.TotalWords, warnings, errors.Join(textErr, htmlErr)),
		Statistics:        stats,
		Structure:         documentStructure(htmlContent, text),
		WordAnalysis:      analysis.AnalyzeWords(text),
		Warnings:          warnings,
	}
}

func documentStructure(htmlContent, text string) model.DocumentStructure {
	return model.DocumentStructure{
		Paragraphs: analysis.Truncate(analysis.Paragraphs(text), analysis.MaxParagraphs),
		Headings:   analysis.DetectHeadings(htmlContent, text),
		Lines:      analysis.Truncate(analysis.Lines(text), analysis.MaxLines),
	}
}

func openDOCX(data []byte) (doc *goword.Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("word parse error: %v", r)
		}
	}()
	doc, err = goword.OpenFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("word parse error: %w", err)
	}
	return doc, nil
}

func docxText(doc *goword.Document) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("text extraction: %v", r)
		}
	}()
	return doc.ExtractText(), nil
}

// embeddedMedia counts the package's media and embedded-object parts. The
// GoWord reader skips drawings, so this is the only trace of them.
func embeddedMedia(data []byte) int {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0
	}
	n := 0
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, "word/media/") || strings.HasPrefix(f.Name, "word/embeddings/") {
			n++
		}
	}
	return n
}

// docxHTML renders the document body as simple semantic HTML and reports
// what it could not represent.
func docxHTML(doc *goword.Document, media int) (out string, warnings []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("html conversion: %v", r)
		}
	}()

	w := &htmlWriter{warned: make(map[string]bool)}
	for _, sec := range doc.Sections {
		w.elements(sec.Elements, 0)
	}
	w.closeList()
	if media > 0 {
		w.warn(msgObjectOmitted)
	}
	return w.out.String(), w.warnings, nil
}

// knownStyles render as plain paragraphs without a warning.
var knownStyles = map[string]bool{
	"": true, "normal": true, "normalweb": true, "bodytext": true, "nospacing": true,
	"default": true, "standard": true, "textbody": true, "caption": true,
	"quote": true, "intensequote": true, "footnotetext": true,
}

type htmlWriter struct {
	out      strings.Builder
	warnings []string
	warned   map[string]bool
	listOpen bool
}

func (w *htmlWriter) warn(msg string) {
	if w.warned[msg] {
		return
	}
	w.warned[msg] = true
	w.warnings = append(w.warnings, msg)
}

// elements writes block-level elements. depth is the table nesting level.
func (w *htmlWriter) elements(elems []document.Element, depth int) {
	for _, el := range elems {
		switch e := el.(type) {
		case *document.Paragraph:
			w.paragraph(e.StyleName, runsHTML(e.Runs))
		case *document.TextRun:
			w.paragraph(e.StyleName, w.inline(e.Elements))
		case *document.ListItem:
			w.listItem(html.EscapeString(e.Text))
		case *document.Hyperlink:
			w.paragraph("", html.EscapeString(e.Text))
		case *document.CheckBox:
			w.paragraph("", html.EscapeString(e.Text))
		case *document.Table:
			if depth > 0 {
				w.warn(msgTableFlattened)
				w.flatTable(e)
				continue
			}
			w.table(e, depth)
		case *document.Image, *document.WatermarkPicture, *document.Line:
			w.warn(msgObjectOmitted)
		}
	}
}

// inline renders the children of a mixed-format paragraph.
func (w *htmlWriter) inline(elems []document.Element) string {
	var sb strings.Builder
	for _, el := range elems {
		switch e := el.(type) {
		case *document.Paragraph:
			sb.WriteString(runsHTML(e.Runs))
		case *document.Hyperlink:
			sb.WriteString(html.EscapeString(e.Text))
		case *document.TextBreak:
			sb.WriteString("<br>")
		case *document.Tab:
			sb.WriteByte(' ')
		case *document.Image:
			w.warn(msgObjectOmitted)
		}
	}
	return sb.String()
}

func runsHTML(runs []*document.Run) string {
	var sb strings.Builder
	for _, r := range runs {
		if r.Style.Hidden {
			continue
		}
		if r.Text != "" {
			s := html.EscapeString(r.Text)
			if r.Style.Italic {
				s = "<em>" + s + "</em>"
			}
			if r.Style.Bold {
				s = "<strong>" + s + "</strong>"
			}
			sb.WriteString(s)
		}
		if r.Break {
			sb.WriteString("<br>")
		}
	}
	return sb.String()
}

func (w *htmlWriter) paragraph(styleName, content string) {
	content = strings.TrimSpace(content)
	if content == "" {
		return
	}

	lower := strings.ToLower(styleName)
	if level := docxHeadingLevel(lower); level > 0 {
		w.closeList()
		fmt.Fprintf(&w.out, "<h%d>%s</h%d>", level, content, level)
		return
	}
	if strings.HasPrefix(lower, "list") {
		w.listItem(content)
		return
	}

	w.closeList()
	if !knownStyles[lower] {
		w.warn(fmt.Sprintf("Unrecognised paragraph style: %s", styleName))
	}
	w.out.WriteString("<p>" + content + "</p>")
}

func (w *htmlWriter) listItem(content string) {
	if content == "" {
		return
	}
	if !w.listOpen {
		w.out.WriteString("<ul>")
		w.listOpen = true
	}
	w.out.WriteString("<li>" + content + "</li>")
}

func (w *htmlWriter) closeList() {
	if w.listOpen {
		w.out.WriteString("</ul>")
		w.listOpen = false
	}
}

func (w *htmlWriter) table(t *document.Table, depth int) {
	w.closeList()
	w.out.WriteString("<table>")
	for _, row := range t.Rows {
		w.out.WriteString("<tr>")
		for _, cell := range row.Cells {
			w.out.WriteString("<td>")
			w.elements(cell.Elements, depth+1)
			w.closeList()
			w.out.WriteString("</td>")
		}
		w.out.WriteString("</tr>")
	}
	w.out.WriteString("</table>")
}

// flatTable writes each row of a nested table as one paragraph.
func (w *htmlWriter) flatTable(t *document.Table) {
	w.closeList()
	for _, row := range t.Rows {
		var cells []string
		for _, cell := range row.Cells {
			var sb strings.Builder
			for _, el := range cell.Elements {
				if p, ok := el.(*document.Paragraph); ok {
					sb.WriteString(runsHTML(p.Runs))
				}
			}
			if c := strings.TrimSpace(sb.String()); c != "" {
				cells = append(cells, c)
			}
		}
		if len(cells) > 0 {
			w.out.WriteString("<p>" + strings.Join(cells, " | ") + "</p>")
		}
	}
}

// docxHeadingLevel maps a lower-cased paragraph style id to a heading level.
// e.g. "heading1" → 1, "title" → 1, "subtitle" → 2.
func docxHeadingLevel(lower string) int {
	switch lower {
	case "title":
		return 1
	case "subtitle":
		return 2
	}
	for _, prefix := range []string{"heading", "titre", "überschrift"} {
		if strings.HasPrefix(lower, prefix) {
			rest := strings.TrimSpace(lower[len(prefix):])
			if len(rest) == 1 && rest[0] >= '1' && rest[0] <= '6' {
				return int(rest[0] - '0')
			}
		}
	}
	return 0
}

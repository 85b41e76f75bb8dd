package processor

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf16"

	"github.com/richardlehane/mscfb"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"

	"doclens/internal/analysis"
	"doclens/internal/model"
)

var docSuggestions = []string{"DOCX", "PDF"}

const warnLegacyDoc = "Legacy .doc format: text extracted without formatting"

func (p *Processor) processDOC(data []byte) *model.DocumentResult {
	text, err := extractDOCText(data)
	if err != nil {
		p.log.Warn("[Word] legacy doc extraction failed", zap.Error(err))
		return docRecommendation(model.QualityFailed, model.ReasonExtractionFailed,
			"This legacy .doc file could not be read. Save it as DOCX or PDF and upload it again.")
	}

	text = analysis.CleanDocumentText(text)
	if len([]rune(text)) < analysis.MinExtractionLength {
		p.log.Info("[Word] legacy doc extraction too thin", zap.Int("length", len([]rune(text))))
		return docRecommendation(model.QualityPoor, model.ReasonPoorExtraction,
			"Text extracted from this legacy .doc file looks incomplete. Save it as DOCX or PDF for reliable results.")
	}

	warnings := []string{warnLegacyDoc}
	stats := analysis.ComputeStatistics(text)
	return &model.DocumentResult{
		Format:            "doc",
		Content:           text,
		ExtractionQuality: analysis.AssessExtractionQuality(text, stats.TotalWords, warnings, nil),
		Statistics:        stats,
		Structure:         documentStructure("", text),
		WordAnalysis:      analysis.AnalyzeWords(text),
		Warnings:          warnings,
	}
}

func docRecommendation(q model.Quality, reason, msg string) *model.DocumentResult {
	return &model.DocumentResult{
		Format:            "doc",
		ExtractionQuality: q,
		Structure:         emptyDocumentStructure(),
		WordAnalysis:      emptyWordAnalysis(),
		Recommendation: &model.Recommendation{
			Kind:        model.ConversionAdvice,
			Reason:      reason,
			Message:     msg,
			Suggestions: docSuggestions,
		},
	}
}

// extractDOCText reads the WordDocument and table streams of an OLE2 .doc
// file and decodes the text through the piece table.
func extractDOCText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("doc parse error: %v", r)
		}
	}()

	doc, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("doc parse error: %w", err)
	}

	var wordDoc []byte
	tables := make(map[string][]byte, 2)
	for entry, nextErr := doc.Next(); nextErr == nil; entry, nextErr = doc.Next() {
		switch entry.Name {
		case "WordDocument":
			wordDoc, _ = io.ReadAll(entry)
		case "0Table", "1Table":
			tables[entry.Name], _ = io.ReadAll(entry)
		}
	}
	if len(wordDoc) == 0 {
		return "", errors.New("doc parse error: WordDocument stream not found")
	}
	return decodeWordDocument(wordDoc, tables), nil
}

// FIB offsets.
const (
	fibFlags  = 0x000A
	fibFcClx  = 0x01A2
	fibLcbClx = 0x01A6

	maxPieceChars = 1 << 20
)

func decodeWordDocument(wordDoc []byte, tables map[string][]byte) string {
	if len(wordDoc) < fibFlags+2 {
		return ""
	}
	// fWhichTblStm selects 1Table over 0Table.
	name := "0Table"
	if binary.LittleEndian.Uint16(wordDoc[fibFlags:])&(1<<9) != 0 {
		name = "1Table"
	}
	table := tables[name]
	if table == nil {
		for _, t := range tables {
			table = t
		}
	}

	if text := readPieceTable(wordDoc, table); strings.TrimSpace(text) != "" {
		return text
	}
	return scanTextRuns(wordDoc)
}

// readPieceTable follows the CLX in the table stream to the text pieces.
func readPieceTable(wordDoc, table []byte) string {
	if len(table) == 0 || len(wordDoc) < fibLcbClx+4 {
		return ""
	}
	fc := int(binary.LittleEndian.Uint32(wordDoc[fibFcClx:]))
	lcb := int(binary.LittleEndian.Uint32(wordDoc[fibLcbClx:]))
	if fc <= 0 || lcb <= 0 || fc+lcb > len(table) {
		return ""
	}
	clx := table[fc : fc+lcb]

	// Skip Prc entries (0x01) up to the Pcdt marker (0x02).
	pos := 0
	for pos < len(clx) && clx[pos] == 0x01 {
		if pos+3 > len(clx) {
			return ""
		}
		pos += 3 + int(binary.LittleEndian.Uint16(clx[pos+1:]))
	}
	if pos >= len(clx) || clx[pos] != 0x02 || pos+5 > len(clx) {
		return ""
	}
	size := int(binary.LittleEndian.Uint32(clx[pos+1:]))
	pos += 5
	if size < 16 || pos+size > len(clx) {
		return ""
	}
	plc := clx[pos : pos+size]

	// PlcPcd: n+1 CPs (4 bytes) then n PCDs (8 bytes).
	n := (size - 4) / 12
	cps := plc[:(n+1)*4]
	pcds := plc[(n+1)*4:]

	var out docText
	for i := 0; i < n; i++ {
		start := binary.LittleEndian.Uint32(cps[i*4:])
		end := binary.LittleEndian.Uint32(cps[(i+1)*4:])
		if end <= start || end-start > maxPieceChars {
			continue
		}
		count := int(end - start)
		raw := binary.LittleEndian.Uint32(pcds[i*8+2:])
		offset := int(raw & 0x3FFFFFFF)

		if raw&0x40000000 == 0 {
			// UTF-16LE piece.
			if offset+count*2 > len(wordDoc) {
				continue
			}
			units := make([]uint16, count)
			for j := range units {
				units[j] = binary.LittleEndian.Uint16(wordDoc[offset+j*2:])
			}
			for _, r := range utf16.Decode(units) {
				out.WriteRune(r)
			}
			continue
		}

		// Compressed piece: one Windows-1252 byte per character at half the
		// stored offset.
		offset /= 2
		if offset+count > len(wordDoc) {
			continue
		}
		for _, b := range wordDoc[offset : offset+count] {
			out.WriteRune(charmap.Windows1252.DecodeByte(b))
		}
	}
	return out.String()
}

// Field delimiters in document text: begin, separator, end. Characters between
// begin and separator are the field instruction (HYPERLINK, TOC, PAGEREF...);
// the result follows the separator.
const (
	fieldBegin     = 0x13
	fieldSeparator = 0x14
	fieldEnd       = 0x15
)

// docText accumulates document characters. Paragraph and line marks become
// newlines, cell marks tabs; field instructions and other controls are dropped.
type docText struct {
	sb strings.Builder
	// One entry per open field, true once its separator has been seen.
	fields []bool
}

func (d *docText) WriteRune(r rune) {
	switch r {
	case fieldBegin:
		d.fields = append(d.fields, false)
		return
	case fieldSeparator:
		if n := len(d.fields); n > 0 {
			d.fields[n-1] = true
		}
		return
	case fieldEnd:
		if n := len(d.fields); n > 0 {
			d.fields = d.fields[:n-1]
		}
		return
	}
	if d.inInstruction() {
		return
	}
	switch {
	case r == 0x0D || r == 0x0B || r == 0x0C:
		d.sb.WriteByte('\n')
	case r == 0x07:
		d.sb.WriteByte('\t')
	case r >= 0x20 || r == 0x09:
		d.sb.WriteRune(r)
	}
}

func (d *docText) inInstruction() bool {
	for _, separated := range d.fields {
		if !separated {
			return true
		}
	}
	return false
}

func (d *docText) String() string { return d.sb.String() }

// minTextRun is the shortest byte run scanTextRuns keeps; shorter runs are
// almost always binary structure that happens to be printable.
const minTextRun = 4

// scanTextRuns recovers text from a WordDocument stream with no usable piece
// table. It keeps Windows-1252 runs of at least minTextRun printable
// characters, one run per line.
func scanTextRuns(wordDoc []byte) string {
	var lines []string
	var run []rune
	flush := func() {
		if len(run) >= minTextRun {
			lines = append(lines, strings.ReplaceAll(string(run), "\r", "\n"))
		}
		run = run[:0]
	}
	for _, b := range wordDoc {
		if r := charmap.Windows1252.DecodeByte(b); unicode.IsPrint(r) || r == '\t' || r == '\r' {
			run = append(run, r)
			continue
		}
		flush()
	}
	flush()
	return strings.Join(lines, "\n")
}

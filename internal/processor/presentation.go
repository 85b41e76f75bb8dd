package processor

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	goppt "github.com/VantageDataChat/GoPPT"
	"go.uber.org/zap"

	"doclens/internal/analysis"
	"doclens/internal/model"
	"doclens/internal/render"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrNoSlides          = errors.New("no slides found")
)

var pptSuggestions = []string{"PPTX", "PDF"}

const (
	// minImageSize filters icons and bullets out of slide preview candidates.
	minImageSize = 1024
	maxPartSize  = 50 << 20
	renderWidth  = 1280
)

var (
	slidePartRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)
	mediaPartRe = regexp.MustCompile(`^ppt/media/image(\d+)\.[A-Za-z]+$`)
	paragraphRe = regexp.MustCompile(`(?s)<a:p(?:\s[^>]*)?>(.*?)</a:p>`)
	textRunRe   = regexp.MustCompile(`(?s)<a:t(?:\s[^>]*)?>(.*?)</a:t>`)
	fieldRe     = regexp.MustCompile(`(?s)<a:fld(?:\s[^>]*)?>.*?</a:fld>`)
)

// slideRenderer renders every slide of a presentation to PNG bytes, in
// presentation order. Entries are nil for slides that failed.
type slideRenderer func(data []byte) ([][]byte, error)

func pptUnsupported() *model.PresentationResult {
	return presentationRecommendation(model.QualityUnsupported, model.ReasonUnsupportedFormat,
		"Legacy .ppt presentations are not supported. Save the file as PPTX or PDF and upload it again.")
}

func presentationRecommendation(q model.Quality, reason, msg string) *model.PresentationResult {
	return &model.PresentationResult{
		VisualSlides:   []model.Slide{},
		WordAnalysis:   emptyWordAnalysis(),
		ContentQuality: q,
		Recommendation: &model.Recommendation{
			Kind:        model.ConversionAdvice,
			Reason:      reason,
			Message:     msg,
			Suggestions: pptSuggestions,
		},
	}
}

type slidePart struct {
	number int
	file   *zip.File
}

type pptxPackage struct {
	parts  map[string]*zip.File
	slides []slidePart
	media  map[int]*zip.File // imageN.* by N
}

func openPPTX(data []byte) (*pptxPackage, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pptx archive: %w", err)
	}
	pkg := &pptxPackage{parts: make(map[string]*zip.File, len(zr.File)), media: make(map[int]*zip.File)}
	for _, f := range zr.File {
		pkg.parts[f.Name] = f
		if m := slidePartRe.FindStringSubmatch(f.Name); m != nil {
			n, _ := strconv.Atoi(m[1])
			pkg.slides = append(pkg.slides, slidePart{number: n, file: f})
		}
		if m := mediaPartRe.FindStringSubmatch(f.Name); m != nil {
			n, _ := strconv.Atoi(m[1])
			pkg.media[n] = f
		}
	}
	sort.Slice(pkg.slides, func(i, j int) bool { return pkg.slides[i].number < pkg.slides[j].number })
	return pkg, nil
}

func (p *Processor) processPPTX(ctx context.Context, data []byte) *model.PresentationResult {
	pkg, err := openPPTX(data)
	if err != nil {
		p.log.Warn("[PPT] open failed", zap.Error(err))
		return presentationRecommendation(model.QualityFailed, model.ReasonExtractionFailed,
			"This presentation could not be opened. Re-save it as PPTX or export it to PDF and upload it again.")
	}
	if len(pkg.slides) == 0 {
		p.log.Info("[PPT] no slides found", zap.Error(ErrNoSlides))
		return presentationRecommendation(model.QualityPoor, model.ReasonMinimalContent,
			"No slides with content were found. Export the presentation to PDF or check that it contains slides.")
	}

	var rendered [][]byte
	if p.cfg.RenderSlides {
		rendered, err = p.renderSlide(data)
		if err != nil {
			p.log.Warn("[PPT] slide rendering failed, using placeholders", zap.Error(err))
		}
	}

	slides := make([]model.Slide, len(pkg.slides))
	var blocks, texts []string
	withNotes := 0
	for i, part := range pkg.slides {
		var img []byte
		if i < len(rendered) {
			img = rendered[i]
		}
		slides[i] = p.buildSlide(ctx, pkg, part, img)
		if slides[i].Notes != "" {
			withNotes++
		}
		if slides[i].Text != "" {
			blocks = append(blocks, fmt.Sprintf("--- Slide %d ---\n%s", part.number, slides[i].Text))
			texts = append(texts, slides[i].Text)
		}
	}

	plain := strings.Join(texts, "\n\n")
	stats := analysis.ComputeStatistics(plain)
	p.log.Debug("[PPT] presentation processed",
		zap.Int("slides", len(slides)),
		zap.Int("slidesWithNotes", withNotes))

	return &model.PresentationResult{
		VisualSlides:    slides,
		Content:         strings.Join(blocks, "\n\n"),
		SlideCount:      len(slides),
		SlidesWithNotes: withNotes,
		Statistics:      stats,
		WordAnalysis:    analysis.AnalyzeWords(plain),
		ContentQuality:  analysis.AssessPresentationQuality(stats.TotalCharacters, stats.WordDiversity, stats.TotalWords),
	}
}

// buildSlide extracts one slide's text and notes and picks its preview:
// an embedded image, then a rendered slide, then a synthesized placeholder.
func (p *Processor) buildSlide(ctx context.Context, pkg *pptxPackage, part slidePart, renderedPNG []byte) model.Slide {
	s := model.Slide{SlideNumber: part.number}
	if ctx.Err() != nil {
		s.Error = MsgCancelled
		return s
	}

	raw, err := readPart(part.file)
	if err != nil {
		p.log.Warn("[PPT] slide read failed", zap.Int("slide", part.number), zap.Error(err))
		s.Error = err.Error()
		return s
	}
	lines := slideLines(raw)
	s.Text = strings.Join(lines, " ")
	s.WordCount = len(analysis.Words(s.Text))

	rels := pkg.relationships(part.file.Name)
	s.Notes = pkg.notesFor(part, rels)

	switch img := pkg.embeddedImage(part.number, rels); {
	case img != nil:
		s.ImageData = render.DataURLFor(img)
		s.PreviewSource = model.PreviewEmbedded
		s.HasVisualContent = true
	case renderedPNG != nil:
		s.ImageData = render.DataURL(renderedPNG)
		s.PreviewSource = model.PreviewRendered
		s.HasVisualContent = true
	default:
		title := fmt.Sprintf("Slide %d", part.number)
		var body []string
		if len(lines) > 0 {
			title, body = lines[0], lines[1:]
		}
		png, err := p.raster.RenderPlaceholder(title, body)
		if err != nil {
			p.log.Warn("[PPT] placeholder render failed", zap.Int("slide", part.number), zap.Error(err))
			s.Error = err.Error()
			break
		}
		s.ImageData = render.DataURL(png)
		s.PreviewSource = model.PreviewPlaceholder
	}
	return s
}

// slideLines returns one line per DrawingML paragraph, its runs joined by
// spaces.
func slideLines(xmlData []byte) []string {
	doc := fieldRe.ReplaceAllString(string(xmlData), "")
	var lines []string
	for _, pm := range paragraphRe.FindAllStringSubmatch(doc, -1) {
		var runs []string
		for _, rm := range textRunRe.FindAllStringSubmatch(pm[1], -1) {
			if t := strings.TrimSpace(analysis.UnescapeXML(rm[1])); t != "" {
				runs = append(runs, t)
			}
		}
		if line := analysis.CollapseWhitespace(strings.Join(runs, " ")); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

type relationship struct {
	Type   string `xml:"Type,attr"`
	Target string `xml:"Target,attr"`
	Mode   string `xml:"TargetMode,attr"`
}

// relationships resolves a part's .rels targets to package paths, keyed by
// relationship type suffix (e.g. "image", "notesSlide").
func (pkg *pptxPackage) relationships(partName string) map[string][]string {
	dir, file := path.Split(partName)
	f, ok := pkg.parts[dir+"_rels/"+file+".rels"]
	if !ok {
		return nil
	}
	raw, err := readPart(f)
	if err != nil {
		return nil
	}
	var doc struct {
		Rels []relationship `xml:"Relationship"`
	}
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil
	}
	out := make(map[string][]string)
	for _, r := range doc.Rels {
		if strings.EqualFold(r.Mode, "External") {
			continue
		}
		kind := r.Type[strings.LastIndex(r.Type, "/")+1:]
		out[kind] = append(out[kind], path.Clean(path.Join(dir, r.Target)))
	}
	return out
}

func (pkg *pptxPackage) notesFor(part slidePart, rels map[string][]string) string {
	candidates := append([]string{}, rels["notesSlide"]...)
	candidates = append(candidates, fmt.Sprintf("ppt/notesSlides/notesSlide%d.xml", part.number))
	for _, name := range candidates {
		f, ok := pkg.parts[name]
		if !ok {
			continue
		}
		raw, err := readPart(f)
		if err != nil {
			continue
		}
		return strings.Join(slideLines(raw), " ")
	}
	return ""
}

// embeddedImage returns the first raster image the slide references, or the
// media part numbered like the slide.
func (pkg *pptxPackage) embeddedImage(number int, rels map[string][]string) []byte {
	for _, name := range rels["image"] {
		if f, ok := pkg.parts[name]; ok {
			if data := rasterPart(f); data != nil {
				return data
			}
		}
	}
	if f, ok := pkg.media[number]; ok {
		return rasterPart(f)
	}
	return nil
}

func rasterPart(f *zip.File) []byte {
	if f.UncompressedSize64 < minImageSize || f.UncompressedSize64 > maxPartSize {
		return nil
	}
	data, err := readPart(f)
	if err != nil {
		return nil
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return nil
	}
	return data
}

func readPart(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, maxPartSize))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name, err)
	}
	return data, nil
}

// renderSlidesWithGoPPT renders slides with GoPPT's rasterizer, retrying
// failed batch renders slide by slide.
func renderSlidesWithGoPPT(data []byte) (out [][]byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("ppt render error: %v", r)
		}
	}()

	pres, err := goppt.ReadFrom(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("ppt render error: %w", err)
	}
	defer pres.Close()

	slides := pres.Slides()
	opts := goppt.DefaultRenderOptions()
	opts.Width = renderWidth
	opts.FontCache = goppt.NewFontCache()

	images, batchErr := pres.SlidesToImages(opts)
	out = make([][]byte, len(slides))
	for i := range slides {
		var img image.Image
		if batchErr == nil && i < len(images) {
			img = images[i]
		} else {
			single, err := pres.SlideToImage(i, opts)
			if err != nil {
				continue
			}
			img = single
		}
		if encoded, err := render.EncodeImage(img); err == nil {
			out[i] = encoded
		}
	}
	return out, nil
}

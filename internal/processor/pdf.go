package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"strings"
	"sync"

	gopdf "github.com/VantageDataChat/GoPDF2"
	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"doclens/internal/analysis"
	"doclens/internal/model"
	"doclens/internal/render"
)

var ErrNotPDF = errors.New("not a valid PDF file")

// US Letter in points, used when the page box cannot be read.
const (
	defaultPageWidth  = 612.0
	defaultPageHeight = 792.0
)

func init() {
	// Keep pdfcpu from creating a config directory under the user's home.
	pdfmodel.ConfigPath = "disable"
}

// pdfDocument is an opened PDF. Page numbers are 1-based. Implementations
// must allow concurrent PageText and RenderPage calls.
type pdfDocument interface {
	NumPages() int
	PageText(n int) (string, error)
	PageSize(n int) (width, height float64)
	// RenderPage rasterizes page n at scale pixels per point.
	RenderPage(n int, scale float64) (image.Image, error)
	Metadata() (model.PdfMetadata, error)
}

type pdfOpener func(data []byte) (pdfDocument, error)

func (p *Processor) processPDF(ctx context.Context, data []byte) *model.PdfResult {
	doc, err := p.openPDF(data)
	if err != nil {
		p.log.Warn("[PDF] open failed", zap.Error(err))
		return pdfFailure(err.Error())
	}

	numPages := doc.NumPages()
	if numPages <= 0 {
		return pdfFailure("pdf parse error: document has no pages")
	}
	processed := min(numPages, p.cfg.PDFPageCap)

	res := &model.PdfResult{
		NumPages:       numPages,
		ProcessedPages: processed,
		Pages:          make([]model.PdfPage, processed),
		RenderedPages:  make([]model.RenderedPage, processed),
		Metadata:       model.FilledMetadata(model.MetadataNotSpecified),
	}
	if md, err := doc.Metadata(); err != nil {
		p.log.Debug("[PDF] metadata unavailable", zap.Error(err))
	} else {
		res.Metadata = withMetadataDefaults(md)
	}
	if processed < numPages {
		note := fmt.Sprintf("Showing first %d of %d pages", processed, numPages)
		res.ProcessingNote = &note
		if p.obs != nil {
			p.obs.ObservePDFTruncated(numPages - processed)
		}
	}

	var g errgroup.Group
	g.SetLimit(p.cfg.PageConcurrency)
	for i := 0; i < processed; i++ {
		g.Go(func() error {
			res.Pages[i], res.RenderedPages[i] = p.processPage(ctx, doc, i+1)
			return nil
		})
	}
	_ = g.Wait()

	texts := make([]string, 0, processed)
	for _, pg := range res.Pages {
		if pg.Text != "" {
			texts = append(texts, pg.Text)
		}
	}
	res.FullText = strings.Join(texts, "\n\n")
	res.WordCount = len(analysis.Words(res.FullText))
	res.AvgWordsPerPage = int(math.Round(float64(res.WordCount) / float64(numPages)))
	return res
}

// processPage extracts and rasterizes one page. The two steps fail
// independently.
func (p *Processor) processPage(ctx context.Context, doc pdfDocument, n int) (model.PdfPage, model.RenderedPage) {
	page := model.PdfPage{PageNumber: n}
	rendered := model.RenderedPage{PageNumber: n}
	if ctx.Err() != nil {
		page.Error, rendered.Error = MsgCancelled, MsgCancelled
		return page, rendered
	}

	text, err := safePageText(doc, n)
	if err != nil {
		p.log.Warn("[PDF] page text extraction failed", zap.Int("page", n), zap.Error(err))
		page.Error = err.Error()
	} else {
		page.Text = analysis.CollapseWhitespace(text)
		page.TextLength = len([]rune(page.Text))
	}

	data, w, h, err := p.renderPage(doc, n, page.Text)
	rendered.Width, rendered.Height = w, h
	if err != nil {
		p.log.Warn("[PDF] page render failed", zap.Int("page", n), zap.Error(err))
		rendered.Error = err.Error()
	} else {
		rendered.ImageData = render.DataURL(data)
	}
	return page, rendered
}

// renderPage rasterizes page n with GoPDF2 at the configured scale, lowered
// so neither side exceeds render.MaxDimension. When GoPDF2 cannot draw the
// page the extracted text is drawn on a page-sized canvas instead. The
// returned size is that of the encoded PNG.
func (p *Processor) renderPage(doc pdfDocument, n int, text string) ([]byte, int, int, error) {
	pw, ph := doc.PageSize(n)
	if pw <= 0 || ph <= 0 {
		pw, ph = defaultPageWidth, defaultPageHeight
	}
	scale := min(p.cfg.PDFRenderScale, render.MaxDimension/pw, render.MaxDimension/ph)

	img, err := safeRenderPage(doc, n, scale)
	if err == nil {
		img = render.Fit(img)
		var data []byte
		if data, err = render.EncodeImage(img); err == nil {
			b := img.Bounds()
			return data, b.Dx(), b.Dy(), nil
		}
	}
	p.log.Debug("[PDF] page raster unavailable, drawing text preview", zap.Int("page", n), zap.Error(err))

	w, h := render.ClampSize(
		int(math.Round(pw*p.cfg.PDFRenderScale)),
		int(math.Round(ph*p.cfg.PDFRenderScale)),
	)
	data, err := p.raster.RenderPage(text, w, h)
	return data, w, h, err
}

func safeRenderPage(doc pdfDocument, n int, scale float64) (img image.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			img, err = nil, fmt.Errorf("page %d render error: %v", n, r)
		}
	}()
	return doc.RenderPage(n, scale)
}

func safePageText(doc pdfDocument, n int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("page %d text error: %v", n, r)
		}
	}()
	return doc.PageText(n)
}

func withMetadataDefaults(md model.PdfMetadata) model.PdfMetadata {
	for _, f := range []*string{
		&md.Title, &md.Author, &md.Subject, &md.Creator, &md.Producer,
		&md.CreationDate, &md.ModificationDate, &md.Keywords, &md.PDFVersion,
	} {
		if *f = strings.TrimSpace(*f); *f == "" {
			*f = model.MetadataNotSpecified
		}
	}
	return md
}

// pdfFailure keeps the PdfResult shape with zero counts and every metadata
// field marked as failed.
func pdfFailure(msg string) *model.PdfResult {
	return &model.PdfResult{
		Pages:         []model.PdfPage{},
		RenderedPages: []model.RenderedPage{},
		Metadata:      model.FilledMetadata(model.MetadataProcessingFailed),
		Error:         msg,
	}
}

// pdfBackend reads text and renders pages with GoPDF2, falling back to
// ledongthuc/pdf per page for text. pdfcpu supplies metadata and page boxes when it can validate the file.
type pdfBackend struct {
	data  []byte
	pages int

	mu       sync.Mutex // guards fallback
	fallback *pdf.Reader

	info *pdfmodel.Context
	dims [][2]float64
}

func openPDFDocument(data []byte) (doc pdfDocument, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("pdf parse error: %v", r)
		}
	}()

	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return nil, fmt.Errorf("pdf parse error: %w", ErrNotPDF)
	}

	b := &pdfBackend{data: data}
	if r, rerr := pdf.NewReader(bytes.NewReader(data), int64(len(data))); rerr == nil {
		b.fallback = r
	}

	count, err := gopdf.GetSourcePDFPageCountFromBytes(data)
	if err != nil || count <= 0 {
		if b.fallback == nil {
			if err == nil {
				err = errors.New("no pages")
			}
			return nil, fmt.Errorf("pdf parse error: %w", err)
		}
		count = safeNumPage(b.fallback)
	}
	b.pages = count

	b.loadInfo()
	return b, nil
}

func safeNumPage(r *pdf.Reader) (n int) {
	defer func() {
		if recover() != nil {
			n = 0
		}
	}()
	return r.NumPage()
}

// loadInfo is best-effort; failures leave info nil.
func (b *pdfBackend) loadInfo() {
	defer func() { _ = recover() }()

	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(b.data), pdfmodel.NewDefaultConfiguration())
	if err != nil {
		return
	}
	b.info = ctx
	if dims, err := ctx.PageDims(); err == nil {
		for _, d := range dims {
			b.dims = append(b.dims, [2]float64{d.Width, d.Height})
		}
	}
}

func (b *pdfBackend) NumPages() int { return b.pages }

func (b *pdfBackend) PageText(n int) (string, error) {
	text, err := gopdf.ExtractPageText(b.data, n-1)
	if err == nil && strings.TrimSpace(text) != "" {
		return text, nil
	}
	if b.fallback == nil {
		if err != nil {
			return "", fmt.Errorf("page %d: %w", n, err)
		}
		return text, nil
	}

	fb, ferr := b.fallbackText(n)
	if ferr != nil {
		if err != nil {
			return "", fmt.Errorf("page %d: %w", n, errors.Join(err, ferr))
		}
		// GoPDF2 read the page and found no text.
		return text, nil
	}
	return fb, nil
}

func (b *pdfBackend) fallbackText(n int) (text string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fallback reader: %v", r)
		}
	}()

	page := b.fallback.Page(n)
	if page.V.IsNull() {
		return "", errors.New("fallback reader: page not found")
	}
	items := page.Content().Text
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, item.S)
	}
	return strings.Join(parts, " "), nil
}

func (b *pdfBackend) PageSize(n int) (float64, float64) {
	if n < 1 || n > len(b.dims) {
		return defaultPageWidth, defaultPageHeight
	}
	d := b.dims[n-1]
	return d[0], d[1]
}

func (b *pdfBackend) RenderPage(n int, scale float64) (image.Image, error) {
	return gopdf.RenderPageToImage(b.data, n-1, gopdf.RenderOption{DPI: 72 * scale})
}

func (b *pdfBackend) Metadata() (model.PdfMetadata, error) {
	if b.info == nil {
		return model.PdfMetadata{}, errors.New("pdf info dictionary unavailable")
	}
	// Context also embeds a Configuration whose CreationDate and Version
	// describe the writer, not this file.
	c := b.info.XRefTable
	return model.PdfMetadata{
		Title:            c.Title,
		Author:           c.Author,
		Subject:          c.Subject,
		Creator:          c.Creator,
		Producer:         c.Producer,
		CreationDate:     c.CreationDate,
		ModificationDate: c.ModDate,
		Keywords:         c.Keywords,
		PDFVersion:       c.Version().String(),
	}, nil
}

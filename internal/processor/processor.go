// Package processor turns uploaded files into processed documents. It
// classifies each file, runs the matching format processor and converts every
// failure into that format's result envelope, so a batch always resolves one
// result per input.
package processor

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"doclens/internal/model"
	"doclens/internal/render"
)

// MsgCancelled is the error recorded for files the batch never started.
const MsgCancelled = "processing cancelled"

// Config tunes concurrency and resource limits.
type Config struct {
	MaxConcurrency  int     // files processed at once
	PageConcurrency int     // PDF pages processed at once per file
	MaxFileSize     int64   // bytes, 0 disables the guard
	PDFPageCap      int     // pages processed per PDF
	PDFRenderScale  float64 // preview scale relative to the page's point size
	RenderSlides    bool    // render PPTX slides with GoPPT before synthesizing placeholders
}

const (
	DefaultPDFPageCap     = 20
	DefaultPDFRenderScale = 1.5
)

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency:  4,
		PageConcurrency: 4,
		MaxFileSize:     100 << 20,
		PDFPageCap:      DefaultPDFPageCap,
		PDFRenderScale:  DefaultPDFRenderScale,
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = d.MaxConcurrency
	}
	if c.PageConcurrency <= 0 {
		c.PageConcurrency = d.PageConcurrency
	}
	if c.PDFPageCap <= 0 {
		c.PDFPageCap = d.PDFPageCap
	}
	if c.PDFRenderScale <= 0 {
		c.PDFRenderScale = d.PDFRenderScale
	}
}

// Cache stores finished results by content key. Lookup returns a nil result
// on a miss.
type Cache interface {
	Lookup(ctx context.Context, key string) (model.FormatResult, error)
	Save(ctx context.Context, key string, result model.FormatResult) error
}

// Observer receives per-file processing events.
type Observer interface {
	ObserveFile(resultType model.ResultType, outcome string, elapsed time.Duration)
	ObservePDFTruncated(skippedPages int)
}

// Option configures a Processor.
type Option func(*Processor)

func WithLogger(l *zap.Logger) Option {
	return func(p *Processor) { p.log = l }
}

func WithCache(c Cache) Option {
	return func(p *Processor) { p.cache = c }
}

func WithObserver(o Observer) Option {
	return func(p *Processor) { p.obs = o }
}

func WithRasterizer(r render.Rasterizer) Option {
	return func(p *Processor) { p.raster = r }
}

// Processor is safe for concurrent use.
type Processor struct {
	cfg    Config
	log    *zap.Logger
	cache  Cache
	obs    Observer
	raster render.Rasterizer

	// Format backends; replaced in tests.
	openPDF     pdfOpener
	readXLSX    sheetReader
	readXLS     sheetReader
	renderSlide slideRenderer
}

// New returns a Processor. Zero Config fields take their defaults.
func New(cfg Config, opts ...Option) *Processor {
	cfg.applyDefaults()
	p := &Processor{
		cfg:         cfg,
		log:         zap.NewNop(),
		raster:      render.NewBasic(),
		openPDF:     openPDFDocument,
		readXLSX:    readXLSXSheet,
		readXLS:     readXLSSheet,
		renderSlide: renderSlidesWithGoPPT,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessFiles processes a batch. The output has one entry per input, in
// input order, and never fails as a whole. Files not started before ctx is
// done resolve to a MsgCancelled envelope.
func (p *Processor) ProcessFiles(ctx context.Context, files []model.UploadedFile) []model.ProcessedDocument {
	start := time.Now()
	out := make([]model.ProcessedDocument, len(files))
	p.log.Info("[Batch] processing started", zap.Int("files", len(files)))

	var g errgroup.Group
	g.SetLimit(p.cfg.MaxConcurrency)
	for i := range files {
		if ctx.Err() != nil {
			out[i] = cancelledDocument(files[i])
			continue
		}
		g.Go(func() error {
			out[i] = p.ProcessFile(ctx, files[i])
			return nil
		})
	}
	_ = g.Wait()

	p.log.Info("[Batch] processing finished",
		zap.Int("files", len(files)),
		zap.Duration("elapsed", time.Since(start)))
	return out
}

// ProcessFile processes a single file.
func (p *Processor) ProcessFile(ctx context.Context, f model.UploadedFile) model.ProcessedDocument {
	if ctx.Err() != nil {
		return cancelledDocument(f)
	}
	kind := Classify(f.MimeType, f.Name)
	start := time.Now()
	result := p.resolve(ctx, kind, f)

	outcome := model.Outcome(result)
	if outcome == "error" {
		p.log.Warn("[Batch] file failed",
			zap.String("file", f.Name),
			zap.String("type", string(kind)),
			zap.String("error", result.Failure()))
	}
	if p.obs != nil {
		p.obs.ObserveFile(result.ResultType(), outcome, time.Since(start))
	}
	return envelope(f, result)
}

func (p *Processor) resolve(ctx context.Context, kind FileKind, f model.UploadedFile) model.FormatResult {
	size := max(f.Size, int64(len(f.Data)))
	if p.cfg.MaxFileSize > 0 && size > p.cfg.MaxFileSize {
		return errorResult(kind, fmt.Sprintf("file exceeds the %d MB size limit", p.cfg.MaxFileSize>>20))
	}

	var key string
	if p.cache != nil {
		key = CacheKey(kind, f.Data)
		cached, err := p.cache.Lookup(ctx, key)
		if err != nil {
			p.log.Warn("[Batch] cache lookup failed", zap.String("file", f.Name), zap.Error(err))
		} else if cached != nil {
			p.log.Debug("[Batch] cache hit", zap.String("file", f.Name), zap.String("key", key))
			return cached
		}
	}

	result := p.dispatch(ctx, kind, f)

	// Partial results from a cancelled run and hard failures are not cached.
	if p.cache != nil && ctx.Err() == nil && result.Failure() == "" {
		if err := p.cache.Save(ctx, key, result); err != nil {
			p.log.Warn("[Batch] cache save failed", zap.String("file", f.Name), zap.Error(err))
		}
	}
	return result
}

func (p *Processor) dispatch(ctx context.Context, kind FileKind, f model.UploadedFile) (result model.FormatResult) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("[Batch] processor panic",
				zap.String("file", f.Name),
				zap.String("type", string(kind)),
				zap.Any("panic", r))
			result = errorResult(kind, fmt.Sprintf("%s processing error: %v", kind, r))
		}
	}()

	var text string
	if !kind.binary() {
		text = decodeText(f.Data)
	}

	switch kind {
	case KindCSV:
		return ProcessCSV(text)
	case KindExcel:
		return p.processWorkbook(f.Data, p.readXLSX)
	case KindXLS:
		return p.processWorkbook(f.Data, p.readXLS)
	case KindPDF:
		return p.processPDF(ctx, f.Data)
	case KindText:
		return ProcessText(text)
	case KindDOCX:
		return p.processDOCX(f.Data)
	case KindDOC:
		return p.processDOC(f.Data)
	case KindPPTX:
		return p.processPPTX(ctx, f.Data)
	case KindPPT:
		return pptUnsupported()
	default:
		return unknownResult()
	}
}

// CacheKey identifies a result by content and routing kind.
func CacheKey(kind FileKind, data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]) + ":" + string(kind)
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeText reads bytes as UTF-8, dropping a leading BOM and replacing
// invalid sequences.
func decodeText(data []byte) string {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), "�")
}

func envelope(f model.UploadedFile, r model.FormatResult) model.ProcessedDocument {
	size := f.Size
	if size == 0 {
		size = int64(len(f.Data))
	}
	return model.ProcessedDocument{Name: f.Name, Type: f.MimeType, Size: size, Data: r}
}

func cancelledDocument(f model.UploadedFile) model.ProcessedDocument {
	return envelope(f, errorResult(Classify(f.MimeType, f.Name), MsgCancelled))
}

func emptyWordAnalysis() model.WordAnalysis {
	return model.WordAnalysis{TopWords: []model.WordCount{}, WordFrequency: map[string]int{}}
}

func emptyDocumentStructure() model.DocumentStructure {
	return model.DocumentStructure{Paragraphs: []string{}, Headings: []string{}, Lines: []string{}}
}

// errorResult builds the variant kind produces, carrying msg as its error and
// zero values everywhere else.
func errorResult(kind FileKind, msg string) model.FormatResult {
	switch kind {
	case KindCSV:
		return tabularError(model.TypeCSV, msg)
	case KindExcel, KindXLS:
		return tabularError(model.TypeExcel, msg)
	case KindPDF:
		return pdfFailure(msg)
	case KindText:
		return &model.TextResult{
			Structure:      model.TextStructure{Paragraphs: []string{}, Sentences: []string{}},
			WordAnalysis:   emptyWordAnalysis(),
			ContentQuality: model.QualityFailed,
			Error:          msg,
		}
	case KindPPTX, KindPPT:
		return &model.PresentationResult{
			VisualSlides:   []model.Slide{},
			WordAnalysis:   emptyWordAnalysis(),
			ContentQuality: model.QualityFailed,
			Error:          msg,
		}
	default:
		format := string(kind)
		if kind == KindUnknown {
			format = formatBinary
		}
		return documentFailure(format, msg)
	}
}

func documentFailure(format, msg string) *model.DocumentResult {
	return &model.DocumentResult{
		Format:            format,
		Structure:         emptyDocumentStructure(),
		WordAnalysis:      emptyWordAnalysis(),
		ExtractionQuality: model.QualityFailed,
		Error:             msg,
	}
}

const (
	formatBinary = "binary"
	msgBinary    = "Binary file - would require additional processing libraries"
)

func unknownResult() *model.DocumentResult {
	return &model.DocumentResult{
		Format:            formatBinary,
		Content:           msgBinary,
		Structure:         emptyDocumentStructure(),
		WordAnalysis:      emptyWordAnalysis(),
		ExtractionQuality: model.QualityUnsupported,
	}
}

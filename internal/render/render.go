// Package render rasterizes text into PNG previews for slides and PDF pages
// and sizes externally rendered images to the same bounds.
package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Rasterizer turns text into PNG bytes. Implementations must be safe for
// concurrent use; every call owns its own surface.
type Rasterizer interface {
	// RenderPlaceholder draws a 16:9 slide preview: title on top, body below.
	RenderPlaceholder(title string, body []string) ([]byte, error)
	// RenderPage draws a page-sized text preview.
	RenderPage(text string, width, height int) ([]byte, error)
}

const (
	PlaceholderWidth  = 800
	PlaceholderHeight = 450

	// MaxDimension caps either side of any preview.
	MaxDimension = 4096

	margin      = 40
	titleScale  = 2
	lineSpacing = 4
)

var (
	background = color.RGBA{255, 255, 255, 255}
	titleInk   = color.RGBA{31, 41, 55, 255}
	bodyInk    = color.RGBA{75, 85, 99, 255}
	accent     = color.RGBA{59, 130, 246, 255}
	border     = color.RGBA{209, 213, 219, 255}
)

// Basic draws with the fixed 7x13 bitmap face.
type Basic struct {
	face font.Face
}

// NewBasic returns a Rasterizer backed by basicfont.Face7x13.
func NewBasic() *Basic {
	return &Basic{face: basicfont.Face7x13}
}

func (b *Basic) RenderPlaceholder(title string, body []string) ([]byte, error) {
	img := newCanvas(PlaceholderWidth, PlaceholderHeight)
	fillRect(img, image.Rect(0, 0, PlaceholderWidth, 6), accent)

	y := margin
	if title = strings.TrimSpace(title); title != "" {
		y = b.drawTitle(img, title, y)
	}

	lineHeight := b.lineHeight()
	textWidth := PlaceholderWidth - 2*margin
	for _, para := range body {
		for _, line := range b.wrap(para, textWidth) {
			if y+lineHeight > PlaceholderHeight-margin/2 {
				return encode(img)
			}
			b.drawLine(img, line, margin, y, bodyInk)
			y += lineHeight
		}
	}
	return encode(img)
}

func (b *Basic) RenderPage(text string, width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("render page: invalid size %dx%d", width, height)
	}
	width, height = ClampSize(width, height)

	img := newCanvas(width, height)
	strokeRect(img, img.Bounds(), border)

	pad := min(margin, width/10)
	lineHeight := b.lineHeight()
	y := pad
	for _, line := range b.wrap(text, width-2*pad) {
		if y+lineHeight > height-pad {
			break
		}
		b.drawLine(img, line, pad, y, bodyInk)
		y += lineHeight
	}
	return encode(img)
}

// drawTitle renders title at titleScale by drawing it once at native size and
// scaling the strip up. It returns the next free baseline-top y.
func (b *Basic) drawTitle(img *image.RGBA, title string, y int) int {
	maxNative := (PlaceholderWidth - 2*margin) / titleScale
	lines := b.wrap(title, maxNative)
	if len(lines) > 2 {
		lines = lines[:2]
	}
	lh := b.lineHeight()
	for _, line := range lines {
		w := font.MeasureString(b.face, line).Ceil()
		if w == 0 {
			continue
		}
		strip := image.NewRGBA(image.Rect(0, 0, w, lh))
		draw.Draw(strip, strip.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)
		b.drawLine(strip, line, 0, 0, titleInk)

		dst := image.Rect(margin, y, margin+w*titleScale, y+lh*titleScale)
		draw.NearestNeighbor.Scale(img, dst, strip, strip.Bounds(), draw.Over, nil)
		y += lh * titleScale
	}
	return y + lh
}

// drawLine draws s with its top edge at y.
func (b *Basic) drawLine(img draw.Image, s string, x, y int, ink color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(ink),
		Face: b.face,
		Dot:  fixed.P(x, y+b.face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(s)
}

func (b *Basic) lineHeight() int {
	return b.face.Metrics().Height.Ceil() + lineSpacing
}

// wrap breaks text into lines no wider than maxWidth pixels. Words wider than
// a line are hard-split.
func (b *Basic) wrap(text string, maxWidth int) []string {
	if maxWidth <= 0 {
		return nil
	}
	limit := fixed.I(maxWidth)
	var out []string
	for _, para := range strings.Split(text, "\n") {
		var line string
		for _, word := range strings.Fields(para) {
			for font.MeasureString(b.face, word) > limit {
				cut := b.fit(word, limit)
				if line != "" {
					out = append(out, line)
					line = ""
				}
				out = append(out, word[:cut])
				word = word[cut:]
			}
			candidate := word
			if line != "" {
				candidate = line + " " + word
			}
			if font.MeasureString(b.face, candidate) > limit {
				out = append(out, line)
				line = word
				continue
			}
			line = candidate
		}
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// fit returns the byte length of the longest rune prefix of s within limit.
// At least one rune is always kept.
func (b *Basic) fit(s string, limit fixed.Int26_6) int {
	cut := 0
	for i := range s {
		if i > 0 && font.MeasureString(b.face, s[:i]) > limit {
			break
		}
		cut = i
	}
	if cut == 0 {
		for i := range s {
			if i > 0 {
				return i
			}
		}
		return len(s)
	}
	return cut
}

func newCanvas(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)
	return img
}

func fillRect(img *image.RGBA, r image.Rectangle, c color.Color) {
	draw.Draw(img, r.Intersect(img.Bounds()), image.NewUniform(c), image.Point{}, draw.Src)
}

func strokeRect(img *image.RGBA, r image.Rectangle, c color.Color) {
	fillRect(img, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+1), c)
	fillRect(img, image.Rect(r.Min.X, r.Max.Y-1, r.Max.X, r.Max.Y), c)
	fillRect(img, image.Rect(r.Min.X, r.Min.Y, r.Min.X+1, r.Max.Y), c)
	fillRect(img, image.Rect(r.Max.X-1, r.Min.Y, r.Max.X, r.Max.Y), c)
}

func encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("png encode: %w", err)
	}
	return buf.Bytes(), nil
}

// DataURL wraps PNG bytes as a data:image/png;base64 URL.
func DataURL(pngData []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngData)
}

// DataURLFor guesses the image MIME type from bytes.
func DataURLFor(data []byte) string {
	return "data:" + sniffImageType(data) + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func sniffImageType(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return "image/png"
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}):
		return "image/jpeg"
	case bytes.HasPrefix(data, []byte("GIF8")):
		return "image/gif"
	case bytes.HasPrefix(data, []byte("BM")):
		return "image/bmp"
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

// ClampSize scales w×h down to fit within MaxDimension, keeping the aspect
// ratio. Sizes already inside the cap are returned unchanged.
func ClampSize(w, h int) (int, int) {
	if w <= MaxDimension && h <= MaxDimension {
		return w, h
	}
	f := math.Min(float64(MaxDimension)/float64(w), float64(MaxDimension)/float64(h))
	cw := min(MaxDimension, max(1, int(math.Round(float64(w)*f))))
	ch := min(MaxDimension, max(1, int(math.Round(float64(h)*f))))
	return cw, ch
}

// Fit downsamples img to ClampSize bounds. It returns img itself when no
// scaling is needed.
func Fit(img image.Image) image.Image {
	b := img.Bounds()
	w, h := ClampSize(b.Dx(), b.Dy())
	if w == b.Dx() && h == b.Dy() {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// EncodeImage PNG-encodes an already rendered image.
func EncodeImage(img image.Image) ([]byte, error) {
	return encode(img)
}

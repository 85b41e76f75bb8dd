package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doclens/internal/model"
)

const slideNS = `xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"`

func slideXML(paragraphs ...string) []byte {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?><p:sld ` + slideNS + `><p:cSld><p:spTree><p:sp><p:txBody>`)
	for _, p := range paragraphs {
		sb.WriteString(p)
	}
	sb.WriteString(`</p:txBody></p:sp></p:spTree></p:cSld></p:sld>`)
	return []byte(sb.String())
}

// noisePNG is large enough to pass the icon filter.
func noisePNG(t *testing.T) []byte {
	t.Helper()
	rng := rand.New(rand.NewSource(7))
	img := image.NewRGBA(image.Rect(0, 0, 48, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 48; x++ {
			img.Set(x, y, color.RGBA{uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256)), 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.Greater(t, buf.Len(), minImageSize)
	return buf.Bytes()
}

func pptxFixture(t *testing.T) []byte {
	photo := noisePNG(t)
	return buildZip(t, map[string][]byte{
		"ppt/slides/slide1.xml": slideXML(
			`<a:p><a:pPr algn="ctr"/><a:r><a:t>Quarterly Review</a:t></a:r></a:p>`,
			`<a:p><a:r><a:t>Revenue &amp; margin</a:t></a:r><a:r><a:rPr b="1"/><a:t>grew</a:t></a:r></a:p>`,
		),
		"ppt/slides/_rels/slide1.xml.rels": []byte(`<?xml version="1.0" encoding="UTF-8"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout" Target="../slideLayouts/slideLayout1.xml"/>
<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="../media/photo.png"/>
<Relationship Id="rId3" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/notesSlide" Target="../notesSlides/notesSlide1.xml"/>
<Relationship Id="rId4" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink" Target="https://example.com" TargetMode="External"/>
</Relationships>`),
		"ppt/slides/slide2.xml": slideXML(
			`<a:p><a:r><a:t>Hiring plan</a:t></a:r></a:p>`,
			`<a:p><a:r><a:t>Two designers</a:t></a:r></a:p>`,
		),
		"ppt/slides/slide10.xml": slideXML(),
		"ppt/notesSlides/notesSlide1.xml": slideXML(
			`<a:p><a:fld id="{1}" type="slidenum"><a:t>1</a:t></a:fld></a:p>`,
			`<a:p><a:r><a:t>Mention the new hires</a:t></a:r></a:p>`,
		),
		"ppt/media/photo.png":   photo,
		"ppt/media/image2.png":  photo,
		"ppt/media/image10.png": []byte("tiny"),
	})
}

func TestProcessPPTX(t *testing.T) {
	res := New(DefaultConfig()).processPPTX(context.Background(), pptxFixture(t))

	require.Empty(t, res.Error)
	require.Nil(t, res.Recommendation)
	require.Equal(t, 3, res.SlideCount)
	require.Len(t, res.VisualSlides, 3)
	assert.Equal(t, 1, res.SlidesWithNotes)

	s1, s2, s10 := res.VisualSlides[0], res.VisualSlides[1], res.VisualSlides[2]
	assert.Equal(t, []int{1, 2, 10}, []int{s1.SlideNumber, s2.SlideNumber, s10.SlideNumber})

	assert.Equal(t, "Quarterly Review Revenue & margin grew", s1.Text)
	assert.Equal(t, 6, s1.WordCount)
	assert.Equal(t, "Mention the new hires", s1.Notes)
	assert.Equal(t, model.PreviewEmbedded, s1.PreviewSource)
	assert.True(t, s1.HasVisualContent)
	assert.True(t, strings.HasPrefix(s1.ImageData, "data:image/png;base64,"))

	assert.Equal(t, "Hiring plan Two designers", s2.Text)
	assert.Equal(t, model.PreviewEmbedded, s2.PreviewSource)
	assert.Empty(t, s2.Notes)

	assert.Empty(t, s10.Text)
	assert.Equal(t, model.PreviewPlaceholder, s10.PreviewSource)
	assert.False(t, s10.HasVisualContent)
	assert.True(t, strings.HasPrefix(s10.ImageData, "data:image/png;base64,"))

	assert.Equal(t,
		"--- Slide 1 ---\nQuarterly Review Revenue & margin grew\n\n--- Slide 2 ---\nHiring plan Two designers",
		res.Content)
	assert.Equal(t, 10, res.Statistics.TotalWords)
	assert.Equal(t, model.QualityPoor, res.ContentQuality)
}

type capturingRaster struct {
	titles []string
	bodies [][]string
}

func (c *capturingRaster) RenderPlaceholder(title string, body []string) ([]byte, error) {
	c.titles = append(c.titles, title)
	c.bodies = append(c.bodies, body)
	return []byte("png"), nil
}

func (c *capturingRaster) RenderPage(string, int, int) ([]byte, error) { return []byte("png"), nil }

func TestProcessPPTX_PlaceholderUsesSlideText(t *testing.T) {
	data := buildZip(t, map[string][]byte{
		"ppt/slides/slide1.xml": slideXML(
			`<a:p><a:r><a:t>Roadmap</a:t></a:r></a:p>`,
			`<a:p><a:r><a:t>Launch in spring</a:t></a:r></a:p>`,
		),
		"ppt/slides/slide2.xml": slideXML(),
	})
	raster := &capturingRaster{}
	res := New(DefaultConfig(), WithRasterizer(raster)).processPPTX(context.Background(), data)

	require.Len(t, res.VisualSlides, 2)
	assert.Equal(t, []string{"Roadmap", "Slide 2"}, raster.titles)
	assert.Equal(t, []string{"Launch in spring"}, raster.bodies[0])
	assert.Empty(t, raster.bodies[1])
}

func TestProcessPPTX_RenderedSlides(t *testing.T) {
	data := buildZip(t, map[string][]byte{
		"ppt/slides/slide1.xml": slideXML(`<a:p><a:r><a:t>One</a:t></a:r></a:p>`),
		"ppt/slides/slide2.xml": slideXML(`<a:p><a:r><a:t>Two</a:t></a:r></a:p>`),
	})
	cfg := DefaultConfig()
	cfg.RenderSlides = true
	p := New(cfg)
	p.renderSlide = func([]byte) ([][]byte, error) { return [][]byte{[]byte("\x89PNG\r\n\x1a\nslide1"), nil}, nil }

	res := p.processPPTX(context.Background(), data)
	assert.Equal(t, model.PreviewRendered, res.VisualSlides[0].PreviewSource)
	assert.True(t, res.VisualSlides[0].HasVisualContent)
	assert.Equal(t, model.PreviewPlaceholder, res.VisualSlides[1].PreviewSource)

	p.renderSlide = func([]byte) ([][]byte, error) { return nil, errors.New("no fonts") }
	res = p.processPPTX(context.Background(), data)
	assert.Equal(t, model.PreviewPlaceholder, res.VisualSlides[0].PreviewSource)
}

func TestProcessPPTX_NoSlides(t *testing.T) {
	data := buildZip(t, map[string][]byte{"ppt/presentation.xml": []byte("<p:presentation/>")})
	res := New(DefaultConfig()).processPPTX(context.Background(), data)

	require.NotNil(t, res.Recommendation)
	assert.Equal(t, model.ReasonMinimalContent, res.Recommendation.Reason)
	assert.Equal(t, []model.Slide{}, res.VisualSlides)
}

func TestProcessPPTX_Corrupt(t *testing.T) {
	res := New(DefaultConfig()).processPPTX(context.Background(), []byte("not a zip"))

	require.NotNil(t, res.Recommendation)
	assert.Equal(t, model.ConversionAdvice, res.Recommendation.Kind)
	assert.Equal(t, model.ReasonExtractionFailed, res.Recommendation.Reason)
	assert.Equal(t, model.QualityFailed, res.ContentQuality)
}

func TestProcessPPTX_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := New(DefaultConfig()).processPPTX(ctx, pptxFixture(t))

	require.Len(t, res.VisualSlides, 3)
	for _, s := range res.VisualSlides {
		assert.Equal(t, MsgCancelled, s.Error)
	}
}

func TestPPTUnsupported_JSON(t *testing.T) {
	doc := New(DefaultConfig()).ProcessFile(context.Background(),
		model.UploadedFile{Name: "deck.ppt", MimeType: "application/vnd.ms-powerpoint", Data: []byte{0xD0, 0xCF}})

	b, err := json.Marshal(doc)
	require.NoError(t, err)

	var wire struct {
		Data struct {
			Type                  string            `json:"type"`
			ConversionRecommended bool              `json:"conversionRecommended"`
			ConversionReason      string            `json:"conversionReason"`
			SuggestedFormats      []string          `json:"suggestedFormats"`
			VisualSlides          []json.RawMessage `json:"visualSlides"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(b, &wire))
	assert.Equal(t, "presentation", wire.Data.Type)
	assert.True(t, wire.Data.ConversionRecommended)
	assert.Equal(t, "unsupported_format", wire.Data.ConversionReason)
	assert.Equal(t, []string{"PPTX", "PDF"}, wire.Data.SuggestedFormats)
	assert.NotNil(t, wire.Data.VisualSlides)
	assert.Empty(t, wire.Data.VisualSlides)
}

func TestSlideLines(t *testing.T) {
	xml := []byte(`<a:p><a:pPr/><a:r><a:t>  Tab&apos;s   </a:t></a:r><a:r><a:t>value</a:t></a:r></a:p>` +
		`<a:p><a:endParaRPr/></a:p>` +
		`<a:tbl><a:tr><a:tc><a:txBody><a:p><a:r><a:t>cell</a:t></a:r></a:p></a:txBody></a:tc></a:tr></a:tbl>`)
	assert.Equal(t, []string{"Tab's value", "cell"}, slideLines(xml))
}

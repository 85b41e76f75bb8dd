package render

import (
	"bytes"
	"image"
	"image/png"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderPlaceholder_Size(t *testing.T) {
	data, err := NewBasic().RenderPlaceholder("Quarterly Review", []string{"Revenue up", "Costs flat"})
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, PlaceholderWidth, img.Bounds().Dx())
	assert.Equal(t, PlaceholderHeight, img.Bounds().Dy())
}

func TestRenderPlaceholder_EmptyAndOverflowingText(t *testing.T) {
	r := NewBasic()
	_, err := r.RenderPlaceholder("", nil)
	require.NoError(t, err)

	long := strings.Repeat("overflowing body text ", 400)
	_, err = r.RenderPlaceholder(strings.Repeat("T", 500), []string{long})
	require.NoError(t, err)
}

func TestRenderPage(t *testing.T) {
	data, err := NewBasic().RenderPage("page one text", 918, 1188)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 918, img.Bounds().Dx())
	assert.Equal(t, 1188, img.Bounds().Dy())
}

func TestRenderPage_InvalidSize(t *testing.T) {
	_, err := NewBasic().RenderPage("x", 0, 10)
	assert.Error(t, err)
}

func TestRenderPage_ClampsHugePages(t *testing.T) {
	data, err := NewBasic().RenderPage("x", 20000, 100)
	require.NoError(t, err)
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, MaxDimension, cfg.Width)
	assert.Equal(t, 20, cfg.Height)
}

func TestClampSize(t *testing.T) {
	tests := []struct {
		w, h, wantW, wantH int
	}{
		{918, 1188, 918, 1188},
		{4096, 4096, 4096, 4096},
		{4500, 4500, 4096, 4096},
		{8192, 2048, 4096, 1024},
		{100, 20000, 20, 4096},
	}
	for _, tt := range tests {
		w, h := ClampSize(tt.w, tt.h)
		assert.Equal(t, tt.wantW, w, "%dx%d", tt.w, tt.h)
		assert.Equal(t, tt.wantH, h, "%dx%d", tt.w, tt.h)
	}
}

func TestFit(t *testing.T) {
	small := image.NewRGBA(image.Rect(0, 0, 10, 10))
	assert.Same(t, small, Fit(small))

	big := image.NewRGBA(image.Rect(0, 0, 5000, 100))
	b := Fit(big).Bounds()
	assert.Equal(t, MaxDimension, b.Dx())
	assert.Equal(t, 82, b.Dy())
}

func TestRender_ConcurrentCalls(t *testing.T) {
	r := NewBasic()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.RenderPlaceholder("Title", []string{"body"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}

func TestWrap(t *testing.T) {
	b := NewBasic()
	// 7px per glyph: 10 glyphs per 70px line
	lines := b.wrap("aaaa bbbb cccc\nabcdefghijklmnop", 70)
	assert.Equal(t, []string{"aaaa bbbb", "cccc", "abcdefghij", "klmnop"}, lines)
}

func TestDataURL(t *testing.T) {
	assert.Equal(t, "data:image/png;base64,AQI=", DataURL([]byte{1, 2}))
	assert.True(t, strings.HasPrefix(DataURLFor([]byte{0xFF, 0xD8, 0xFF, 0xE0}), "data:image/jpeg;base64,"))
	assert.True(t, strings.HasPrefix(DataURLFor([]byte("\x89PNG\r\n\x1a\nrest")), "data:image/png;base64,"))
}

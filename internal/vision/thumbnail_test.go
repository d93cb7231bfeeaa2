package vision

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// hugeCanvasPNG returns a small valid PNG whose header declares a w x h canvas.
func hugeCanvasPNG(t *testing.T, w, h uint32) []byte {
	t.Helper()
	data := encodePNG(t, 1, 1)
	// signature(8) length(4) "IHDR"(4) width(4) height(4) ... crc at 29
	binary.BigEndian.PutUint32(data[16:20], w)
	binary.BigEndian.PutUint32(data[20:24], h)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	return data
}

func TestDimensions(t *testing.T) {
	w, h, err := Dimensions(encodePNG(t, 640, 480))
	require.NoError(t, err)
	assert.Equal(t, 640, w)
	assert.Equal(t, 480, h)

	_, _, err = Dimensions([]byte("%PDF-1.4"))
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}

func TestThumbnail_ScalesLongestSide(t *testing.T) {
	thumb, err := Thumbnail(encodePNG(t, 800, 400), 200, 0)
	require.NoError(t, err)

	cfg, err := png.DecodeConfig(bytes.NewReader(thumb))
	require.NoError(t, err)
	assert.Equal(t, 200, cfg.Width)
	assert.Equal(t, 100, cfg.Height)
}

func TestThumbnail_TallJPEG(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 300, 900))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, src, nil))

	thumb, err := Thumbnail(buf.Bytes(), 90, 0)
	require.NoError(t, err)

	cfg, err := png.DecodeConfig(bytes.NewReader(thumb))
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Width)
	assert.Equal(t, 90, cfg.Height)
}

func TestThumbnail_KeepsSmallImages(t *testing.T) {
	thumb, err := Thumbnail(encodePNG(t, 32, 16), 256, 0)
	require.NoError(t, err)

	cfg, err := png.DecodeConfig(bytes.NewReader(thumb))
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Width)
	assert.Equal(t, 16, cfg.Height)
}

func TestRaster(t *testing.T) {
	assert.True(t, Raster("image/png"))
	assert.False(t, Raster("image/svg+xml"))
	assert.False(t, Raster("application/pdf"))
}

func TestThumbnail_RefusesHugeCanvas(t *testing.T) {
	data := hugeCanvasPNG(t, 40000, 40000)

	w, h, err := Dimensions(data)
	require.NoError(t, err)
	assert.Equal(t, 40000, w)
	assert.Equal(t, 40000, h)

	_, err = Thumbnail(data, 256, 0)
	assert.ErrorIs(t, err, ErrImageTooLarge)
}

func TestThumbnail_PixelLimitIsInclusive(t *testing.T) {
	data := encodePNG(t, 100, 100)

	_, err := Thumbnail(data, 64, 10_000)
	assert.NoError(t, err)

	_, err = Thumbnail(data, 64, 9_999)
	assert.ErrorIs(t, err, ErrImageTooLarge)
}

func TestWithinPixels(t *testing.T) {
	assert.True(t, WithinPixels(6000, 6000, 0))
	assert.False(t, WithinPixels(40000, 40000, 0))
	assert.False(t, WithinPixels(1<<31-1, 1<<31-1, DefaultMaxPixels))
	assert.False(t, WithinPixels(0, 10, 100))
}

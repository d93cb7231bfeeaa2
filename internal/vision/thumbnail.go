// Package vision reads raster image metadata and renders thumbnails.
package vision

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
)

var (
	ErrUnsupportedImage = errors.New("unsupported image format")
	ErrImageTooLarge    = errors.New("image exceeds the pixel limit")
)

// DefaultMaxPixels bounds the canvas Thumbnail will decode. Decoded size grows
// with width*height, not with the compressed file size.
const DefaultMaxPixels = 40_000_000

// Raster reports whether mimeType is a format this package can decode.
func Raster(mimeType string) bool {
	switch mimeType {
	case "image/jpeg", "image/png", "image/gif":
		return true
	}
	return false
}

// Dimensions reads only the image header.
func Dimensions(data []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	return cfg.Width, cfg.Height, nil
}

// WithinPixels reports whether a w x h canvas fits in maxPixels. A
// non-positive maxPixels means DefaultMaxPixels.
func WithinPixels(w, h int, maxPixels int64) bool {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	if w <= 0 || h <= 0 {
		return false
	}
	return int64(w) <= maxPixels/int64(h)
}

// Thumbnail scales the image so its longest side is at most maxSide and
// returns it PNG-encoded. Smaller images keep their size. Images whose header
// declares more than maxPixels pixels are refused before decoding.
func Thumbnail(data []byte, maxSide int, maxPixels int64) ([]byte, error) {
	if maxSide <= 0 {
		return nil, errors.New("thumbnail size must be positive")
	}
	w, h, err := Dimensions(data)
	if err != nil {
		return nil, err
	}
	if !WithinPixels(w, h, maxPixels) {
		return nil, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, w, h)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	bounds := src.Bounds()
	w, h = fit(bounds.Dx(), bounds.Dy(), maxSide)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

func fit(w, h, maxSide int) (int, int) {
	if w <= maxSide && h <= maxSide {
		return w, h
	}
	if w >= h {
		nh := h * maxSide / w
		if nh < 1 {
			nh = 1
		}
		return maxSide, nh
	}
	nw := w * maxSide / h
	if nw < 1 {
		nw = 1
	}
	return nw, maxSide
}

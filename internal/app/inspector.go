package app

import (
	"context"

	"github.com/rs/zerolog"

	"asset-catalog/internal/pkg/pdfextract"
	"asset-catalog/internal/storage"
	"asset-catalog/internal/vision"
)

const thumbnailPrefix = "thumb"

// FileMetadata is what the inspector could derive from a stored file.
type FileMetadata struct {
	ImageWidth    int
	ImageHeight   int
	PageCount     int
	ThumbnailPath string
}

// Inspector derives image dimensions, thumbnails and PDF page counts. It never
// fails an upload: anything it cannot read is logged and left blank.
type Inspector struct {
	store            *storage.Store
	thumbnailMaxSide int
	maxPixels        int64
	log              zerolog.Logger
}

// NewInspector builds an inspector. Images above maxPixels keep their
// dimensions but get no thumbnail; 0 means vision.DefaultMaxPixels.
func NewInspector(store *storage.Store, thumbnailMaxSide int, maxPixels int64, log zerolog.Logger) *Inspector {
	return &Inspector{store: store, thumbnailMaxSide: thumbnailMaxSide, maxPixels: maxPixels, log: log}
}

// Wants reports whether the inspector reads files of this type, so callers
// can skip buffering the rest.
func (i *Inspector) Wants(mimeType string) bool {
	return vision.Raster(mimeType) || mimeType == "application/pdf"
}

func (i *Inspector) Inspect(ctx context.Context, stored *storage.StoredFile, data []byte) FileMetadata {
	var meta FileMetadata
	if len(data) == 0 {
		return meta
	}

	switch {
	case vision.Raster(stored.MimeType):
		w, h, err := vision.Dimensions(data)
		if err != nil {
			i.log.Warn().Err(err).Str("file", stored.Name).Msg("read image dimensions failed")
			return meta
		}
		meta.ImageWidth, meta.ImageHeight = w, h

		if i.thumbnailMaxSide <= 0 {
			return meta
		}
		if !vision.WithinPixels(w, h, i.maxPixels) {
			i.log.Warn().Str("file", stored.Name).Int("width", w).Int("height", h).Msg("image too large for a thumbnail")
			return meta
		}
		thumb, err := vision.Thumbnail(data, i.thumbnailMaxSide, i.maxPixels)
		if err != nil {
			i.log.Warn().Err(err).Str("file", stored.Name).Msg("render thumbnail failed")
			return meta
		}
		name := storage.DerivedName(thumbnailPrefix, stored.Name, ".png")
		if err := i.store.PutDerived(ctx, name, "image/png", thumb); err != nil {
			i.log.Warn().Err(err).Str("file", stored.Name).Msg("store thumbnail failed")
			return meta
		}
		meta.ThumbnailPath = name

	case stored.MimeType == "application/pdf":
		pages, err := pdfextract.PageCount(data)
		if err != nil {
			i.log.Warn().Err(err).Str("file", stored.Name).Msg("count pdf pages failed")
			return meta
		}
		meta.PageCount = pages
	}
	return meta
}

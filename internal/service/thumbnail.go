package service

import (
	"bytes"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
)

// Quality for thumbnail JPEGs. 85 keeps preview images small without
// visible artifacts.
const thumbnailJPEGQuality = 85

// ThumbnailProcessor renders preview images for uploaded resources.
type ThumbnailProcessor interface {
	// GenerateThumbnail decodes the image and returns JPEG thumbnail
	// bytes plus the source dimensions. The thumbnail fits inside
	// maxWidth x maxHeight with the aspect ratio preserved.
	GenerateThumbnail(data io.Reader, maxWidth, maxHeight int) ([]byte, int, int, error)
}

type imagingProcessor struct{}

// NewImagingProcessor returns the imaging-library backed processor.
func NewImagingProcessor() ThumbnailProcessor {
	return &imagingProcessor{}
}

func (p *imagingProcessor) GenerateThumbnail(data io.Reader, maxWidth, maxHeight int) ([]byte, int, int, error) {
	src, _, err := image.Decode(data)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode image: %w", err)
	}

	bounds := src.Bounds()

	thumb := imaging.Fit(src, maxWidth, maxHeight, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(thumbnailJPEGQuality)); err != nil {
		return nil, 0, 0, fmt.Errorf("encode thumbnail: %w", err)
	}

	return buf.Bytes(), bounds.Dx(), bounds.Dy(), nil
}

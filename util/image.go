package util

import (
	"bufio"
	"bytes"
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

// DecodeImage decodes a photo in any supported format. webp is sniffed by its
// RIFF header since it is not registered with the stdlib image package.
func DecodeImage(r io.Reader) (image.Image, error) {
	br := bufio.NewReader(r)
	if header, err := br.Peek(12); err == nil && isWebp(header) {
		img, err := webp.Decode(br)
		if err != nil {
			return nil, fmt.Errorf("failed to decode webp image: %w", err)
		}
		return img, nil
	}
	img, err := imaging.Decode(br)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

func isWebp(header []byte) bool {
	return len(header) >= 12 &&
		bytes.Equal(header[:4], []byte("RIFF")) &&
		bytes.Equal(header[8:12], []byte("WEBP"))
}

// EncodeImage writes img in the requested format. Supported formats are png
// (the default), jpg/jpeg and webp.
func EncodeImage(w io.Writer, img image.Image, format string, quality int) error {
	switch strings.ToLower(format) {
	case "jpg", "jpeg":
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
	case "webp":
		return webp.Encode(w, img, &webp.Options{Quality: float32(quality)})
	case "png", "":
		return imaging.Encode(w, img, imaging.PNG)
	default:
		return fmt.Errorf("unsupported image format %q", format)
	}
}

// ImageContentType maps an encode format to its MIME type.
func ImageContentType(format string) string {
	switch strings.ToLower(format) {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "webp":
		return "image/webp"
	default:
		return "image/png"
	}
}

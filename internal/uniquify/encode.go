package uniquify

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/kolesa-team/go-webp/decoder"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"

	"uniqbot/internal/domain"
)

const (
	jpegQuality = 95
	webpQuality = 90
)

// EncodeImage serializes img in the requested output format.
func EncodeImage(buf *bytes.Buffer, img image.Image, format domain.FileFormat) error {
	switch format {
	case domain.FormatJPEG:
		return jpeg.Encode(buf, img, &jpeg.Options{Quality: jpegQuality})
	case domain.FormatPNG:
		return png.Encode(buf, img)
	case domain.FormatWebP:
		opts, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, webpQuality)
		if err != nil {
			return fmt.Errorf("webp encoder options: %w", err)
		}
		return webp.Encode(buf, img, opts)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

// DecodeImage decodes jpeg, png or webp bytes.
func DecodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err == nil {
		return img, nil
	}
	if webpImg, webpErr := webp.Decode(bytes.NewReader(data), &decoder.Options{}); webpErr == nil {
		return webpImg, nil
	}
	return nil, err
}

// Extension returns the file extension for a format, dot included.
func Extension(format domain.FileFormat) string {
	switch format {
	case domain.FormatPNG:
		return ".png"
	case domain.FormatWebP:
		return ".webp"
	default:
		return ".jpg"
	}
}

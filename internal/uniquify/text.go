package uniquify

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

var (
	captionFontOnce sync.Once
	captionFont     *opentype.Font
	captionFontErr  error
)

func loadCaptionFont() (*opentype.Font, error) {
	captionFontOnce.Do(func() {
		captionFont, captionFontErr = opentype.Parse(gobold.TTF)
	})
	return captionFont, captionFontErr
}

// drawCaption renders text near the bottom of the image, horizontally
// centered, with a dark drop shadow for legibility. Placement and size are
// proportional to the image dimensions so the caption lands in the same
// relative spot on any input.
func drawCaption(img *image.NRGBA, text string) error {
	if text == "" {
		return nil
	}
	fnt, err := loadCaptionFont()
	if err != nil {
		return fmt.Errorf("caption font: %w", err)
	}
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	size := float64(w) / 16
	if size < 12 {
		size = 12
	}
	face, err := opentype.NewFace(fnt, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return fmt.Errorf("caption face: %w", err)
	}
	defer face.Close()

	d := &font.Drawer{Dst: img, Face: face}
	width := d.MeasureString(text).Ceil()
	x := (w - width) / 2
	if x < 0 {
		x = 0
	}
	baseline := h - h/12

	shadow := 1 + int(size)/24
	d.Src = image.NewUniform(color.NRGBA{0, 0, 0, 200})
	d.Dot = fixed.P(x+shadow, baseline+shadow)
	d.DrawString(text)

	d.Src = image.NewUniform(color.NRGBA{255, 255, 255, 255})
	d.Dot = fixed.P(x, baseline)
	d.DrawString(text)
	return nil
}

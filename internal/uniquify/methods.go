package uniquify

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"math/rand"

	"github.com/disintegration/imaging"

	"uniqbot/internal/domain"
)

func init() {
	Register("noise", addNoise, domain.Range{Min: 5, Max: 15})
	Register("sparkles", addSparkles, domain.Range{Min: 10, Max: 30})
	Register("lens_flare", addLensFlare, domain.Range{Min: 0.3, Max: 0.7})
	Register("rotate", rotateImage, domain.Range{Min: -3, Max: 3})
	Register("brightness", adjustBrightness, domain.Range{Min: 0.95, Max: 1.05})
	Register("contrast", adjustContrast, domain.Range{Min: 0.95, Max: 1.05})
	Register("hue", shiftHue, domain.Range{Min: -5, Max: 5})
	Register("blur", applyBlur, domain.Range{Min: 0.5, Max: 1.5})
}

// addNoise adds uniform per-channel noise of amplitude param.
func addNoise(img *image.NRGBA, param float64, rng *rand.Rand) (*image.NRGBA, error) {
	amplitude := int(param + 0.5)
	if amplitude < 0 {
		return nil, fmt.Errorf("noise amplitude %d: %w", amplitude, domain.ErrTransformFailed)
	}
	if amplitude == 0 {
		return img, nil
	}
	out := imaging.Clone(img)
	for i := 0; i < len(out.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			delta := rng.Intn(2*amplitude+1) - amplitude
			out.Pix[i+c] = clampByte(int(out.Pix[i+c]) + delta)
		}
	}
	return out, nil
}

var sparkleColors = []color.NRGBA{
	{255, 255, 255, 200},
	{255, 255, 150, 180},
	{200, 200, 255, 180},
}

// addSparkles scatters small star shapes; param is the sparkle count.
func addSparkles(img *image.NRGBA, param float64, rng *rand.Rand) (*image.NRGBA, error) {
	count := int(param + 0.5)
	if count < 0 {
		return nil, fmt.Errorf("sparkle count %d: %w", count, domain.ErrTransformFailed)
	}
	out := imaging.Clone(img)
	w, h := out.Bounds().Dx(), out.Bounds().Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("empty image: %w", domain.ErrTransformFailed)
	}
	for range count {
		x := rng.Intn(w)
		y := rng.Intn(h)
		size := 2 + rng.Intn(4)
		col := sparkleColors[rng.Intn(len(sparkleColors))]
		drawDisc(out, x, y, size, col)
		ray := size * 2
		drawLine(out, x-ray, y, x+ray, y, col)
		drawLine(out, x, y-ray, x, y+ray, col)
		drawLine(out, x-ray, y-ray, x+ray, y+ray, col)
		drawLine(out, x-ray, y+ray, x+ray, y-ray, col)
	}
	return out, nil
}

// addLensFlare composites concentric translucent discs at a loosely random
// position; param in [0,1] controls the peak alpha.
func addLensFlare(img *image.NRGBA, param float64, rng *rand.Rand) (*image.NRGBA, error) {
	if param < 0 || param > 1 {
		return nil, fmt.Errorf("flare intensity %.2f: %w", param, domain.ErrTransformFailed)
	}
	out := imaging.Clone(img)
	w, h := out.Bounds().Dx(), out.Bounds().Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("empty image: %w", domain.ErrTransformFailed)
	}
	// Anchor on a loose grid third, then jitter by a tenth of the frame.
	x := (1 + rng.Intn(3)) * w / 4
	y := (1 + rng.Intn(3)) * h / 4
	x += rng.Intn(w/5+1) - w/10
	y += rng.Intn(h/5+1) - h/10

	alpha := int(255 * param)
	maxRadius := minInt(w, h) / 2
	for i := range 5 {
		radius := maxRadius / (i + 1)
		if radius < 1 {
			break
		}
		drawDisc(out, x, y, radius, color.NRGBA{255, 255, 200, uint8(clampByte(alpha / (i + 2)))})
	}
	return out, nil
}

// rotateImage rotates by param degrees around the center, keeping the
// original dimensions and filling exposed corners with white.
func rotateImage(img *image.NRGBA, param float64, _ *rand.Rand) (*image.NRGBA, error) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	rotated := imaging.Rotate(img, param, color.White)
	out := imaging.CropCenter(rotated, w, h)
	if out.Bounds().Empty() {
		return nil, fmt.Errorf("rotate by %.2f degenerated image: %w", param, domain.ErrTransformFailed)
	}
	return out, nil
}

func adjustBrightness(img *image.NRGBA, param float64, _ *rand.Rand) (*image.NRGBA, error) {
	if param <= 0 {
		return nil, fmt.Errorf("brightness factor %.2f: %w", param, domain.ErrTransformFailed)
	}
	return imaging.AdjustBrightness(img, (param-1)*100), nil
}

func adjustContrast(img *image.NRGBA, param float64, _ *rand.Rand) (*image.NRGBA, error) {
	if param <= 0 {
		return nil, fmt.Errorf("contrast factor %.2f: %w", param, domain.ErrTransformFailed)
	}
	return imaging.AdjustContrast(img, (param-1)*100), nil
}

// shiftHue rotates every pixel's hue by param degrees.
func shiftHue(img *image.NRGBA, param float64, _ *rand.Rand) (*image.NRGBA, error) {
	out := imaging.Clone(img)
	for i := 0; i < len(out.Pix); i += 4 {
		r, g, b := out.Pix[i], out.Pix[i+1], out.Pix[i+2]
		hue, sat, val := rgbToHSV(r, g, b)
		hue = math.Mod(hue+param+360, 360)
		out.Pix[i], out.Pix[i+1], out.Pix[i+2] = hsvToRGB(hue, sat, val)
	}
	return out, nil
}

func applyBlur(img *image.NRGBA, param float64, _ *rand.Rand) (*image.NRGBA, error) {
	if param <= 0 {
		return nil, fmt.Errorf("blur sigma %.2f: %w", param, domain.ErrTransformFailed)
	}
	return imaging.Blur(img, param), nil
}

func drawDisc(img *image.NRGBA, cx, cy, radius int, col color.NRGBA) {
	for y := cy - radius; y <= cy+radius; y++ {
		for x := cx - radius; x <= cx+radius; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= radius*radius {
				blendPixel(img, x, y, col)
			}
		}
	}
}

func drawLine(img *image.NRGBA, x0, y0, x1, y1 int, col color.NRGBA) {
	steps := maxInt(absInt(x1-x0), absInt(y1-y0))
	if steps == 0 {
		blendPixel(img, x0, y0, col)
		return
	}
	for i := 0; i <= steps; i++ {
		x := x0 + (x1-x0)*i/steps
		y := y0 + (y1-y0)*i/steps
		blendPixel(img, x, y, col)
	}
}

// blendPixel src-over blends col onto the pixel at (x, y); out-of-bounds
// coordinates are ignored.
func blendPixel(img *image.NRGBA, x, y int, col color.NRGBA) {
	if !(image.Point{x, y}).In(img.Bounds()) {
		return
	}
	i := img.PixOffset(x, y)
	a := int(col.A)
	img.Pix[i] = clampByte((int(col.R)*a + int(img.Pix[i])*(255-a)) / 255)
	img.Pix[i+1] = clampByte((int(col.G)*a + int(img.Pix[i+1])*(255-a)) / 255)
	img.Pix[i+2] = clampByte((int(col.B)*a + int(img.Pix[i+2])*(255-a)) / 255)
}

func rgbToHSV(r, g, b uint8) (h, s, v float64) {
	rf, gf, bf := float64(r)/255, float64(g)/255, float64(b)/255
	maxc := math.Max(rf, math.Max(gf, bf))
	minc := math.Min(rf, math.Min(gf, bf))
	v = maxc
	delta := maxc - minc
	if maxc > 0 {
		s = delta / maxc
	}
	if delta == 0 {
		return 0, s, v
	}
	switch maxc {
	case rf:
		h = 60 * math.Mod((gf-bf)/delta, 6)
	case gf:
		h = 60 * ((bf-rf)/delta + 2)
	default:
		h = 60 * ((rf-gf)/delta + 4)
	}
	if h < 0 {
		h += 360
	}
	return h, s, v
}

func hsvToRGB(h, s, v float64) (uint8, uint8, uint8) {
	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c
	var rf, gf, bf float64
	switch {
	case h < 60:
		rf, gf, bf = c, x, 0
	case h < 120:
		rf, gf, bf = x, c, 0
	case h < 180:
		rf, gf, bf = 0, c, x
	case h < 240:
		rf, gf, bf = 0, x, c
	case h < 300:
		rf, gf, bf = x, 0, c
	default:
		rf, gf, bf = c, 0, x
	}
	return clampByte(int(math.Round((rf + m) * 255))),
		clampByte(int(math.Round((gf + m) * 255))),
		clampByte(int(math.Round((bf + m) * 255)))
}

func clampByte(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func absInt(a int) int {
	if a < 0 {
		return -a
	}
	return a
}

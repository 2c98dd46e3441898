package uniquify

import (
	"image"

	"github.com/disintegration/imaging"

	"uniqbot/internal/domain"
)

const (
	// overlayWidthFraction scales the secondary image to a fixed share of
	// the base width, aspect ratio preserved.
	overlayWidthFraction = 0.3
	// overlayMargin insets corner anchors from the respective edges.
	overlayMargin = 20
)

// AnchorPoint maps a position token to the top-left corner at which an
// ovW x ovH overlay is placed on a baseW x baseH image. Pure function:
// identical inputs always yield identical coordinates.
func AnchorPoint(pos domain.OverlayPosition, baseW, baseH, ovW, ovH int) image.Point {
	switch pos {
	case domain.PositionTopLeft:
		return image.Pt(overlayMargin, overlayMargin)
	case domain.PositionTopRight:
		return image.Pt(baseW-ovW-overlayMargin, overlayMargin)
	case domain.PositionBottomLeft:
		return image.Pt(overlayMargin, baseH-ovH-overlayMargin)
	case domain.PositionBottomRight:
		return image.Pt(baseW-ovW-overlayMargin, baseH-ovH-overlayMargin)
	default: // center
		return image.Pt((baseW-ovW)/2, (baseH-ovH)/2)
	}
}

// Compose alpha-blends overlay onto base at the given position. The overlay
// is first resized to 30% of the base width. Within the overlay footprint
// each pixel becomes base*(1-a) + overlay*a with a = opacity/100; pixels
// outside the footprint are untouched. Opacity 0 returns a plain copy of the
// base, opacity 100 pastes the overlay fully opaque.
func Compose(base image.Image, overlay image.Image, pos domain.OverlayPosition, opacity int) *image.NRGBA {
	if opacity <= domain.MinOpacity {
		return imaging.Clone(base)
	}
	baseW := base.Bounds().Dx()
	baseH := base.Bounds().Dy()
	targetW := int(float64(baseW)*overlayWidthFraction + 0.5)
	if targetW < 1 {
		targetW = 1
	}
	resized := imaging.Resize(overlay, targetW, 0, imaging.Lanczos)
	at := AnchorPoint(pos, baseW, baseH, resized.Bounds().Dx(), resized.Bounds().Dy())
	if opacity >= domain.MaxOpacity {
		return imaging.Paste(base, resized, at)
	}
	return imaging.Overlay(base, resized, at, float64(opacity)/100)
}

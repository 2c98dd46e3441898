package domain

import "fmt"

// FileFormat enumerates supported output encodings.
type FileFormat string

const (
	FormatJPEG FileFormat = "jpeg"
	FormatPNG  FileFormat = "png"
	FormatWebP FileFormat = "webp"
)

// ParseFileFormat maps a user token onto a FileFormat.
func ParseFileFormat(s string) (FileFormat, bool) {
	switch FileFormat(s) {
	case FormatJPEG, FormatPNG, FormatWebP:
		return FileFormat(s), true
	}
	return "", false
}

// OverlayPosition enumerates anchor positions for the secondary image.
type OverlayPosition string

const (
	PositionTopLeft     OverlayPosition = "top_left"
	PositionTopRight    OverlayPosition = "top_right"
	PositionBottomLeft  OverlayPosition = "bottom_left"
	PositionBottomRight OverlayPosition = "bottom_right"
	PositionCenter      OverlayPosition = "center"
)

// ParseOverlayPosition maps a user token onto an OverlayPosition.
func ParseOverlayPosition(s string) (OverlayPosition, bool) {
	switch OverlayPosition(s) {
	case PositionTopLeft, PositionTopRight, PositionBottomLeft, PositionBottomRight, PositionCenter:
		return OverlayPosition(s), true
	}
	return "", false
}

const (
	MinCopies  = 1
	MaxCopies  = 10
	MinOpacity = 0
	MaxOpacity = 100
)

// GenerationRequest is the immutable payload handed to the dispatcher once a
// conversation reaches its terminal state. The JSON field names are the queue
// wire contract and must not change.
type GenerationRequest struct {
	BaseAssetRef    string           `json:"base_asset_ref"`
	CopiesCount     int              `json:"copies_count"`
	PresetID        int              `json:"preset_id"`
	FileFormat      FileFormat       `json:"file_format"`
	FlipHorizontal  bool             `json:"flip_horizontal"`
	OverlayText     string           `json:"overlay_text,omitempty"`
	OverlayPhotoRef string           `json:"overlay_photo_ref,omitempty"`
	OverlayPosition *OverlayPosition `json:"overlay_position,omitempty"`
	OverlayOpacity  *int             `json:"overlay_opacity,omitempty"`
}

// HasOverlay reports whether a secondary image should be composited.
func (r GenerationRequest) HasOverlay() bool {
	return r.OverlayPhotoRef != ""
}

// Validate checks the request ranges. The conversation layer enforces these
// at input time; Validate exists for callers that bypass it (tests, direct
// API submissions).
func (r GenerationRequest) Validate() error {
	if r.BaseAssetRef == "" {
		return fmt.Errorf("%w: base asset missing", ErrInvalidInput)
	}
	if r.CopiesCount < MinCopies || r.CopiesCount > MaxCopies {
		return fmt.Errorf("%w: copies_count %d out of range", ErrInvalidInput, r.CopiesCount)
	}
	if _, ok := ParseFileFormat(string(r.FileFormat)); !ok {
		return fmt.Errorf("%w: unsupported file_format %q", ErrInvalidInput, r.FileFormat)
	}
	if r.HasOverlay() {
		if r.OverlayPosition == nil {
			return fmt.Errorf("%w: overlay_position missing", ErrInvalidInput)
		}
		if _, ok := ParseOverlayPosition(string(*r.OverlayPosition)); !ok {
			return fmt.Errorf("%w: unsupported overlay_position %q", ErrInvalidInput, *r.OverlayPosition)
		}
		if r.OverlayOpacity == nil {
			return fmt.Errorf("%w: overlay_opacity missing", ErrInvalidInput)
		}
		if *r.OverlayOpacity < MinOpacity || *r.OverlayOpacity > MaxOpacity {
			return fmt.Errorf("%w: overlay_opacity %d out of range", ErrInvalidInput, *r.OverlayOpacity)
		}
	}
	return nil
}

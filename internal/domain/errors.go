package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnknownMethod   = errors.New("unknown uniquification method")
	ErrUnknownPreset   = errors.New("unknown preset")
	ErrAssetUnreadable = errors.New("asset unreadable")
	ErrTransformFailed = errors.New("transform failed")
	ErrNoJob           = errors.New("no job available")
)

// CategoryForError maps an engine or store error onto its failure category.
// Validation errors never reach the job layer, so they do not appear here.
func CategoryForError(err error) ErrorCategory {
	switch {
	case errors.Is(err, ErrUnknownMethod), errors.Is(err, ErrUnknownPreset):
		return CategoryConfiguration
	case errors.Is(err, ErrAssetUnreadable):
		return CategoryAsset
	case errors.Is(err, ErrTransformFailed):
		return CategoryTransform
	default:
		return CategoryInternal
	}
}

// Package uniquify contains the preset-driven transformation engine that
// turns one base image into N independently perturbed copies.
package uniquify

import (
	"fmt"
	"image"
	"math/rand"

	"uniqbot/internal/domain"
)

// Transform applies one perturbation to an image. param is drawn uniformly
// from the method's effective range, independently per copy; rng feeds any
// additional randomness the method needs (pixel noise, sparkle placement).
type Transform func(img *image.NRGBA, param float64, rng *rand.Rand) (*image.NRGBA, error)

type methodEntry struct {
	fn           Transform
	defaultRange domain.Range
}

var registry = map[string]methodEntry{}

// Register adds a named transform to the catalog. Called from init; the
// registry is read-only afterwards and safe for concurrent use.
func Register(name string, fn Transform, defaultRange domain.Range) {
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("uniquify: duplicate method %q", name))
	}
	registry[name] = methodEntry{fn: fn, defaultRange: defaultRange}
}

// ResolvedMethod pairs a transform with the range it draws parameters from.
type ResolvedMethod struct {
	Name  string
	Range domain.Range
	fn    Transform
}

// ResolvePreset turns a preset into the ordered list of transforms a run will
// apply. Disabled specs are dropped, declared order is preserved, and an
// unknown method name fails the resolution before any image work happens.
func ResolvePreset(p domain.Preset) ([]ResolvedMethod, error) {
	resolved := make([]ResolvedMethod, 0, len(p.Methods))
	for _, spec := range p.Methods {
		if !spec.Enabled {
			continue
		}
		entry, ok := registry[spec.Name]
		if !ok {
			return nil, fmt.Errorf("preset %d references %q: %w", p.ID, spec.Name, domain.ErrUnknownMethod)
		}
		effective := spec.ParamRange
		if effective.Zero() {
			effective = entry.defaultRange
		}
		if effective.Max < effective.Min {
			return nil, fmt.Errorf("preset %d method %q range inverted: %w", p.ID, spec.Name, domain.ErrUnknownMethod)
		}
		resolved = append(resolved, ResolvedMethod{Name: spec.Name, Range: effective, fn: entry.fn})
	}
	return resolved, nil
}

// DefaultPreset mirrors the preset seeded into the store on first start.
func DefaultPreset() domain.Preset {
	return domain.Preset{
		Name: "photo-default",
		Methods: []domain.MethodSpec{
			{Name: "noise", Enabled: true, ParamRange: domain.Range{Min: 5, Max: 15}},
			{Name: "sparkles", Enabled: true, ParamRange: domain.Range{Min: 10, Max: 30}},
			{Name: "lens_flare", Enabled: true, ParamRange: domain.Range{Min: 0.3, Max: 0.7}},
			{Name: "rotate", Enabled: true, ParamRange: domain.Range{Min: -3, Max: 3}},
			{Name: "brightness", Enabled: true, ParamRange: domain.Range{Min: 0.95, Max: 1.05}},
			{Name: "contrast", Enabled: true, ParamRange: domain.Range{Min: 0.95, Max: 1.05}},
			{Name: "hue", Enabled: true, ParamRange: domain.Range{Min: -5, Max: 5}},
			{Name: "blur", Enabled: false, ParamRange: domain.Range{Min: 0.5, Max: 1.5}},
		},
	}
}

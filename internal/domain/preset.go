package domain

// Range is an inclusive numeric parameter range a transform draws from.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Zero reports whether the range was left unset and the registry default
// should apply.
func (r Range) Zero() bool {
	return r.Min == 0 && r.Max == 0
}

// MethodSpec references one registered transform inside a preset. Immutable
// once loaded.
type MethodSpec struct {
	Name       string `json:"name"`
	Enabled    bool   `json:"enabled"`
	ParamRange Range  `json:"param_range"`
}

// Preset is an ordered configuration of transforms. Order matters: later
// methods operate on the output of earlier ones. Read-only during a run.
type Preset struct {
	ID      int          `json:"id"`
	Name    string       `json:"name"`
	Methods []MethodSpec `json:"methods"`
}

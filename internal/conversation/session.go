// Package conversation drives the strictly ordered parameter collection that
// precedes a generation job: one prompt at a time, one validated answer per
// state, nothing skipped.
package conversation

import (
	"sync"
	"time"

	"uniqbot/internal/domain"
)

// State identifies which answer the session is waiting for.
type State string

const (
	StateAwaitPhoto           State = "await_photo"
	StateAwaitCopies          State = "await_copies"
	StateAwaitFormat          State = "await_format"
	StateAwaitFlip            State = "await_flip"
	StateAwaitTextChoice      State = "await_text_choice"
	StateAwaitTextInput       State = "await_text_input"
	StateAwaitOverlayChoice   State = "await_overlay_choice"
	StateAwaitOverlayPhoto    State = "await_overlay_photo"
	StateAwaitOverlayPosition State = "await_overlay_position"
	StateAwaitOverlayOpacity  State = "await_overlay_opacity"
	StateAwaitingResult       State = "awaiting_result"
	StateClosed               State = "closed"
)

// Session is the per-user collection context. It is owned by exactly one
// Manager entry and mutated only under its own lock; sessions never see each
// other's data.
type Session struct {
	mu sync.Mutex

	ID         string
	State      State
	Locale     string
	Collected  domain.GenerationRequest
	JobID      string
	LastActive time.Time
}

// Input is one user answer: either a text token or an uploaded asset
// reference, never both.
type Input struct {
	Text      string
	AssetRef  string
	AssetSize int64
}

// Reply tells the transport what to render next.
type Reply struct {
	State     State
	Prompt    string
	JobID     string `json:",omitempty"`
	Cancelled bool   `json:",omitempty"`
}

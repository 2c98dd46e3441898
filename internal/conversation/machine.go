package conversation

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"uniqbot/internal/domain"
)

const maxCaptionLength = 200

// Submitter is the dispatcher contract the machine depends on. Nothing else
// of the job layer is visible from here.
type Submitter interface {
	Submit(ctx context.Context, req domain.GenerationRequest) (string, error)
}

// Machine advances sessions through the fixed prompt order. It is stateless
// itself; all per-user data lives in the Session.
type Machine struct {
	submitter     Submitter
	presetID      int
	maxPhotoBytes int64
	logger        zerolog.Logger
}

// NewMachine builds the state machine. presetID selects which stored preset
// submitted requests reference.
func NewMachine(submitter Submitter, presetID int, maxPhotoBytes int64, logger zerolog.Logger) *Machine {
	return &Machine{
		submitter:     submitter,
		presetID:      presetID,
		maxPhotoBytes: maxPhotoBytes,
		logger:        logger,
	}
}

// Advance feeds one user input into the session. Invalid input leaves the
// session exactly where it was and re-prompts; the escape token cancels from
// any collecting state without submitting anything.
func (m *Machine) Advance(ctx context.Context, s *Session, in Input) (Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if in.AssetRef == "" && isEscape(in.Text) && s.State != StateAwaitingResult {
		s.State = StateClosed
		s.Collected = domain.GenerationRequest{}
		return Reply{State: StateClosed, Prompt: promptFor(StateClosed, s.Locale), Cancelled: true}, nil
	}

	switch s.State {
	case StateAwaitPhoto:
		return m.acceptPhoto(s, in, StateAwaitCopies, func(ref string) {
			s.Collected.BaseAssetRef = ref
		}), nil

	case StateAwaitCopies:
		n, err := strconv.Atoi(strings.TrimSpace(in.Text))
		if err != nil || n < domain.MinCopies || n > domain.MaxCopies {
			return m.reject(s, "copies"), nil
		}
		s.Collected.CopiesCount = n
		return m.advanceTo(s, StateAwaitFormat), nil

	case StateAwaitFormat:
		format, ok := domain.ParseFileFormat(strings.ToLower(strings.TrimSpace(in.Text)))
		if !ok {
			return m.reject(s, "format"), nil
		}
		s.Collected.FileFormat = format
		return m.advanceTo(s, StateAwaitFlip), nil

	case StateAwaitFlip:
		flip, ok := parseYesNo(in.Text)
		if !ok {
			return m.reject(s, "yesno"), nil
		}
		s.Collected.FlipHorizontal = flip
		return m.advanceTo(s, StateAwaitTextChoice), nil

	case StateAwaitTextChoice:
		yes, ok := parseYesNo(in.Text)
		if !ok {
			return m.reject(s, "yesno"), nil
		}
		if yes {
			return m.advanceTo(s, StateAwaitTextInput), nil
		}
		return m.advanceTo(s, StateAwaitOverlayChoice), nil

	case StateAwaitTextInput:
		text := strings.TrimSpace(in.Text)
		if text == "" || len(text) > maxCaptionLength {
			return m.reject(s, "text"), nil
		}
		s.Collected.OverlayText = text
		return m.advanceTo(s, StateAwaitOverlayChoice), nil

	case StateAwaitOverlayChoice:
		yes, ok := parseYesNo(in.Text)
		if !ok {
			return m.reject(s, "yesno"), nil
		}
		if yes {
			return m.advanceTo(s, StateAwaitOverlayPhoto), nil
		}
		return m.submit(ctx, s)

	case StateAwaitOverlayPhoto:
		return m.acceptPhoto(s, in, StateAwaitOverlayPosition, func(ref string) {
			s.Collected.OverlayPhotoRef = ref
		}), nil

	case StateAwaitOverlayPosition:
		pos, ok := domain.ParseOverlayPosition(strings.ToLower(strings.TrimSpace(in.Text)))
		if !ok {
			return m.reject(s, "position"), nil
		}
		s.Collected.OverlayPosition = &pos
		return m.advanceTo(s, StateAwaitOverlayOpacity), nil

	case StateAwaitOverlayOpacity:
		n, err := strconv.Atoi(strings.TrimSpace(in.Text))
		if err != nil || n < domain.MinOpacity || n > domain.MaxOpacity {
			return m.reject(s, "opacity"), nil
		}
		s.Collected.OverlayOpacity = &n
		return m.submit(ctx, s)

	case StateAwaitingResult:
		return Reply{State: s.State, Prompt: promptFor(StateAwaitingResult, s.Locale), JobID: s.JobID}, nil

	default:
		return Reply{}, fmt.Errorf("session %s in unexpected state %q", s.ID, s.State)
	}
}

// acceptPhoto validates an asset upload input for either the base or the
// overlay photo.
func (m *Machine) acceptPhoto(s *Session, in Input, next State, store func(ref string)) Reply {
	if in.AssetRef == "" {
		return m.reject(s, "photo")
	}
	if m.maxPhotoBytes > 0 && in.AssetSize > m.maxPhotoBytes {
		return m.reject(s, "photo_too_big")
	}
	store(in.AssetRef)
	return m.advanceTo(s, next)
}

func (m *Machine) advanceTo(s *Session, next State) Reply {
	s.State = next
	return Reply{State: next, Prompt: promptFor(next, s.Locale)}
}

// reject keeps the session in place: no collected field is touched and the
// reply combines the validation hint with the original prompt.
func (m *Machine) reject(s *Session, hintKey string) Reply {
	return Reply{
		State:  s.State,
		Prompt: hint(hintKey, s.Locale) + " " + promptFor(s.State, s.Locale),
	}
}

func (m *Machine) submit(ctx context.Context, s *Session) (Reply, error) {
	req := s.Collected
	req.PresetID = m.presetID

	jobID, err := m.submitter.Submit(ctx, req)
	if err != nil {
		return Reply{}, fmt.Errorf("submit session %s: %w", s.ID, err)
	}
	s.JobID = jobID
	s.State = StateAwaitingResult
	m.logger.Info().Str("session_id", s.ID).Str("job_id", jobID).
		Int("copies", req.CopiesCount).Msg("conversation: request submitted")
	return Reply{State: StateAwaitingResult, Prompt: promptFor(StateAwaitingResult, s.Locale), JobID: jobID}, nil
}

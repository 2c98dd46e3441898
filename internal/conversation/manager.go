package conversation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"uniqbot/internal/domain"
)

// Manager owns all live sessions, keyed by session id. Each session is
// advanced one input at a time; concurrent inputs for the same session
// serialize on the session lock.
type Manager struct {
	machine *Machine
	ttl     time.Duration
	logger  zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager builds a session manager around the given machine.
func NewManager(machine *Machine, ttl time.Duration, logger zerolog.Logger) *Manager {
	return &Manager{
		machine:  machine,
		ttl:      ttl,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Open creates a fresh session and returns it with the first prompt.
func (mgr *Manager) Open(locale string) (*Session, Reply) {
	s := &Session{
		ID:         uuid.NewString(),
		State:      StateAwaitPhoto,
		Locale:     locale,
		LastActive: time.Now(),
	}
	mgr.mu.Lock()
	mgr.sessions[s.ID] = s
	mgr.mu.Unlock()
	return s, Reply{State: s.State, Prompt: promptFor(s.State, locale)}
}

// Input routes one user answer to its session.
func (mgr *Manager) Input(ctx context.Context, sessionID string, in Input) (Reply, error) {
	mgr.mu.Lock()
	s, ok := mgr.sessions[sessionID]
	mgr.mu.Unlock()
	if !ok {
		return Reply{}, fmt.Errorf("session %s: %w", sessionID, domain.ErrNotFound)
	}

	reply, err := mgr.machine.Advance(ctx, s, in)
	if err != nil {
		return Reply{}, err
	}

	s.mu.Lock()
	s.LastActive = time.Now()
	closed := s.State == StateClosed
	s.mu.Unlock()

	if closed {
		mgr.drop(sessionID)
	}
	return reply, nil
}

// Cancel discards a session regardless of its state. Nothing is submitted;
// a job already submitted keeps running (in-flight jobs are not cancellable).
func (mgr *Manager) Cancel(sessionID string) bool {
	mgr.mu.Lock()
	_, ok := mgr.sessions[sessionID]
	mgr.mu.Unlock()
	if ok {
		mgr.drop(sessionID)
	}
	return ok
}

// ResolveJob is called by the notification listener when a job reaches a
// terminal status. The owning session, if still present, is released.
func (mgr *Manager) ResolveJob(jobID string, status string) {
	mgr.mu.Lock()
	var sessionID string
	for id, s := range mgr.sessions {
		s.mu.Lock()
		match := s.JobID == jobID
		s.mu.Unlock()
		if match {
			sessionID = id
			break
		}
	}
	mgr.mu.Unlock()

	if sessionID == "" {
		return
	}
	mgr.logger.Info().Str("session_id", sessionID).Str("job_id", jobID).
		Str("status", status).Msg("conversation: job resolved")
	mgr.drop(sessionID)
}

// StartJanitor periodically drops sessions idle for longer than the TTL.
// Runs until ctx is done.
func (mgr *Manager) StartJanitor(ctx context.Context) {
	ticker := time.NewTicker(mgr.ttl / 2)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				mgr.expire(time.Now().Add(-mgr.ttl))
			}
		}
	}()
}

func (mgr *Manager) expire(cutoff time.Time) {
	mgr.mu.Lock()
	var stale []string
	for id, s := range mgr.sessions {
		s.mu.Lock()
		if s.LastActive.Before(cutoff) {
			stale = append(stale, id)
		}
		s.mu.Unlock()
	}
	mgr.mu.Unlock()

	for _, id := range stale {
		mgr.logger.Debug().Str("session_id", id).Msg("conversation: session expired")
		mgr.drop(id)
	}
}

func (mgr *Manager) drop(sessionID string) {
	mgr.mu.Lock()
	delete(mgr.sessions, sessionID)
	mgr.mu.Unlock()
}

// Len reports the number of live sessions.
func (mgr *Manager) Len() int {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	return len(mgr.sessions)
}

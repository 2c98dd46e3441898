package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"uniqbot/internal/conversation"
	"uniqbot/internal/domain"
	"uniqbot/internal/middleware"
)

type sessionInputRequest struct {
	Text     string `json:"text,omitempty"`
	AssetRef string `json:"asset_ref,omitempty"`
}

type sessionReply struct {
	SessionID string `json:"session_id"`
	State     string `json:"state"`
	Prompt    string `json:"prompt,omitempty"`
	JobID     string `json:"job_id,omitempty"`
	Cancelled bool   `json:"cancelled,omitempty"`
}

func (a *App) SessionCreate(w http.ResponseWriter, r *http.Request) {
	locale := middleware.LocaleFromContext(r.Context())
	s, reply := a.Sessions.Open(locale)
	a.json(w, http.StatusCreated, sessionReply{
		SessionID: s.ID,
		State:     string(reply.State),
		Prompt:    reply.Prompt,
	})
}

func (a *App) SessionInput(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	if sessionID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "session_id required")
		return
	}
	var req sessionInputRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Text == "" && req.AssetRef == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "text or asset_ref required")
		return
	}

	in := conversation.Input{Text: req.Text, AssetRef: req.AssetRef}
	if req.AssetRef != "" {
		size, err := a.Blobs.Size(r.Context(), req.AssetRef)
		if err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "unknown asset_ref")
			return
		}
		in.AssetSize = size
	}

	reply, err := a.Sessions.Input(r.Context(), sessionID, in)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			a.error(w, http.StatusNotFound, "not_found", "session not found")
		default:
			a.Logger.Error().Err(err).Str("session_id", sessionID).Msg("http: session input failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to process input")
		}
		return
	}
	a.json(w, http.StatusOK, sessionReply{
		SessionID: sessionID,
		State:     string(reply.State),
		Prompt:    reply.Prompt,
		JobID:     reply.JobID,
		Cancelled: reply.Cancelled,
	})
}

func (a *App) SessionCancel(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	if sessionID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "session_id required")
		return
	}
	if !a.Sessions.Cancel(sessionID) {
		a.error(w, http.StatusNotFound, "not_found", "session not found")
		return
	}
	a.json(w, http.StatusOK, sessionReply{SessionID: sessionID, State: "closed", Cancelled: true})
}

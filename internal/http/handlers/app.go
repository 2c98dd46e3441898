package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"uniqbot/internal/conversation"
	"uniqbot/internal/dispatch"
	"uniqbot/internal/infra"
	"uniqbot/internal/storage"
)

type App struct {
	Sessions *conversation.Manager
	Jobs     *dispatch.Dispatcher
	Blobs    *storage.FileStore
	Config   *infra.Config
	Logger   zerolog.Logger
}

func NewApp(sessions *conversation.Manager, jobs *dispatch.Dispatcher, blobs *storage.FileStore, cfg *infra.Config, logger zerolog.Logger) *App {
	return &App{Sessions: sessions, Jobs: jobs, Blobs: blobs, Config: cfg, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]string{"error": code, "message": message})
}

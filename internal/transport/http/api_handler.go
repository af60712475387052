package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"kora-games/internal/app"
)

// APIHandler serves the read-only JSON endpoints.
type APIHandler struct {
	service *app.GameService
	logger  *slog.Logger
}

func NewAPIHandler(service *app.GameService, logger *slog.Logger) *APIHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIHandler{service: service, logger: logger}
}

// Games lists the available games.
func (h *APIHandler) Games(w http.ResponseWriter, r *http.Request) {
	games, err := h.service.ListGames(r.Context())
	if err != nil {
		h.logger.Error("list games failed", "error", err)
		http.Error(w, "failed to list games", http.StatusInternalServerError)
		return
	}
	writeJSON(w, games)
}

// Progress returns the hub progress of one installation.
func (h *APIHandler) Progress(w http.ResponseWriter, r *http.Request) {
	installationID := r.URL.Query().Get("installationId")
	if installationID == "" {
		http.Error(w, "missing installationId", http.StatusBadRequest)
		return
	}
	p, err := h.service.Progress(r.Context(), installationID)
	if err != nil {
		h.logger.Error("load progress failed", "installation", installationID, "error", err)
		http.Error(w, "failed to load progress", http.StatusInternalServerError)
		return
	}
	writeJSON(w, p)
}

// NewMux wires every route.
func NewMux(service *app.GameService, logger *slog.Logger) *http.ServeMux {
	api := NewAPIHandler(service, logger)
	ws := NewWSHandler(service, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /games", api.Games)
	mux.HandleFunc("GET /progress", api.Progress)
	mux.HandleFunc("/ws", ws.ServeWS)
	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

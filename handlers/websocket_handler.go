package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Dosada05/competition-system/realtime"
	"github.com/Dosada05/competition-system/services"
	"github.com/go-chi/httplog/v2"
	"github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	hub      *realtime.Hub
	upgrader websocket.Upgrader
}

// NewWebSocketHandler accepts upgrades from the listed origins only.
// Requests without an Origin header (non-browser clients) are allowed.
func NewWebSocketHandler(hub *realtime.Hub, allowedOrigins []string) *WebSocketHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
	}
}

// ServeWs godoc
// @Summary Live leaderboard updates of a phase
// @Tags leaderboard
// @Description Websocket stream of LEADERBOARD_UPDATED messages.
// @Param phaseID path int true "Phase ID"
// @Router /ws/phases/{phaseID}/leaderboard [get]
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	phaseID, err := getIDFromURL(r, "phaseID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		httplog.LogEntry(r.Context()).Warn("websocket upgrade failed", slog.Int("phase_id", phaseID), slog.String("error", err.Error()))
		return
	}

	h.hub.Serve(conn, services.PhaseRoom(phaseID))
}

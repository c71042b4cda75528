package routes

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Dosada05/competition-system/handlers"
	"github.com/Dosada05/competition-system/realtime"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()
	router := chi.NewRouter()
	SetupRoutes(router, Config{
		JWTSecret:      "routes-secret",
		AllowedOrigins: []string{"https://app.example"},
		LogLevel:       slog.LevelError,
	}, Handlers{
		Auth:        handlers.NewAuthHandler(nil, "routes-secret"),
		Competition: handlers.NewCompetitionHandler(nil),
		Participant: handlers.NewParticipantHandler(nil),
		Submission:  handlers.NewSubmissionHandler(nil),
		Leaderboard: handlers.NewLeaderboardHandler(nil),
		WebSocket:   handlers.NewWebSocketHandler(realtime.NewHub(slog.Default()), []string{"https://app.example"}),
	})
	return router
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router := newTestRouter(t)

	protected := []struct{ method, path string }{
		{http.MethodGet, "/auth/me"},
		{http.MethodPost, "/competitions/creation/upload"},
		{http.MethodPost, "/competitions/creation"},
		{http.MethodGet, "/competitions/creation/12"},
		{http.MethodPatch, "/competitions/1"},
		{http.MethodDelete, "/competitions/1"},
		{http.MethodPost, "/competitions/1/publish"},
		{http.MethodPost, "/competitions/1/unpublish"},
		{http.MethodPost, "/competitions/1/participate"},
		{http.MethodGet, "/competitions/1/mystatus"},
		{http.MethodGet, "/competitions/1/participants"},
		{http.MethodPut, "/competitions/1/participants/2/status"},
		{http.MethodPost, "/competitions/1/submissions/upload"},
		{http.MethodPost, "/competitions/1/submissions"},
		{http.MethodGet, "/competitions/1/submissions"},
		{http.MethodGet, "/competitions/1/submissions/3"},
		{http.MethodPost, "/competitions/1/submissions/3/leaderboard"},
		{http.MethodDelete, "/competitions/1/submissions/3/leaderboard"},
	}
	for _, rt := range protected {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(rt.method, rt.path, nil))
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestPublicRoutesRejectBadToken(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/competitions", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOpsEndpoints(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "competition_http_requests_total")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/competitions/{competitionID}/participate")
}

func TestCORSPreflight(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/competitions/1/participate", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/ws/phases/1/leaderboard", nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Sec-WebSocket-Version", "13")
	req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
	req.Header.Set("Origin", "https://evil.example")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

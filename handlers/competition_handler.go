package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/Dosada05/competition-system/middleware"
	"github.com/Dosada05/competition-system/services"
	"github.com/go-chi/chi/v5"
)

type CompetitionHandler struct {
	competitionService services.CompetitionService
}

func NewCompetitionHandler(cs services.CompetitionService) *CompetitionHandler {
	return &CompetitionHandler{competitionService: cs}
}

// List godoc
// @Summary List competitions
// @Tags competitions
// @Description Published competitions, or the caller's own with mine=true.
// @Produce json
// @Param search query string false "Title search"
// @Param mine query bool false "Only competitions created by the caller"
// @Param limit query int false "Page size (default 20, max 100)"
// @Param offset query int false "Offset"
// @Success 200 {object} map[string]interface{} "Competitions"
// @Router /competitions [get]
func (h *CompetitionHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := optionalIntQuery(r, "limit")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	offset, err := optionalIntQuery(r, "offset")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	input := services.ListCompetitionsInput{
		Search: r.URL.Query().Get("search"),
		Mine:   r.URL.Query().Get("mine") == "true",
	}
	if limit != nil {
		input.Limit = *limit
	}
	if offset != nil {
		input.Offset = *offset
	}

	competitions, err := h.competitionService.List(r.Context(), middleware.OptionalUserID(r.Context()), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"competitions": competitions}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Get godoc
// @Summary Get a competition with its phases
// @Tags competitions
// @Produce json
// @Param competitionID path int true "Competition ID"
// @Success 200 {object} models.Competition
// @Failure 404 {object} map[string]string "Not found or not visible"
// @Router /competitions/{competitionID} [get]
func (h *CompetitionHandler) Get(w http.ResponseWriter, r *http.Request) {
	competitionID, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	competition, err := h.competitionService.Get(r.Context(), middleware.OptionalUserID(r.Context()), competitionID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, competition, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListPhases godoc
// @Summary List the phases of a competition
// @Tags competitions
// @Produce json
// @Param competitionID path int true "Competition ID"
// @Success 200 {object} map[string]interface{} "Phases"
// @Failure 404 {object} map[string]string "Not found or not visible"
// @Router /competitions/{competitionID}/phases [get]
func (h *CompetitionHandler) ListPhases(w http.ResponseWriter, r *http.Request) {
	competitionID, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	phases, err := h.competitionService.ListPhases(r.Context(), middleware.OptionalUserID(r.Context()), competitionID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"phases": phases}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type updateInfoRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// UpdateInfo godoc
// @Summary Edit title and description
// @Tags competitions
// @Accept json
// @Produce json
// @Param competitionID path int true "Competition ID"
// @Param body body updateInfoRequest true "New values"
// @Success 200 {object} models.Competition
// @Failure 403 {object} map[string]string "Not an administrator"
// @Security BearerAuth
// @Router /competitions/{competitionID} [patch]
func (h *CompetitionHandler) UpdateInfo(w http.ResponseWriter, r *http.Request) {
	competitionID, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	var input updateInfoRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	competition, err := h.competitionService.UpdateInfo(r.Context(), currentUserID, competitionID, input.Title, input.Description)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, competition, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Publish godoc
// @Summary Publish a competition
// @Tags competitions
// @Param competitionID path int true "Competition ID"
// @Success 204
// @Failure 400 {object} map[string]string "A phase has no reference data"
// @Failure 403 {object} map[string]string "Not an administrator"
// @Security BearerAuth
// @Router /competitions/{competitionID}/publish [post]
func (h *CompetitionHandler) Publish(w http.ResponseWriter, r *http.Request) {
	h.administer(w, r, h.competitionService.Publish)
}

// Unpublish godoc
// @Summary Unpublish a competition
// @Tags competitions
// @Param competitionID path int true "Competition ID"
// @Success 204
// @Failure 403 {object} map[string]string "Not the creator"
// @Security BearerAuth
// @Router /competitions/{competitionID}/unpublish [post]
func (h *CompetitionHandler) Unpublish(w http.ResponseWriter, r *http.Request) {
	h.administer(w, r, h.competitionService.Unpublish)
}

// Delete godoc
// @Summary Delete a competition
// @Tags competitions
// @Param competitionID path int true "Competition ID"
// @Success 204
// @Failure 403 {object} map[string]string "Not the creator"
// @Security BearerAuth
// @Router /competitions/{competitionID} [delete]
func (h *CompetitionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.administer(w, r, h.competitionService.Delete)
}

func (h *CompetitionHandler) administer(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, actorID, id int) error) {
	competitionID, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	if err := action(r.Context(), currentUserID, competitionID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateUploadGrant godoc
// @Summary Presigned URL for uploading a competition bundle
// @Tags competitions
// @Produce json
// @Success 201 {object} storage.UploadGrant
// @Security BearerAuth
// @Router /competitions/creation/upload [post]
func (h *CompetitionHandler) CreateUploadGrant(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	grant, err := h.competitionService.CreateBundleUploadGrant(r.Context(), currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, grant, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type startCreationRequest struct {
	ID string `json:"id"`
}

// StartCreation godoc
// @Summary Create a competition from an uploaded bundle
// @Tags competitions
// @Description Queues the creation job and returns a token for polling its status.
// @Accept json
// @Produce json
// @Param body body startCreationRequest true "Upload id returned by the upload grant"
// @Success 202 {object} map[string]string "Token"
// @Failure 400 {object} map[string]string "Missing or unknown upload id"
// @Security BearerAuth
// @Router /competitions/creation [post]
func (h *CompetitionHandler) StartCreation(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	var input startCreationRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	token, err := h.competitionService.StartCreation(r.Context(), currentUserID, input.ID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusAccepted, jsonResponse{"token": token}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CreationStatus godoc
// @Summary Status of a competition creation job
// @Tags competitions
// @Produce json
// @Param token path string true "Creation token"
// @Success 200 {object} services.CreationStatus
// @Failure 404 {object} map[string]string "Unknown token"
// @Security BearerAuth
// @Router /competitions/creation/{token} [get]
func (h *CompetitionHandler) CreationStatus(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	token := chi.URLParam(r, "token")
	if token == "" {
		badRequestResponse(w, r, errors.New("missing token"))
		return
	}

	status, err := h.competitionService.CreationStatus(r.Context(), currentUserID, token)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, status, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

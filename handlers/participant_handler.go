package handlers

import (
	"net/http"

	"github.com/Dosada05/competition-system/middleware"
	"github.com/Dosada05/competition-system/models"
	"github.com/Dosada05/competition-system/services"
)

type ParticipantHandler struct {
	participantService services.ParticipantService
}

func NewParticipantHandler(ps services.ParticipantService) *ParticipantHandler {
	return &ParticipantHandler{
		participantService: ps,
	}
}

// Participate godoc
// @Summary Join a competition
// @Tags participants
// @Description Creates a participation request. Competitions without registration approve it immediately.
// @Produce json
// @Param competitionID path int true "Competition ID"
// @Success 201 {object} services.ParticipationResult "Request created"
// @Success 200 {object} services.ParticipationResult "Already a participant"
// @Failure 401 {object} map[string]string "Unauthenticated"
// @Failure 404 {object} map[string]string "Competition not found"
// @Security BearerAuth
// @Router /competitions/{competitionID}/participate [post]
func (h *ParticipantHandler) Participate(w http.ResponseWriter, r *http.Request) {
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

	result, err := h.participantService.RequestParticipation(r.Context(), currentUserID, competitionID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	if err := writeJSON(w, status, result, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// MyStatus godoc
// @Summary Caller's participation status
// @Tags participants
// @Produce json
// @Param competitionID path int true "Competition ID"
// @Success 200 {object} services.ParticipantStatusView
// @Failure 404 {object} map[string]string "Not a participant"
// @Security BearerAuth
// @Router /competitions/{competitionID}/mystatus [get]
func (h *ParticipantHandler) MyStatus(w http.ResponseWriter, r *http.Request) {
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

	view, err := h.participantService.GetStatus(r.Context(), currentUserID, competitionID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, view, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type setStatusRequest struct {
	Status models.ParticipantStatus `json:"status"`
	Reason *string                  `json:"reason"`
}

// SetStatus godoc
// @Summary Approve or deny a participant
// @Tags participants
// @Accept json
// @Produce json
// @Param competitionID path int true "Competition ID"
// @Param participantID path int true "Participant ID"
// @Param body body setStatusRequest true "New status (pending, approved, denied) and optional reason"
// @Success 200 {object} map[string]interface{} "Updated participant"
// @Failure 400 {object} map[string]string "Unknown status"
// @Failure 403 {object} map[string]string "Not an administrator of the competition"
// @Failure 404 {object} map[string]string "Participant not found"
// @Security BearerAuth
// @Router /competitions/{competitionID}/participants/{participantID}/status [put]
func (h *ParticipantHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	competitionID, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	participantID, err := getIDFromURL(r, "participantID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input setStatusRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	participant, err := h.participantService.SetStatus(r.Context(), currentUserID, competitionID, participantID, input.Status, input.Reason)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"participant": participant}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// List godoc
// @Summary List participants of a competition
// @Tags participants
// @Produce json
// @Param competitionID path int true "Competition ID"
// @Param status query string false "Filter by status"
// @Success 200 {object} map[string]interface{} "Participants"
// @Failure 403 {object} map[string]string "Not an administrator of the competition"
// @Security BearerAuth
// @Router /competitions/{competitionID}/participants [get]
func (h *ParticipantHandler) List(w http.ResponseWriter, r *http.Request) {
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

	var statusFilter *models.ParticipantStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := models.ParticipantStatus(raw)
		statusFilter = &status
	}

	participants, err := h.participantService.ListParticipants(r.Context(), currentUserID, competitionID, statusFilter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"participants": participants}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

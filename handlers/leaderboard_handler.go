package handlers

import (
	"errors"
	"net/http"

	"github.com/Dosada05/competition-system/middleware"
	"github.com/Dosada05/competition-system/services"
)

type LeaderboardHandler struct {
	leaderboardService services.LeaderboardService
}

func NewLeaderboardHandler(ls services.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboardService: ls}
}

// Add godoc
// @Summary Put a submission on the leaderboard
// @Tags leaderboard
// @Description Replaces the caller's previous entry in the same phase. Re-adding the current entry is a no-op.
// @Produce json
// @Param competitionID path int true "Competition ID"
// @Param submissionID path int true "Submission ID"
// @Success 201 {object} services.AddResult "Entry created"
// @Success 200 {object} services.AddResult "Already on the leaderboard"
// @Failure 403 {object} map[string]string "Not the owner, not approved or phase closed"
// @Failure 404 {object} map[string]string "Submission not found"
// @Security BearerAuth
// @Router /competitions/{competitionID}/submissions/{submissionID}/leaderboard [post]
func (h *LeaderboardHandler) Add(w http.ResponseWriter, r *http.Request) {
	competitionID, submissionID, userID, ok := h.entryParams(w, r)
	if !ok {
		return
	}

	result, err := h.leaderboardService.AddToLeaderboard(r.Context(), userID, competitionID, submissionID)
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

// Remove godoc
// @Summary Take a submission off the leaderboard
// @Tags leaderboard
// @Produce json
// @Param competitionID path int true "Competition ID"
// @Param submissionID path int true "Submission ID"
// @Success 200 {object} map[string]int "Removed entry id"
// @Failure 403 {object} map[string]string "Not on the leaderboard or phase closed"
// @Security BearerAuth
// @Router /competitions/{competitionID}/submissions/{submissionID}/leaderboard [delete]
func (h *LeaderboardHandler) Remove(w http.ResponseWriter, r *http.Request) {
	competitionID, submissionID, userID, ok := h.entryParams(w, r)
	if !ok {
		return
	}

	entryID, err := h.leaderboardService.RemoveFromLeaderboard(r.Context(), userID, competitionID, submissionID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"removed_entry_id": entryID}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *LeaderboardHandler) entryParams(w http.ResponseWriter, r *http.Request) (int, int, int, bool) {
	competitionID, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return 0, 0, 0, false
	}
	submissionID, err := getIDFromURL(r, "submissionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return 0, 0, 0, false
	}
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return 0, 0, 0, false
	}
	return competitionID, submissionID, userID, true
}

// Scores godoc
// @Summary Ranked leaderboard of a phase
// @Tags leaderboard
// @Description Score groups with ranked rows.
// @Produce json
// @Param competitionID path int true "Competition ID"
// @Param phaseNumber path int true "Phase number"
// @Success 200 {object} map[string]interface{} "Groups"
// @Failure 403 {object} map[string]string "Blind phase"
// @Failure 404 {object} map[string]string "Competition or phase not found"
// @Router /competitions/{competitionID}/phases/{phaseNumber}/leaderboard [get]
func (h *LeaderboardHandler) Scores(w http.ResponseWriter, r *http.Request) {
	competitionID, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	phaseNumber, err := getIDFromURL(r, "phaseNumber")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	groups, err := h.leaderboardService.ComputeScores(r.Context(), competitionID, phaseNumber)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"groups": groups}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Entries godoc
// @Summary Raw leaderboard entries of a phase
// @Tags leaderboard
// @Produce json
// @Param competitionID path int true "Competition ID"
// @Param phase query int true "Phase ID"
// @Success 200 {object} map[string]interface{} "Entries"
// @Router /competitions/{competitionID}/leaderboard/entries [get]
func (h *LeaderboardHandler) Entries(w http.ResponseWriter, r *http.Request) {
	competitionID, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	phaseID, err := optionalIntQuery(r, "phase")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if phaseID == nil || *phaseID == 0 {
		badRequestResponse(w, r, errors.New("phase query parameter is required"))
		return
	}

	entries, err := h.leaderboardService.ListEntries(r.Context(), competitionID, *phaseID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"entries": entries}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

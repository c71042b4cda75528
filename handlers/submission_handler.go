package handlers

import (
	"net/http"

	"github.com/Dosada05/competition-system/middleware"
	"github.com/Dosada05/competition-system/services"
)

type SubmissionHandler struct {
	submissionService services.SubmissionService
}

func NewSubmissionHandler(ss services.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{submissionService: ss}
}

// CreateUploadGrant godoc
// @Summary Presigned URL for uploading a submission file
// @Tags submissions
// @Produce json
// @Param competitionID path int true "Competition ID"
// @Success 201 {object} storage.UploadGrant
// @Failure 403 {object} map[string]string "Not an approved participant"
// @Security BearerAuth
// @Router /competitions/{competitionID}/submissions/upload [post]
func (h *SubmissionHandler) CreateUploadGrant(w http.ResponseWriter, r *http.Request) {
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

	grant, err := h.submissionService.CreateUploadGrant(r.Context(), currentUserID, competitionID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, grant, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Submit godoc
// @Summary Submit an uploaded file for evaluation
// @Tags submissions
// @Description Records the submission in the open phase and queues its evaluation.
// @Accept json
// @Produce json
// @Param competitionID path int true "Competition ID"
// @Param body body services.SubmitInput true "Uploaded blob id, optional phase and metadata"
// @Success 201 {object} models.Submission
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 403 {object} map[string]string "Not approved, phase closed or migration in progress"
// @Security BearerAuth
// @Router /competitions/{competitionID}/submissions [post]
func (h *SubmissionHandler) Submit(w http.ResponseWriter, r *http.Request) {
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

	var input services.SubmitInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	submission, err := h.submissionService.Submit(r.Context(), currentUserID, competitionID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, submission, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListMine godoc
// @Summary Caller's submissions
// @Tags submissions
// @Produce json
// @Param competitionID path int true "Competition ID"
// @Param phase query int false "Restrict to a phase id"
// @Success 200 {object} map[string]interface{} "Submissions"
// @Security BearerAuth
// @Router /competitions/{competitionID}/submissions [get]
func (h *SubmissionHandler) ListMine(w http.ResponseWriter, r *http.Request) {
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
	phaseID, err := optionalIntQuery(r, "phase")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	submissions, err := h.submissionService.ListMySubmissions(r.Context(), currentUserID, competitionID, phaseID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"submissions": submissions}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Get godoc
// @Summary Get one of the caller's submissions
// @Tags submissions
// @Produce json
// @Param competitionID path int true "Competition ID"
// @Param submissionID path int true "Submission ID"
// @Success 200 {object} models.Submission
// @Failure 404 {object} map[string]string "Not found"
// @Security BearerAuth
// @Router /competitions/{competitionID}/submissions/{submissionID} [get]
func (h *SubmissionHandler) Get(w http.ResponseWriter, r *http.Request) {
	competitionID, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	submissionID, err := getIDFromURL(r, "submissionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	submission, err := h.submissionService.GetSubmission(r.Context(), currentUserID, competitionID, submissionID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, submission, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

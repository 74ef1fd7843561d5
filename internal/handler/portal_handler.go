package handler

import (
	"errors"
	"net/http"

	"github.com/edustack/assess-backend/internal/middleware"
	"github.com/edustack/assess-backend/internal/model"
	"github.com/edustack/assess-backend/internal/response"
	"github.com/edustack/assess-backend/internal/service"
	"github.com/edustack/assess-backend/internal/session"
	"github.com/edustack/assess-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PortalHandler handles student-facing endpoints: the assessment catalog
// and the timed attempt lifecycle.
type PortalHandler struct {
	catalogService *service.CatalogService
	sessionService *service.SessionService
}

// NewPortalHandler creates a new PortalHandler.
func NewPortalHandler(
	catalogService *service.CatalogService,
	sessionService *service.SessionService,
) *PortalHandler {
	return &PortalHandler{
		catalogService: catalogService,
		sessionService: sessionService,
	}
}

// Catalog godoc
// GET /api/v1/student/assessments?family=pre_assessment|post_test
// Returns active live assessments, optionally filtered by family.
func (h *PortalHandler) Catalog(c *gin.Context) {
	var family *model.Family
	if raw := c.Query("family"); raw != "" {
		f := model.Family(raw)
		if f != model.FamilyPreAssessment && f != model.FamilyPostTest {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
			return
		}
		family = &f
	}

	entries, err := h.catalogService.ListActive(c.Request.Context(), family)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"assessments": entries})
}

// GetPaper godoc
// GET /api/v1/student/assessments/:assessment_id/paper
// Returns the taker-facing question payload, correct answers withheld.
func (h *PortalHandler) GetPaper(c *gin.Context) {
	assessmentID, err := uuid.Parse(c.Param("assessment_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	payload, err := h.catalogService.GetTakerPayload(c.Request.Context(), assessmentID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAssessmentNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrNotAvailable):
			response.Fail(c, http.StatusConflict, response.ErrAssessmentNotAvailable)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, payload)
}

// ActiveAttempt godoc
// GET /api/v1/student/assessments/:assessment_id/attempt
// Returns the caller's open attempt on an assessment so a reloaded client
// can resume it instead of failing on a duplicate start.
func (h *PortalHandler) ActiveAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	assessmentID, err := uuid.Parse(c.Param("assessment_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	state, err := h.sessionService.ActiveAttempt(claims.UserID, assessmentID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, state)
}

// StartAttempt godoc
// POST /api/v1/student/assessments/:assessment_id/attempts
// Opens a timed attempt. The deadline is fixed at this moment and never
// extended.
func (h *PortalHandler) StartAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	assessmentID, err := uuid.Parse(c.Param("assessment_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	state, err := h.sessionService.Start(c.Request.Context(), claims.UserID, assessmentID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAssessmentNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrNotAvailable):
			response.Fail(c, http.StatusConflict, response.ErrAssessmentNotAvailable)
		case errors.Is(err, session.ErrAttemptActive):
			response.Fail(c, http.StatusConflict, response.ErrAttemptActive)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"attempt": state})
}

// GetAttempt godoc
// GET /api/v1/student/attempts/:attempt_id
// Returns the attempt snapshot: remaining time and recorded answers.
// Covers page reloads.
func (h *PortalHandler) GetAttempt(c *gin.Context) {
	attemptID, ok := h.resolveAttempt(c)
	if !ok {
		return
	}

	state, err := h.sessionService.State(attemptID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": state})
}

// RecordAnswer godoc
// PUT /api/v1/student/attempts/:attempt_id/answers/:question_id
// Saves one answer, last write wins. Rejected once the deadline passes.
func (h *PortalHandler) RecordAnswer(c *gin.Context) {
	attemptID, ok := h.resolveAttempt(c)
	if !ok {
		return
	}

	questionID, err := uuid.Parse(c.Param("question_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req struct {
		Answer string `json:"answer" binding:"required,max=10000"`
	}
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessionService.RecordAnswer(c.Request.Context(), attemptID, questionID, req.Answer); err != nil {
		switch {
		case errors.Is(err, session.ErrAttemptExpired):
			response.Fail(c, http.StatusConflict, response.ErrAttemptExpired)
		case errors.Is(err, session.ErrUnknownQuestion):
			response.Fail(c, http.StatusBadRequest, response.ErrUnknownQuestion)
		case errors.Is(err, session.ErrAttemptNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "saved"})
}

// SubmitAttempt godoc
// POST /api/v1/student/attempts/:attempt_id/submit
// Finalizes the attempt and returns its graded result. Idempotent: a
// repeat submit returns the same result.
func (h *PortalHandler) SubmitAttempt(c *gin.Context) {
	attemptID, ok := h.resolveAttempt(c)
	if !ok {
		return
	}

	result, err := h.sessionService.Submit(c.Request.Context(), attemptID)
	if err != nil {
		if errors.Is(err, session.ErrAttemptNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// History godoc
// GET /api/v1/student/results
// Returns the student's finalized results, newest first.
func (h *PortalHandler) History(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	results, err := h.sessionService.History(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	if results == nil {
		results = []model.Result{}
	}

	response.Success(c, http.StatusOK, gin.H{"results": results})
}

// resolveAttempt parses the attempt id and checks the attempt belongs to
// the caller. Prevents one student driving another's attempt.
func (h *PortalHandler) resolveAttempt(c *gin.Context) (uuid.UUID, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return uuid.Nil, false
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}

	owner, err := h.sessionService.Owner(attemptID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return uuid.Nil, false
	}
	if owner != claims.UserID {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		return uuid.Nil, false
	}

	return attemptID, true
}

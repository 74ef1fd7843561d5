package handler

import (
	"errors"
	"net/http"

	"github.com/edustack/assess-backend/internal/middleware"
	"github.com/edustack/assess-backend/internal/model"
	"github.com/edustack/assess-backend/internal/response"
	"github.com/edustack/assess-backend/internal/service"
	"github.com/edustack/assess-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuthoringHandler handles tutor-facing endpoints: submitting assessment
// definitions for review and tracking their review state.
type AuthoringHandler struct {
	promotionService *service.PromotionService
}

// NewAuthoringHandler creates a new AuthoringHandler.
func NewAuthoringHandler(promotionService *service.PromotionService) *AuthoringHandler {
	return &AuthoringHandler{promotionService: promotionService}
}

// SubmitForReview godoc
// POST /api/v1/tutor/assessments
// Creates a pending staging assessment with its complete question bank.
func (h *AuthoringHandler) SubmitForReview(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.SubmitAssessmentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	staging, questions, err := h.promotionService.SubmitForReview(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		var vErr *service.ValidationError
		switch {
		case errors.As(err, &vErr):
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, vErr.Fields)
		case errors.Is(err, service.ErrSubjectNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"assessment": staging,
		"questions":  questions,
	})
}

// ListSubjects godoc
// GET /api/v1/tutor/subjects
// Returns the subjects assessments can be authored against.
func (h *AuthoringHandler) ListSubjects(c *gin.Context) {
	subjects, err := h.promotionService.ListSubjects(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	if subjects == nil {
		subjects = []model.Subject{}
	}

	response.Success(c, http.StatusOK, gin.H{"subjects": subjects})
}

// ListMine godoc
// GET /api/v1/tutor/assessments
// Returns the tutor's own staging assessments with their review state.
func (h *AuthoringHandler) ListMine(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	assessments, err := h.promotionService.ListByAuthor(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	if assessments == nil {
		assessments = []model.StagingAssessment{}
	}

	response.Success(c, http.StatusOK, gin.H{"assessments": assessments})
}

// GetDetail godoc
// GET /api/v1/tutor/assessments/:staging_id
// Returns one of the tutor's staging assessments with its questions.
func (h *AuthoringHandler) GetDetail(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	stagingID, err := uuid.Parse(c.Param("staging_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	staging, questions, err := h.promotionService.GetWithQuestions(c.Request.Context(), stagingID)
	if err != nil {
		if errors.Is(err, service.ErrStagingNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	// Tutors only see their own submissions.
	if staging.AuthorID != claims.UserID {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"assessment": staging,
		"questions":  questions,
	})
}

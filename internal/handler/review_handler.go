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

// ReviewHandler handles faculty-facing endpoints: the review queue,
// approve/reject decisions, archiving, and result oversight.
type ReviewHandler struct {
	promotionService *service.PromotionService
	catalogService   *service.CatalogService
	sessionService   *service.SessionService
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(
	promotionService *service.PromotionService,
	catalogService *service.CatalogService,
	sessionService *service.SessionService,
) *ReviewHandler {
	return &ReviewHandler{
		promotionService: promotionService,
		catalogService:   catalogService,
		sessionService:   sessionService,
	}
}

// ListPending godoc
// GET /api/v1/faculty/review
// Returns staging assessments awaiting a decision.
func (h *ReviewHandler) ListPending(c *gin.Context) {
	assessments, err := h.promotionService.ListPending(c.Request.Context())
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
// GET /api/v1/faculty/review/:staging_id
// Returns one staging assessment with its full question bank for review.
func (h *ReviewHandler) GetDetail(c *gin.Context) {
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

	response.Success(c, http.StatusOK, gin.H{
		"assessment": staging,
		"questions":  questions,
	})
}

// Review godoc
// POST /api/v1/faculty/review/:staging_id
// Applies an approve or reject decision. Approval promotes the definition
// into the live catalog atomically; repeating an approval returns the
// existing live id.
func (h *ReviewHandler) Review(c *gin.Context) {
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

	var req model.ReviewRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	liveID, err := h.promotionService.Review(c.Request.Context(), stagingID, claims.UserID, service.Decision(req.Decision), req.Reason)
	if err != nil {
		var vErr *service.ValidationError
		switch {
		case errors.As(err, &vErr):
			if _, ok := vErr.Fields["reason"]; ok {
				response.FailWithFields(c, http.StatusBadRequest, response.ErrReasonRequired, vErr.Fields)
				return
			}
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, vErr.Fields)
		case errors.Is(err, service.ErrStagingNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	body := gin.H{"decision": req.Decision}
	if liveID != nil {
		body["live_id"] = liveID
	}
	response.Success(c, http.StatusOK, body)
}

// Archive godoc
// POST /api/v1/faculty/assessments/:assessment_id/archive
// Retires a live assessment from the taker catalog.
func (h *ReviewHandler) Archive(c *gin.Context) {
	assessmentID, err := uuid.Parse(c.Param("assessment_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.catalogService.Archive(c.Request.Context(), assessmentID); err != nil {
		if errors.Is(err, service.ErrAssessmentNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "archived"})
}

// Leaderboard godoc
// GET /api/v1/faculty/assessments/:assessment_id/results
// Returns an assessment's results ordered by percentage.
func (h *ReviewHandler) Leaderboard(c *gin.Context) {
	assessmentID, err := uuid.Parse(c.Param("assessment_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	results, err := h.sessionService.Leaderboard(c.Request.Context(), assessmentID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	if results == nil {
		results = []model.Result{}
	}

	response.Success(c, http.StatusOK, gin.H{"results": results})
}

// Stats godoc
// GET /api/v1/faculty/assessments/:assessment_id/stats
// Returns aggregate figures for one assessment.
func (h *ReviewHandler) Stats(c *gin.Context) {
	assessmentID, err := uuid.Parse(c.Param("assessment_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	stats, err := h.sessionService.Stats(c.Request.Context(), assessmentID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"stats": stats})
}

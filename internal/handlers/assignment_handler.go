package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
	"github.com/SAP-F-2025/evaluation-service/internal/services"
	"github.com/SAP-F-2025/evaluation-service/internal/utils"
	"github.com/SAP-F-2025/evaluation-service/internal/validator"
)

type AssignmentHandler struct {
	BaseHandler
	distributionService services.DistributionService
	attemptService      services.AttemptService
	validator           *validator.Validator
}

func NewAssignmentHandler(
	distributionService services.DistributionService,
	attemptService services.AttemptService,
	validator *validator.Validator,
	logger utils.Logger,
) *AssignmentHandler {
	return &AssignmentHandler{
		BaseHandler:         NewBaseHandler(logger),
		distributionService: distributionService,
		attemptService:      attemptService,
		validator:           validator,
	}
}

// Distribute creates assignments for the requested student set
// @Summary Distribute evaluation
// @Description Creates one assignment per targeted student; existing assignments are skipped
// @Tags assignments
// @Accept json
// @Produce json
// @Param distribution body services.DistributeRequest true "Distribution request"
// @Success 200 {object} SuccessResponse{data=services.DistributionResult}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /assignments [post]
func (h *AssignmentHandler) Distribute(c *gin.Context) {
	h.LogRequest(c, "Distributing evaluation")

	var req services.DistributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	result, err := h.distributionService.Assign(c.Request.Context(), req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetAssignment opens or resumes the student's attempt for an assignment
// @Summary Get assignment
// @Description Opens a new attempt when allowed, resumes the running one, or returns the read-only result
// @Tags assignments
// @Accept json
// @Produce json
// @Param id path uint true "Assignment ID"
// @Success 200 {object} SuccessResponse{data=services.AttemptView}
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /assignments/{id} [get]
func (h *AssignmentHandler) GetAssignment(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	h.LogRequest(c, "Opening assignment attempt", "assignment_id", id)

	studentID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return
	}

	view, err := h.attemptService.OpenAttempt(c.Request.Context(), id, studentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// SubmitAnswers submits the answer payload for the running attempt
// @Summary Submit answers
// @Description Validates and grades the submitted answers, closing the attempt
// @Tags assignments
// @Accept json
// @Produce json
// @Param id path uint true "Assignment ID"
// @Param answers body services.SubmitRequest true "Answer payload"
// @Success 200 {object} SuccessResponse{data=services.ScoreResult}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /assignments/{id}/answers [post]
func (h *AssignmentHandler) SubmitAnswers(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	h.LogRequest(c, "Submitting answers", "assignment_id", id)

	var req services.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	studentID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return
	}

	result, err := h.attemptService.Submit(c.Request.Context(), id, studentID, req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// SaveProgress records answers without closing the attempt
// @Summary Save answer progress
// @Description Upserts the given answers into the running attempt
// @Tags assignments
// @Accept json
// @Produce json
// @Param id path uint true "Assignment ID"
// @Param answers body services.SubmitRequest true "Answer payload"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /assignments/{id}/answers [put]
func (h *AssignmentHandler) SaveProgress(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	h.LogRequest(c, "Saving answer progress", "assignment_id", id)

	var req services.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	studentID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return
	}

	if err := h.attemptService.SaveProgress(c.Request.Context(), id, studentID, req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Progress saved",
	})
}

// ListAttempts lists the student's attempt history for an assignment
// @Summary List attempts
// @Description Lists attempts for an assignment, newest configuration first
// @Tags assignments
// @Accept json
// @Produce json
// @Param id path uint true "Assignment ID"
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(10)
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /assignments/{id}/attempts [get]
func (h *AssignmentHandler) ListAttempts(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	h.LogRequest(c, "Listing attempts", "assignment_id", id)

	studentID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return
	}

	filters := h.parseAttemptFilters(c)
	attempts, total, err := h.attemptService.ListAttempts(c.Request.Context(), id, studentID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	page := (filters.Offset / max(filters.Limit, 1)) + 1
	totalPages := (int(total) + filters.Limit - 1) / max(filters.Limit, 1)
	c.JSON(http.StatusOK, gin.H{
		"data":        attempts,
		"total":       total,
		"page":        page,
		"size":        filters.Limit,
		"total_pages": totalPages,
	})
}

func (h *AssignmentHandler) parseAttemptFilters(c *gin.Context) repositories.AttemptFilters {
	page := parseIntQuery(c, "page", 1)
	size := parseIntQuery(c, "size", 10)

	filters := repositories.AttemptFilters{
		Limit:  size,
		Offset: (page - 1) * size,
	}

	if submitted := strings.TrimSpace(c.Query("submitted")); submitted == "true" {
		filters.SubmittedOnly = true
	}

	return filters
}

func (h *AssignmentHandler) handleServiceError(c *gin.Context, err error) {
	// Handle custom error types first
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	var submissionError *services.SubmissionError
	if errors.As(err, &submissionError) {
		payload := ErrorResponse{
			Message: submissionError.Message,
			Reason:  submissionError.Reason,
		}
		if len(submissionError.QuestionIDs) > 0 {
			payload.Details = map[string]interface{}{
				"question_ids": submissionError.QuestionIDs,
			}
		}
		c.JSON(http.StatusBadRequest, payload)
		return
	}

	var businessRuleError *services.BusinessRuleError
	if errors.As(err, &businessRuleError) {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: businessRuleError.Message,
			Details: map[string]interface{}{
				"rule": businessRuleError.Rule,
			},
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrAssignmentNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Assignment not found",
		})
	case errors.Is(err, services.ErrEvaluationNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Evaluation not found",
		})
	case errors.Is(err, services.ErrAttemptNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Attempt not found",
		})
	case errors.Is(err, services.ErrNotAssignmentOwner):
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Access denied to assignment",
		})
	case errors.Is(err, services.ErrAttemptClosed):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Attempt is closed",
			Reason:  services.ReasonAttemptClosed,
		})
	case errors.Is(err, services.ErrAttemptLimitExceeded):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Maximum attempts exceeded",
		})
	case errors.Is(err, services.ErrEvaluationWindowClosed):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Evaluation window is closed",
		})
	case errors.Is(err, services.ErrEvaluationInactive):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Evaluation is not active",
		})
	case errors.Is(err, services.ErrLockContention):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Message: "Assignment is busy, retry shortly",
		})
	default:
		h.LogError(c, err, "Unexpected service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}

package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
	"github.com/SAP-F-2025/evaluation-service/internal/services"
	"github.com/SAP-F-2025/evaluation-service/internal/utils"
)

type EvaluationHandler struct {
	BaseHandler
	reportingService services.ReportingService
}

func NewEvaluationHandler(reportingService services.ReportingService, logger utils.Logger) *EvaluationHandler {
	return &EvaluationHandler{
		BaseHandler:      NewBaseHandler(logger),
		reportingService: reportingService,
	}
}

// ListAssignments lists assignments for an evaluation
// @Summary List evaluation assignments
// @Description Lists assignments for an evaluation with optional state filter
// @Tags evaluations
// @Accept json
// @Produce json
// @Param id path uint true "Evaluation ID"
// @Param state query string false "Assignment state"
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(10)
// @Success 200 {object} models.PaginatedResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /evaluations/{id}/assignments [get]
func (h *EvaluationHandler) ListAssignments(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	h.LogRequest(c, "Listing evaluation assignments", "evaluation_id", id)

	filters := h.parseAssignmentFilters(c)
	assignments, total, err := h.reportingService.ListAssignments(c.Request.Context(), id, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	page := (filters.Offset / max(filters.Limit, 1)) + 1
	totalPages := (int(total) + filters.Limit - 1) / max(filters.Limit, 1)
	c.JSON(http.StatusOK, models.PaginatedResponse{
		Data:       assignments,
		Total:      total,
		Page:       page,
		PageSize:   filters.Limit,
		TotalPages: totalPages,
	})
}

// GetStats returns aggregate assignment outcomes for an evaluation
// @Summary Get evaluation stats
// @Description Returns assignment state counts and score aggregates
// @Tags evaluations
// @Accept json
// @Produce json
// @Param id path uint true "Evaluation ID"
// @Success 200 {object} models.EvaluationStats
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /evaluations/{id}/stats [get]
func (h *EvaluationHandler) GetStats(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	h.LogRequest(c, "Getting evaluation stats", "evaluation_id", id)

	stats, err := h.reportingService.GetStats(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ExportResults downloads evaluation results as an XLSX workbook
// @Summary Export evaluation results
// @Description Streams the per-student result sheet as an XLSX file
// @Tags evaluations
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path uint true "Evaluation ID"
// @Success 200 {file} binary
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /evaluations/{id}/results/export [get]
func (h *EvaluationHandler) ExportResults(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	h.LogRequest(c, "Exporting evaluation results", "evaluation_id", id)

	workbook, err := h.reportingService.ExportResults(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("evaluation-%d-results.xlsx", id)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", workbook)
}

func (h *EvaluationHandler) parseAssignmentFilters(c *gin.Context) repositories.AssignmentFilters {
	page := parseIntQuery(c, "page", 1)
	size := parseIntQuery(c, "size", 10)

	filters := repositories.AssignmentFilters{
		Limit:  size,
		Offset: (page - 1) * size,
	}

	if state := strings.TrimSpace(c.Query("state")); state != "" {
		assignmentState := models.AssignmentState(state)
		filters.State = &assignmentState
	}

	if studentID := strings.TrimSpace(c.Query("student_id")); studentID != "" {
		filters.StudentID = &studentID
	}

	if sortBy := strings.TrimSpace(c.Query("sort_by")); sortBy != "" {
		filters.SortBy = sortBy
	}
	if sortOrder := strings.TrimSpace(c.Query("sort_order")); sortOrder != "" {
		filters.SortOrder = sortOrder
	}

	return filters
}

func (h *EvaluationHandler) handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrEvaluationNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Evaluation not found",
		})
	default:
		h.LogError(c, err, "Unexpected service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}

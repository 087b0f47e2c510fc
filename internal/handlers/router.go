package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/evaluation-service/internal/config"
	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/services"
	"github.com/SAP-F-2025/evaluation-service/internal/utils"
	"github.com/SAP-F-2025/evaluation-service/internal/validator"
)

type HandlerManager struct {
	assignmentHandler *AssignmentHandler
	evaluationHandler *EvaluationHandler
	authMiddleware    *CasdoorAuthMiddleware
	serviceManager    services.ServiceManager
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
	casdoorConfig config.CasdoorConfig,
) *HandlerManager {
	return &HandlerManager{
		assignmentHandler: NewAssignmentHandler(serviceManager.Distribution(), serviceManager.Attempt(), validator, logger),
		evaluationHandler: NewEvaluationHandler(serviceManager.Reporting(), logger),
		authMiddleware:    NewCasdoorAuthMiddleware(casdoorConfig),
		serviceManager:    serviceManager,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	// API v1 routes with authentication
	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())
	{
		// Assignment routes
		assignments := v1.Group("/assignments")
		{
			// Distribution - Teachers and Admins only
			assignments.POST("", hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher, models.RoleAdmin), hm.assignmentHandler.Distribute)

			// Student-facing attempt lifecycle
			assignments.GET("/:id", hm.assignmentHandler.GetAssignment)
			assignments.POST("/:id/answers", hm.assignmentHandler.SubmitAnswers)
			assignments.PUT("/:id/answers", hm.assignmentHandler.SaveProgress)
			assignments.GET("/:id/attempts", hm.assignmentHandler.ListAttempts)
		}

		// Evaluation reporting routes - Teachers and Admins only
		evaluations := v1.Group("/evaluations")
		evaluations.Use(hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher, models.RoleAdmin))
		{
			evaluations.GET("/:id/assignments", hm.evaluationHandler.ListAssignments)
			evaluations.GET("/:id/stats", hm.evaluationHandler.GetStats)
			evaluations.GET("/:id/results/export", hm.evaluationHandler.ExportResults)
		}
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		if err := hm.serviceManager.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "evaluation-service",
		})
	})
}

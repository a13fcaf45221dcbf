package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/biosecurity-service/internal/services"
	"github.com/SAP-F-2025/biosecurity-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type HandlerManager struct {
	assessmentHandler *AssessmentHandler
}

func NewHandlerManager(
	assessmentService services.AssessmentService,
	reportService services.ReportService,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		assessmentHandler: NewAssessmentHandler(assessmentService, reportService, logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", HealthCheck)

	v1 := router.Group("/api/v1")
	{
		surveys := v1.Group("/surveys")
		{
			surveys.GET("", hm.assessmentHandler.ListSurveys)
			surveys.GET("/:surveyID", hm.assessmentHandler.GetSurvey)

			instances := surveys.Group("/:surveyID/instances")
			{
				instances.POST("", hm.assessmentHandler.StartInstance)
				instances.GET("", hm.assessmentHandler.ListInstances)
				instances.GET("/:instanceID", hm.assessmentHandler.GetInstance)
				instances.DELETE("/:instanceID", hm.assessmentHandler.DiscardInstance)
				instances.PUT("/:instanceID/answers/:questionID", hm.assessmentHandler.AnswerQuestion)
				instances.PUT("/:instanceID/navigate", hm.assessmentHandler.Navigate)
				instances.GET("/:instanceID/evaluation", hm.assessmentHandler.Evaluate)
				instances.GET("/:instanceID/report.xlsx", hm.assessmentHandler.ExportReport)
				instances.GET("/:instanceID/report.pdf", hm.assessmentHandler.ExportPDF)
			}
		}
	}
}

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "biosecurity-service",
	})
}

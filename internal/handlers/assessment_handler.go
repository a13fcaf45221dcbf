package handlers

import (
	"fmt"
	"net/http"

	"github.com/SAP-F-2025/biosecurity-service/internal/services"
	"github.com/SAP-F-2025/biosecurity-service/internal/utils"
	"github.com/gin-gonic/gin"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	pdfContentType  = "application/pdf"
)

type AssessmentHandler struct {
	BaseHandler
	assessmentService services.AssessmentService
	reportService     services.ReportService
}

func NewAssessmentHandler(
	assessmentService services.AssessmentService,
	reportService services.ReportService,
	logger utils.Logger,
) *AssessmentHandler {
	return &AssessmentHandler{
		BaseHandler:       NewBaseHandler(logger),
		assessmentService: assessmentService,
		reportService:     reportService,
	}
}

// ListSurveys lists the loaded survey variants
// @Summary List surveys
// @Tags surveys
// @Produce json
// @Success 200 {array} services.SurveySummary
// @Router /surveys [get]
func (h *AssessmentHandler) ListSurveys(c *gin.Context) {
	c.JSON(http.StatusOK, h.assessmentService.ListSurveys(c.Request.Context()))
}

// GetSurvey returns the full survey configuration
// @Summary Get survey
// @Tags surveys
// @Produce json
// @Param surveyID path string true "Survey ID"
// @Success 200 {object} models.Survey
// @Failure 404 {object} ErrorResponse
// @Router /surveys/{surveyID} [get]
func (h *AssessmentHandler) GetSurvey(c *gin.Context) {
	surveyID := ParseStringIDParam(c, "surveyID")
	if surveyID == "" {
		return
	}

	survey, err := h.assessmentService.GetSurvey(c.Request.Context(), surveyID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, survey)
}

// StartInstance starts a new assessment, archiving the previous one
// @Summary Start assessment instance
// @Tags instances
// @Accept json
// @Produce json
// @Param surveyID path string true "Survey ID"
// @Param request body services.StartInstanceRequest false "Assessor details"
// @Success 201 {object} services.InstanceResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /surveys/{surveyID}/instances [post]
func (h *AssessmentHandler) StartInstance(c *gin.Context) {
	surveyID := ParseStringIDParam(c, "surveyID")
	if surveyID == "" {
		return
	}

	var req services.StartInstanceRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err, err.Error())
			return
		}
	}

	resp, err := h.assessmentService.Start(c.Request.Context(), surveyID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ListInstances lists saved instances, most recently modified first
// @Summary List assessment instances
// @Tags instances
// @Produce json
// @Param surveyID path string true "Survey ID"
// @Param limit query int false "Page size"
// @Param offset query int false "Instances to skip"
// @Param updated_after query string false "RFC 3339 timestamp"
// @Success 200 {array} services.InstanceSummary
// @Failure 400 {object} ErrorResponse
// @Router /surveys/{surveyID}/instances [get]
func (h *AssessmentHandler) ListInstances(c *gin.Context) {
	surveyID := ParseStringIDParam(c, "surveyID")
	if surveyID == "" {
		return
	}

	var req services.ListInstancesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid query parameters", err, err.Error())
		return
	}

	instances, err := h.assessmentService.List(c.Request.Context(), surveyID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, instances)
}

// GetInstance returns an instance with progress and visible questions.
// The id "latest" selects the most recently modified instance.
// @Summary Get assessment instance
// @Tags instances
// @Produce json
// @Param surveyID path string true "Survey ID"
// @Param instanceID path string true "Instance ID or latest"
// @Success 200 {object} services.InstanceResponse
// @Failure 404 {object} ErrorResponse
// @Router /surveys/{surveyID}/instances/{instanceID} [get]
func (h *AssessmentHandler) GetInstance(c *gin.Context) {
	surveyID := ParseStringIDParam(c, "surveyID")
	if surveyID == "" {
		return
	}
	instanceID, ok := instanceParam(c, latestInstanceAlias)
	if !ok {
		return
	}

	resp, err := h.assessmentService.Get(c.Request.Context(), surveyID, instanceID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DiscardInstance deletes an instance. The id "active" selects the active one.
// @Summary Discard assessment instance
// @Tags instances
// @Param surveyID path string true "Survey ID"
// @Param instanceID path string true "Instance ID or active"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /surveys/{surveyID}/instances/{instanceID} [delete]
func (h *AssessmentHandler) DiscardInstance(c *gin.Context) {
	surveyID := ParseStringIDParam(c, "surveyID")
	if surveyID == "" {
		return
	}
	instanceID, ok := instanceParam(c, activeInstanceAlias)
	if !ok {
		return
	}

	if err := h.assessmentService.Discard(c.Request.Context(), surveyID, instanceID); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AnswerQuestion records or clears one answer
// @Summary Answer question
// @Tags instances
// @Accept json
// @Produce json
// @Param surveyID path string true "Survey ID"
// @Param instanceID path string true "Instance ID or latest"
// @Param questionID path string true "Question ID"
// @Param request body services.AnswerRequest true "Answer value; null or empty clears"
// @Success 200 {object} services.InstanceResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /surveys/{surveyID}/instances/{instanceID}/answers/{questionID} [put]
func (h *AssessmentHandler) AnswerQuestion(c *gin.Context) {
	surveyID := ParseStringIDParam(c, "surveyID")
	if surveyID == "" {
		return
	}
	instanceID, ok := instanceParam(c, latestInstanceAlias)
	if !ok {
		return
	}
	questionID := ParseStringIDParam(c, "questionID")
	if questionID == "" {
		return
	}

	var req services.AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err, err.Error())
		return
	}

	resp, err := h.assessmentService.AnswerQuestion(c.Request.Context(), surveyID, instanceID, questionID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Navigate stores the assessor's position
// @Summary Update navigation position
// @Tags instances
// @Accept json
// @Produce json
// @Param surveyID path string true "Survey ID"
// @Param instanceID path string true "Instance ID or latest"
// @Param request body services.NavigateRequest true "Position"
// @Success 200 {object} services.InstanceResponse
// @Failure 400 {object} ErrorResponse
// @Router /surveys/{surveyID}/instances/{instanceID}/navigate [put]
func (h *AssessmentHandler) Navigate(c *gin.Context) {
	surveyID := ParseStringIDParam(c, "surveyID")
	if surveyID == "" {
		return
	}
	instanceID, ok := instanceParam(c, latestInstanceAlias)
	if !ok {
		return
	}

	var req services.NavigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err, err.Error())
		return
	}

	resp, err := h.assessmentService.Navigate(c.Request.Context(), surveyID, instanceID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Evaluate scores the instance's current answers
// @Summary Evaluate assessment instance
// @Tags instances
// @Produce json
// @Param surveyID path string true "Survey ID"
// @Param instanceID path string true "Instance ID or latest"
// @Success 200 {object} scoring.Evaluation
// @Failure 404 {object} ErrorResponse
// @Router /surveys/{surveyID}/instances/{instanceID}/evaluation [get]
func (h *AssessmentHandler) Evaluate(c *gin.Context) {
	surveyID := ParseStringIDParam(c, "surveyID")
	if surveyID == "" {
		return
	}
	instanceID, ok := instanceParam(c, latestInstanceAlias)
	if !ok {
		return
	}

	evaluation, err := h.assessmentService.Evaluate(c.Request.Context(), surveyID, instanceID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, evaluation)
}

// ExportReport downloads the evaluation as an XLSX workbook
// @Summary Export assessment report
// @Tags instances
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param surveyID path string true "Survey ID"
// @Param instanceID path string true "Instance ID or latest"
// @Success 200 {file} file
// @Failure 404 {object} ErrorResponse
// @Router /surveys/{surveyID}/instances/{instanceID}/report.xlsx [get]
func (h *AssessmentHandler) ExportReport(c *gin.Context) {
	surveyID := ParseStringIDParam(c, "surveyID")
	if surveyID == "" {
		return
	}
	instanceID, ok := instanceParam(c, latestInstanceAlias)
	if !ok {
		return
	}

	report, err := h.reportService.ExportInstanceReport(c.Request.Context(), surveyID, instanceID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename))
	c.Data(http.StatusOK, xlsxContentType, report.Content)
}

// ExportPDF downloads a printable summary of the evaluation
// @Summary Export assessment summary as PDF
// @Tags instances
// @Produce application/pdf
// @Param surveyID path string true "Survey ID"
// @Param instanceID path string true "Instance ID or latest"
// @Success 200 {file} file
// @Failure 404 {object} ErrorResponse
// @Router /surveys/{surveyID}/instances/{instanceID}/report.pdf [get]
func (h *AssessmentHandler) ExportPDF(c *gin.Context) {
	surveyID := ParseStringIDParam(c, "surveyID")
	if surveyID == "" {
		return
	}
	instanceID, ok := instanceParam(c, latestInstanceAlias)
	if !ok {
		return
	}

	report, err := h.reportService.ExportInstancePDF(c.Request.Context(), surveyID, instanceID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename))
	c.Data(http.StatusOK, pdfContentType, report.Content)
}

package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SAP-F-2025/biosecurity-service/internal/models"
	"github.com/SAP-F-2025/biosecurity-service/internal/scoring"
	"github.com/xuri/excelize/v2"
)

const (
	SheetSummary         = "Summary"
	SheetRisks           = "Risks"
	SheetRecommendations = "Recommendations"

	reportTimeLayout = "2006-01-02 15:04:05"
)

type Report struct {
	Filename string
	Content  []byte
}

type ReportService interface {
	ExportInstanceReport(ctx context.Context, surveyID, instanceID string) (*Report, error)
	ExportInstancePDF(ctx context.Context, surveyID, instanceID string) (*Report, error)
}

type reportService struct {
	assessments AssessmentService
	logger      *slog.Logger
}

func NewReportService(assessments AssessmentService, logger *slog.Logger) ReportService {
	return &reportService{
		assessments: assessments,
		logger:      logger,
	}
}

func (s *reportService) ExportInstanceReport(ctx context.Context, surveyID, instanceID string) (*Report, error) {
	return s.export(ctx, surveyID, instanceID, "xlsx", WriteReport)
}

func (s *reportService) ExportInstancePDF(ctx context.Context, surveyID, instanceID string) (*Report, error) {
	return s.export(ctx, surveyID, instanceID, "pdf", WritePDFReport)
}

type reportWriter func(*models.AssessmentInstance, *scoring.Evaluation) ([]byte, error)

func (s *reportService) export(ctx context.Context, surveyID, instanceID, ext string, write reportWriter) (*Report, error) {
	resp, err := s.assessments.Get(ctx, surveyID, instanceID)
	if err != nil {
		return nil, err
	}
	evaluation, err := s.assessments.Evaluate(ctx, surveyID, resp.Instance.ID)
	if err != nil {
		return nil, err
	}

	content, err := write(resp.Instance, evaluation)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Exported assessment report",
		"survey_id", surveyID,
		"instance_id", resp.Instance.ID,
		"format", ext,
		"size_bytes", len(content))

	return &Report{
		Filename: fmt.Sprintf("%s-%s.%s", surveyID, resp.Instance.ID, ext),
		Content:  content,
	}, nil
}

// WriteReport renders an evaluation as an XLSX workbook. instance may be nil
// for offline evaluations.
func WriteReport(instance *models.AssessmentInstance, evaluation *scoring.Evaluation) ([]byte, error) {
	f, err := BuildReport(instance, evaluation)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf.Bytes(), nil
}

func BuildReport(instance *models.AssessmentInstance, evaluation *scoring.Evaluation) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	for _, name := range []string{SheetRisks, SheetRecommendations} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
		}
	}

	w := &sheetWriter{f: f}
	writeSummary(w, instance, evaluation)
	writeRisks(w, evaluation.Risks)
	writeRecommendations(w, evaluation.Recommendations)
	if w.err != nil {
		return nil, fmt.Errorf("failed to fill Excel sheet: %w", w.err)
	}

	f.SetActiveSheet(0)
	return f, nil
}

// sheetWriter appends rows and keeps the first error.
type sheetWriter struct {
	f   *excelize.File
	row map[string]int
	err error
}

func (w *sheetWriter) append(sheet string, values ...interface{}) {
	if w.err != nil {
		return
	}
	if w.row == nil {
		w.row = make(map[string]int)
	}
	w.row[sheet]++
	cell, err := excelize.CoordinatesToCellName(1, w.row[sheet])
	if err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetSheetRow(sheet, cell, &values)
}

func writeSummary(w *sheetWriter, instance *models.AssessmentInstance, evaluation *scoring.Evaluation) {
	w.append(SheetSummary, "Survey", evaluation.SurveyID)
	if instance != nil {
		w.append(SheetSummary, "Instance", instance.ID)
		w.append(SheetSummary, "Assessor", instance.Metadata.AssessorName)
		w.append(SheetSummary, "State", string(instance.Metadata.State))
		w.append(SheetSummary, "Started", instance.Metadata.CreatedAt.Format(reportTimeLayout))
		w.append(SheetSummary, "Last updated", instance.Metadata.UpdatedAt.Format(reportTimeLayout))
	}
	w.append(SheetSummary, "Overall score (%)", roundTo1(evaluation.Overall.Percentage))
	w.append(SheetSummary, "Answered", fmt.Sprintf("%d / %d", evaluation.Progress.AnsweredCount, evaluation.Progress.TotalCount))
	w.append(SheetSummary)

	w.append(SheetSummary, "Section", "Level", "Weight", "Score (%)", "Answered", "Total")
	var walk func(node scoring.NodeScore, depth int)
	walk = func(node scoring.NodeScore, depth int) {
		w.append(SheetSummary, strings.Repeat("  ", depth)+node.Name, depth, node.Weight,
			roundTo1(node.Percentage), node.Progress.AnsweredCount, node.Progress.TotalCount)
		for _, child := range node.Children {
			walk(child, depth+1)
		}
		for _, c := range node.Categories {
			w.append(SheetSummary, strings.Repeat("  ", depth+1)+c.Name, depth+1, c.Weight,
				c.Percentage, c.AnsweredCount, c.TotalCount)
		}
	}
	walk(evaluation.Overall, 0)
}

func writeRisks(w *sheetWriter, risks []scoring.DiseaseRisk) {
	w.append(SheetRisks, "Disease", "Risk level", "Total weight", "Triggers", "Mortality", "Zoonotic")
	for _, r := range risks {
		zoonotic := "No"
		if r.Zoonotic {
			zoonotic = "Yes"
		}
		w.append(SheetRisks, r.Name, string(r.RiskLevel), r.TotalWeight, r.TriggerCount, r.Mortality, zoonotic)
	}
}

func writeRecommendations(w *sheetWriter, recommendations []scoring.Recommendation) {
	w.append(SheetRecommendations, "Priority", "Category", "Question", "Score", "Risk", "Actions", "Diseases")
	for _, r := range recommendations {
		w.append(SheetRecommendations,
			string(r.Priority),
			r.CategoryName,
			r.QuestionText,
			r.Score,
			r.RiskDescription,
			strings.Join(r.Actions, "\n"),
			strings.Join(r.DiseasesAffected, ", "))
	}
}

func roundTo1(v float64) float64 {
	return float64(int64(v*10+0.5)) / 10
}

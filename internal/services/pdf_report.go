package services

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/SAP-F-2025/biosecurity-service/internal/models"
	"github.com/SAP-F-2025/biosecurity-service/internal/scoring"
	"github.com/jung-kurt/gofpdf"
)

const (
	pdfLineHeight = 7
	pdfIndent     = 6
)

// WritePDFReport renders an evaluation as a printable A4 summary for the farm
// visit. instance may be nil for offline evaluations.
func WritePDFReport(instance *models.AssessmentInstance, evaluation *scoring.Evaluation) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Biosecurity assessment "+evaluation.SurveyID, true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, tr("Biosecurity assessment: "+evaluation.SurveyID))
	pdf.Ln(14)

	pdf.SetFont("Arial", "", 11)
	if instance != nil {
		pdfField(pdf, tr, "Instance", instance.ID)
		pdfField(pdf, tr, "Assessor", instance.Metadata.AssessorName)
		pdfField(pdf, tr, "State", string(instance.Metadata.State))
		pdfField(pdf, tr, "Last updated", instance.Metadata.UpdatedAt.Format(reportTimeLayout))
	}
	pdfField(pdf, tr, "Overall score", fmt.Sprintf("%.1f %%", roundTo1(evaluation.Overall.Percentage)))
	pdfField(pdf, tr, "Answered", fmt.Sprintf("%d / %d", evaluation.Progress.AnsweredCount, evaluation.Progress.TotalCount))
	pdf.Ln(4)

	pdfHeading(pdf, tr, "Sections")
	var walk func(node scoring.NodeScore, depth int)
	walk = func(node scoring.NodeScore, depth int) {
		pdfScoreRow(pdf, tr, depth, node.Name, node.Percentage)
		for _, child := range node.Children {
			walk(child, depth+1)
		}
		for _, c := range node.Categories {
			pdfScoreRow(pdf, tr, depth+1, c.Name, c.Percentage)
		}
	}
	walk(evaluation.Overall, 0)
	pdf.Ln(4)

	pdfHeading(pdf, tr, "Disease risks")
	if len(evaluation.Risks) == 0 {
		pdf.Cell(0, pdfLineHeight, "None identified")
		pdf.Ln(pdfLineHeight)
	}
	for _, r := range evaluation.Risks {
		line := fmt.Sprintf("%s: %s (%d triggers)", r.Name, r.RiskLevel, r.TriggerCount)
		if r.Zoonotic {
			line += ", zoonotic"
		}
		pdf.Cell(0, pdfLineHeight, tr(line))
		pdf.Ln(pdfLineHeight)
	}
	pdf.Ln(4)

	pdfHeading(pdf, tr, "Recommendations")
	if len(evaluation.Recommendations) == 0 {
		pdf.Cell(0, pdfLineHeight, "None")
		pdf.Ln(pdfLineHeight)
	}
	for _, r := range evaluation.Recommendations {
		pdf.SetFont("Arial", "B", 11)
		pdf.MultiCell(0, pdfLineHeight, tr(fmt.Sprintf("[%s] %s: %s", r.Priority, r.CategoryName, r.QuestionText)), "", "L", false)
		pdf.SetFont("Arial", "", 11)
		if r.RiskDescription != "" {
			pdf.MultiCell(0, pdfLineHeight, tr(r.RiskDescription), "", "L", false)
		}
		for _, action := range r.Actions {
			pdf.SetX(pdf.GetX() + pdfIndent)
			pdf.MultiCell(0, pdfLineHeight, tr("- "+action), "", "L", false)
		}
		pdf.Ln(2)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF file: %w", err)
	}
	return buf.Bytes(), nil
}

func pdfHeading(pdf *gofpdf.Fpdf, tr func(string) string, text string) {
	pdf.SetFont("Arial", "B", 13)
	pdf.Cell(0, 9, tr(text))
	pdf.Ln(9)
	pdf.SetFont("Arial", "", 11)
}

func pdfField(pdf *gofpdf.Fpdf, tr func(string) string, label, value string) {
	pdf.CellFormat(40, pdfLineHeight, tr(label), "", 0, "L", false, 0, "")
	pdf.CellFormat(0, pdfLineHeight, tr(value), "", 1, "L", false, 0, "")
}

func pdfScoreRow(pdf *gofpdf.Fpdf, tr func(string) string, depth int, name string, percentage float64) {
	// a zero-width cell spans to the right margin
	indent := float64(depth * pdfIndent)
	if indent > 0 {
		pdf.CellFormat(indent, pdfLineHeight, "", "", 0, "L", false, 0, "")
	}
	pdf.CellFormat(120-indent, pdfLineHeight, tr(strings.TrimSpace(name)), "", 0, "L", false, 0, "")
	pdf.CellFormat(0, pdfLineHeight, fmt.Sprintf("%.1f %%", roundTo1(percentage)), "", 1, "R", false, 0, "")
}

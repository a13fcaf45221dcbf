package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/SAP-F-2025/biosecurity-service/internal/catalog"
	"github.com/SAP-F-2025/biosecurity-service/internal/config"
	"github.com/SAP-F-2025/biosecurity-service/internal/models"
	"github.com/SAP-F-2025/biosecurity-service/internal/scoring"
	"github.com/SAP-F-2025/biosecurity-service/internal/services"
	"github.com/SAP-F-2025/biosecurity-service/internal/validator"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type evaluateOptions struct {
	surveyPath  string
	answersPath string
	weights     string
	language    string
	xlsxPath    string
	pdfPath     string
}

// NewEvaluateCommand creates the evaluate subcommand
func NewEvaluateCommand() *cobra.Command {
	opts := &evaluateOptions{}

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score an answer set against a survey",
		Long: `Evaluate a set of answers offline and print the evaluation as JSON.

The answers file maps question ids to raw answers (a string, a number or a
list of option ids), in JSON or YAML. Use --xlsx or --pdf to also write the report.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&opts.surveyPath, "survey", "", "survey configuration file")
	cmd.Flags().StringVar(&opts.answersPath, "answers", "", "answers file (JSON or YAML)")
	cmd.Flags().StringVar(&opts.weights, "weight", "", `combining weights as "id=w,id=w"`)
	cmd.Flags().StringVar(&opts.language, "lang", models.DefaultLanguage, "language for names and recommendations")
	cmd.Flags().StringVar(&opts.xlsxPath, "xlsx", "", "write an XLSX report to this path")
	cmd.Flags().StringVar(&opts.pdfPath, "pdf", "", "write a PDF summary to this path")
	_ = cmd.MarkFlagRequired("survey")
	_ = cmd.MarkFlagRequired("answers")

	return cmd
}

func runEvaluate(opts *evaluateOptions, out, errOut io.Writer) error {
	survey, warnings, err := catalog.LoadFile(opts.surveyPath, validator.New())
	if err != nil {
		return err
	}
	for _, w := range warnings {
		fmt.Fprintf(errOut, "warning: %s\n", w)
	}

	overrides, err := config.ParseWeightPairs(opts.weights)
	if err != nil {
		return fmt.Errorf("--weight: %w", err)
	}
	engine, err := scoring.New(survey,
		scoring.WithCombiningWeights(overrides),
		scoring.WithLanguage(opts.language))
	if err != nil {
		return err
	}

	answers, err := loadAnswers(opts.answersPath)
	if err != nil {
		return err
	}

	evaluation := engine.Evaluate(answers)

	if err := writeReportFile(opts.xlsxPath, evaluation, services.WriteReport); err != nil {
		return err
	}
	if err := writeReportFile(opts.pdfPath, evaluation, services.WritePDFReport); err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(evaluation)
}

func writeReportFile(path string, evaluation *scoring.Evaluation,
	write func(*models.AssessmentInstance, *scoring.Evaluation) ([]byte, error)) error {
	if path == "" {
		return nil
	}
	content, err := write(nil, evaluation)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func loadAnswers(path string) (models.Answers, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read answers: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var doc map[string]interface{}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse answers %s: %w", path, err)
		}
		if data, err = json.Marshal(doc); err != nil {
			return nil, fmt.Errorf("convert answers %s: %w", path, err)
		}
	}

	answers := models.Answers{}
	if err := json.Unmarshal(data, &answers); err != nil {
		return nil, fmt.Errorf("parse answers %s: %w", path, err)
	}
	return answers, nil
}

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/SAP-F-2025/biosecurity-service/internal/catalog"
	"github.com/SAP-F-2025/biosecurity-service/internal/config"
	"github.com/SAP-F-2025/biosecurity-service/internal/scoring"
	"github.com/SAP-F-2025/biosecurity-service/internal/validator"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// NewValidateCommand creates the validate subcommand
func NewValidateCommand() *cobra.Command {
	var (
		weights string
		raw     bool
	)

	cmd := &cobra.Command{
		Use:   "validate <survey-file-or-directory>...",
		Short: "Validate survey configuration files",
		Long: `Parse and validate survey files, checking for:
  - Duplicate category, question and option ids
  - Choice questions without options and range questions without bands
  - Hierarchy nodes that are empty or reference unknown categories
  - Missing combining weights for the configured hierarchy

Conditions that can never be satisfied are reported as warnings.
Weights default to the COMBINING_WEIGHTS environment variable.

Exit code: 0 if every file is valid, 1 otherwise`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if raw {
				color.NoColor = true
			}
			if !cmd.Flags().Changed("weights") {
				weights = os.Getenv("COMBINING_WEIGHTS")
			}
			parsed, err := config.ParseCombiningWeights(weights)
			if err != nil {
				return err
			}
			return validateSurveys(args, parsed, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&weights, "weights", "", `combining weights as "survey:id=w,id=w;survey2:id=w"`)
	cmd.Flags().BoolVar(&raw, "raw", false, "Plain text output (no colors)")
	return cmd
}

func validateSurveys(paths []string, weights map[string]map[string]float64, out io.Writer) error {
	files, err := expandSurveyPaths(paths)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no survey files found")
	}

	okText := color.New(color.FgGreen).Sprint("OK  ")
	failText := color.New(color.FgRed).Sprint("FAIL")
	warnText := color.New(color.FgYellow).Sprint("warning:")

	v := validator.New()
	failed := 0
	for _, path := range files {
		survey, warnings, err := catalog.LoadFile(path, v)
		if err == nil {
			_, err = scoring.New(survey, scoring.WithCombiningWeights(weights[survey.ID]))
		}

		if err != nil {
			failed++
			fmt.Fprintf(out, "%s %s\n", failText, path)
			fmt.Fprintf(out, "  %v\n", err)
		} else {
			fmt.Fprintf(out, "%s %s (%s: %d categories, %d questions)\n",
				okText, path, survey.ID, len(survey.Categories), survey.QuestionCount())
		}
		for _, w := range warnings {
			fmt.Fprintf(out, "  %s %s\n", warnText, w)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d survey files invalid", failed, len(files))
	}
	return nil
}

// expandSurveyPaths replaces directories with the survey files they contain.
func expandSurveyPaths(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to access path: %w", err)
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		found, err := catalog.SurveyFiles(path)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	return files, nil
}

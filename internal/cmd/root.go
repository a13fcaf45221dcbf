package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates the root command of the biosecurity binary
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "biosecurity",
		Short: "Livestock biosecurity assessment service",
		Long: `biosecurity scores farm biosecurity questionnaires.

It loads survey configurations (JSON or YAML), serves the assessment API,
validates survey files and evaluates answer sets offline.`,
		Version:      Version,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewServeCommand())
	cmd.AddCommand(NewValidateCommand())
	cmd.AddCommand(NewEvaluateCommand())

	return cmd
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/wcag-check/internal/observability"
	"github.com/jonathan/wcag-check/internal/summary"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Summarize a saved audit report",
	Long:  "Prints counts, percentages, the severity breakdown and the severity-ordered rules of an audit report.",
	RunE:  runSummarize,
}

var (
	summarizeReport string
	summarizeOutput string
)

func init() {
	summarizeCmd.Flags().StringVarP(&summarizeReport, "report", "r", "", "Path to audit report JSON (required)")
	summarizeCmd.Flags().StringVarP(&summarizeOutput, "out", "o", "", "Path to write the summary JSON (optional)")

	if err := summarizeCmd.MarkFlagRequired("report"); err != nil {
		panic(fmt.Sprintf("failed to mark report flag as required: %v", err))
	}

	rootCmd.AddCommand(summarizeCmd)
}

func runSummarize(cmd *cobra.Command, _ []string) error {
	report, err := readReport(summarizeReport)
	if err != nil {
		return err
	}

	s := summary.Summarize(report)
	if summarizeOutput != "" {
		if err := writeJSON(summarizeOutput, s); err != nil {
			return err
		}
	}

	observability.NewPrinter(cmd.OutOrStdout()).PrintSummary(s)
	return nil
}

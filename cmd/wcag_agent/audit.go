package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/wcag-check/internal/audit"
	"github.com/jonathan/wcag-check/internal/observability"
	"github.com/jonathan/wcag-check/internal/summary"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit a web page for WCAG violations",
	Long:  "Loads the page in headless Chrome, runs axe-core and prints a summary of the results.",
	RunE:  runAudit,
}

var (
	auditURL    string
	auditOutput string
)

func init() {
	auditCmd.Flags().StringVarP(&auditURL, "url", "u", "", "Page URL to audit; https:// is added when no scheme is given (required)")
	auditCmd.Flags().StringVarP(&auditOutput, "out", "o", "", "Path to write the audit report JSON (optional)")

	if err := auditCmd.MarkFlagRequired("url"); err != nil {
		panic(fmt.Sprintf("failed to mark url flag as required: %v", err))
	}

	rootCmd.AddCommand(auditCmd)
}

func runAudit(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	producer := audit.NewChromeProducer(cfg.AuditOptions())
	report, err := producer.Audit(cmd.Context(), audit.EnsureScheme(auditURL), audit.FullResultTypes)
	if err != nil {
		return err
	}

	if auditOutput != "" {
		if err := writeJSON(auditOutput, report); err != nil {
			return err
		}
	}

	observability.NewPrinter(cmd.OutOrStdout()).PrintSummary(summary.Summarize(report))
	if auditOutput != "" {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Output: %s\n", auditOutput)
	}
	return nil
}

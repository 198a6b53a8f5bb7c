package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/wcag-check/internal/audit"
	"github.com/jonathan/wcag-check/internal/caption"
	"github.com/jonathan/wcag-check/internal/observability"
	"github.com/jonathan/wcag-check/internal/remediation"
	"github.com/jonathan/wcag-check/internal/types"
)

var remediateCmd = &cobra.Command{
	Use:   "remediate",
	Short: "Generate alt text for images without it",
	Long: "Generates alternative text for every image-alt violation, either from a saved audit " +
		"report or by auditing a page first.",
	RunE: runRemediate,
}

var (
	remediateReport      string
	remediateURL         string
	remediateOutput      string
	remediateConcurrency int
)

func init() {
	remediateCmd.Flags().StringVarP(&remediateReport, "report", "r", "", "Path to audit report JSON")
	remediateCmd.Flags().StringVarP(&remediateURL, "url", "u", "", "Page URL to audit first")
	remediateCmd.Flags().StringVarP(&remediateOutput, "out", "o", "", "Path to write the results JSON (optional)")
	remediateCmd.Flags().IntVar(&remediateConcurrency, "concurrency", 0, "Images processed in parallel (default from config, 1)")

	remediateCmd.MarkFlagsMutuallyExclusive("report", "url")
	remediateCmd.MarkFlagsOneRequired("report", "url")

	rootCmd.AddCommand(remediateCmd)
}

func runRemediate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if remediateConcurrency < 0 {
		return fmt.Errorf("--concurrency must be non-negative")
	}
	if remediateConcurrency > 0 {
		cfg.Concurrency = remediateConcurrency
	}

	ctx := cmd.Context()

	var report *types.AuditReport
	if remediateReport != "" {
		report, err = readReport(remediateReport)
	} else {
		report, err = audit.NewChromeProducer(cfg.AuditOptions()).Audit(ctx, audit.EnsureScheme(remediateURL), audit.ViolationsOnly)
	}
	if err != nil {
		return err
	}

	captioner, err := caption.New(ctx, cfg.CaptionConfig())
	if err != nil {
		return fmt.Errorf("failed to create captioner: %w", err)
	}
	defer func() { _ = captioner.Close() }()

	opts := cfg.RemediationOptions()
	cache, err := openCache(ctx, cfg)
	if err != nil {
		return err
	}
	if cache != nil {
		defer cache.Close()
		opts = append(opts, remediation.WithCache(cache))
	}

	results, err := remediation.New(captioner, opts...).Remediate(ctx, report)
	if err != nil {
		return err
	}

	if remediateOutput != "" {
		if err := writeJSON(remediateOutput, results); err != nil {
			return err
		}
	}

	observability.NewPrinter(cmd.OutOrStdout()).PrintRemediation(results)
	if remediateOutput != "" {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Output: %s\n", remediateOutput)
	}
	return nil
}

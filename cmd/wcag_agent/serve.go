package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/wcag-check/internal/audit"
	"github.com/jonathan/wcag-check/internal/caption"
	"github.com/jonathan/wcag-check/internal/server"
)

var (
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes the wcag-check, alt-texts and summary endpoints.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = servePort
	}

	ctx := cmd.Context()

	captioner, err := caption.New(ctx, cfg.CaptionConfig())
	if err != nil {
		return fmt.Errorf("failed to create captioner: %w", err)
	}

	cache, err := openCache(ctx, cfg)
	if err != nil {
		_ = captioner.Close()
		return err
	}

	srv, err := server.New(server.Config{
		Port:               cfg.Port,
		Producer:           audit.NewChromeProducer(cfg.AuditOptions()),
		Captioner:          captioner,
		DB:                 cache,
		RemediationOptions: cfg.RemediationOptions(),
		Verbose:            cfg.Verbose,
	})
	if err != nil {
		_ = captioner.Close()
		if cache != nil {
			cache.Close()
		}
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}

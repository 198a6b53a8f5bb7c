package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/jonathan/wcag-check/internal/config"
	"github.com/jonathan/wcag-check/internal/db"
	"github.com/jonathan/wcag-check/internal/schemas"
	"github.com/jonathan/wcag-check/internal/types"
)

// loadConfig builds the effective configuration: config file values first,
// then environment variables, then built-in defaults. --verbose always wins.
func loadConfig() (*config.Config, error) {
	cfg := config.FromEnv()

	if configPath != "" {
		fileCfg, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg.MergeWithDefaults(cfg)
	}

	if verbose {
		cfg.Verbose = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// openCache connects the caption cache when a database URL is configured.
// Returns nil without error when caching is disabled.
func openCache(ctx context.Context, cfg *config.Config) (*db.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, nil
	}

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.EnsureSchema(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to prepare caption cache: %w", err)
	}

	if cfg.Verbose {
		log.Printf("[CACHE] Caption cache enabled")
	}
	return database, nil
}

// readReport loads an audit report file and validates it against the report schema.
func readReport(path string) (*types.AuditReport, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report file: %w", err)
	}

	if err := schemas.ValidateAuditReport(content); err != nil {
		return nil, fmt.Errorf("report %s is not a valid audit report: %w", path, err)
	}

	var report types.AuditReport
	if err := json.Unmarshal(content, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report JSON: %w", err)
	}
	return &report, nil
}

// writeJSON writes v as indented JSON, creating the output directory if needed.
func writeJSON(path string, v any) error {
	outputDir := filepath.Dir(path)
	if outputDir != "" && outputDir != "." {
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output to JSON: %w", err)
	}

	if err := os.WriteFile(path, jsonBytes, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

const createCaptionsTable = `
CREATE TABLE IF NOT EXISTS image_captions (
	image_url  TEXT PRIMARY KEY,
	alt_text   TEXT NOT NULL,
	provider   TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// CachedCaption is a stored caption row.
type CachedCaption struct {
	ImageURL  string
	AltText   string
	Provider  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GetCaption returns the stored caption for imageURL if it is younger than the cache TTL.
func (db *DB) GetCaption(ctx context.Context, imageURL string) (string, bool, error) {
	row, err := db.GetCachedCaption(ctx, imageURL)
	if err != nil {
		return "", false, err
	}
	if row == nil || time.Since(row.UpdatedAt) > db.cacheTTL {
		return "", false, nil
	}
	return row.AltText, true, nil
}

// GetCachedCaption retrieves a caption row regardless of age; nil when absent.
func (db *DB) GetCachedCaption(ctx context.Context, imageURL string) (*CachedCaption, error) {
	var c CachedCaption
	err := db.pool.QueryRow(ctx,
		`SELECT image_url, alt_text, provider, created_at, updated_at
		 FROM image_captions WHERE image_url = $1`,
		imageURL,
	).Scan(&c.ImageURL, &c.AltText, &c.Provider, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get caption for %s: %w", imageURL, err)
	}
	return &c, nil
}

// SaveCaption stores or replaces the caption for imageURL.
func (db *DB) SaveCaption(ctx context.Context, imageURL, text string) error {
	return db.SaveCaptionWithProvider(ctx, imageURL, text, "")
}

// SaveCaptionWithProvider stores the caption and the provider that produced it.
func (db *DB) SaveCaptionWithProvider(ctx context.Context, imageURL, text, provider string) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO image_captions (image_url, alt_text, provider)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (image_url) DO UPDATE SET alt_text = $2, provider = $3, updated_at = NOW()`,
		imageURL, text, provider,
	)
	if err != nil {
		return fmt.Errorf("failed to save caption for %s: %w", imageURL, err)
	}
	return nil
}

// DeleteCaption removes the stored caption for imageURL.
func (db *DB) DeleteCaption(ctx context.Context, imageURL string) error {
	_, err := db.pool.Exec(ctx, `DELETE FROM image_captions WHERE image_url = $1`, imageURL)
	if err != nil {
		return fmt.Errorf("failed to delete caption for %s: %w", imageURL, err)
	}
	return nil
}

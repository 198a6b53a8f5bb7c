package caption

import (
	"context"
	"fmt"

	"github.com/jonathan/wcag-check/internal/types"
)

// Captioner generates alternative text for a normalized image.
// Implementations never return Go errors; every failure is an outcome.
type Captioner interface {
	// Caption submits image bytes of the given media type.
	Caption(ctx context.Context, data []byte, mediaType string) types.CaptionOutcome
	// Name returns a short provider label for logs.
	Name() string
	// Close releases any resources held by the captioner.
	Close() error
}

// New creates a captioner based on configuration.
// Missing credentials are not an error here; they surface as a service
// failure on the first Caption call.
func New(ctx context.Context, cfg *Config) (Captioner, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	switch cfg.Provider {
	case ProviderHuggingFace, "":
		return NewHuggingFaceClient(cfg), nil
	case ProviderGemini:
		return NewGeminiClient(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown caption provider %q", cfg.Provider)
	}
}

package caption

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/jonathan/wcag-check/internal/types"
)

// generateFunc performs one multimodal generation request.
type generateFunc func(ctx context.Context, data []byte, format string) (string, error)

// GeminiClient implements Captioner for Google Gemini
type GeminiClient struct {
	client   *genai.Client
	model    string
	prompt   string
	timeout  time.Duration
	retry    RetryPolicy
	sleep    Sleeper
	verbose  bool
	generate generateFunc
}

// NewGeminiClient creates a new Gemini captioning client. An empty API key
// yields a client whose every Caption call fails with a service error.
func NewGeminiClient(ctx context.Context, cfg *Config) (*GeminiClient, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &GeminiClient{
		model:   model,
		prompt:  DefaultPrompt,
		timeout: timeout,
		retry:   cfg.Retry,
		sleep:   SleepContext,
		verbose: cfg.Verbose,
	}
	if cfg.GeminiAPIKey == "" {
		return c, nil
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	c.client = client
	c.generate = c.generateContent
	return c, nil
}

// WithSleeper replaces the backoff sleeper and returns the client.
func (c *GeminiClient) WithSleeper(sleep Sleeper) *GeminiClient {
	c.sleep = sleep
	return c
}

// Name returns the provider label.
func (c *GeminiClient) Name() string {
	return string(ProviderGemini)
}

// Close releases resources held by the client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Caption sends the image with an alt-text prompt, retrying while the API reports 503.
func (c *GeminiClient) Caption(ctx context.Context, data []byte, mediaType string) types.CaptionOutcome {
	if c.generate == nil {
		if c.verbose {
			log.Printf("[CAPTION] GEMINI_API_KEY is not configured")
		}
		return types.Failure(types.ReasonServiceError)
	}
	format := strings.TrimPrefix(mediaType, "image/")

	return withRetry(ctx, c.retry, c.sleep, c.verbose, func(ctx context.Context) (types.CaptionOutcome, bool) {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		text, err := c.generate(callCtx, data, format)
		if err != nil {
			var apiErr *googleapi.Error
			if errors.As(err, &apiErr) && apiErr.Code == http.StatusServiceUnavailable {
				return types.Failure(types.ReasonServiceError), true
			}
			log.Printf("[CAPTION] Gemini request failed: %v", err)
			return types.Failure(types.ReasonServiceError), false
		}

		text = strings.TrimSpace(text)
		if text == "" {
			return types.Failure(types.ReasonNoCaption), false
		}
		return types.Success(text), false
	})
}

func (c *GeminiClient) generateContent(ctx context.Context, data []byte, format string) (string, error) {
	model := c.client.GenerativeModel(c.model)
	model.SetTemperature(0.2)

	resp, err := model.GenerateContent(ctx, genai.ImageData(format, data), genai.Text(c.prompt))
	if err != nil {
		return "", err
	}
	return extractText(resp), nil
}

// extractText joins the text parts of the first candidate.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return ""
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	return strings.Join(parts, "")
}

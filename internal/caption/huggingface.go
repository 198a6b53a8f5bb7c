package caption

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/jonathan/wcag-check/internal/types"
)

// maxResponseBytes caps how much of an inference response is read.
const maxResponseBytes = 1 << 20

// HuggingFaceClient implements Captioner for the Hugging Face inference API.
type HuggingFaceClient struct {
	endpoint   string
	token      string
	httpClient *http.Client
	retry      RetryPolicy
	sleep      Sleeper
	verbose    bool
}

// NewHuggingFaceClient creates a new Hugging Face captioning client.
func NewHuggingFaceClient(cfg *Config) *HuggingFaceClient {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultHuggingFaceEndpoint
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &HuggingFaceClient{
		endpoint:   endpoint,
		token:      cfg.HuggingFaceToken,
		httpClient: &http.Client{Timeout: timeout},
		retry:      cfg.Retry,
		sleep:      SleepContext,
		verbose:    cfg.Verbose,
	}
}

// WithSleeper replaces the backoff sleeper and returns the client.
func (c *HuggingFaceClient) WithSleeper(sleep Sleeper) *HuggingFaceClient {
	c.sleep = sleep
	return c
}

// WithHTTPClient replaces the HTTP client and returns the client.
func (c *HuggingFaceClient) WithHTTPClient(client *http.Client) *HuggingFaceClient {
	c.httpClient = client
	return c
}

// Name returns the provider label.
func (c *HuggingFaceClient) Name() string {
	return string(ProviderHuggingFace)
}

// Close releases resources held by the client.
func (c *HuggingFaceClient) Close() error {
	return nil
}

// hfCaption is one element of the inference response array.
type hfCaption struct {
	GeneratedText string `json:"generated_text"`
}

// Caption posts the image and maps the response to an outcome, retrying on 503.
func (c *HuggingFaceClient) Caption(ctx context.Context, data []byte, mediaType string) types.CaptionOutcome {
	if c.token == "" {
		if c.verbose {
			log.Printf("[CAPTION] HUGGINGFACE_API_TOKEN is not configured")
		}
		return types.Failure(types.ReasonServiceError)
	}

	return withRetry(ctx, c.retry, c.sleep, c.verbose, func(ctx context.Context) (types.CaptionOutcome, bool) {
		return c.attempt(ctx, data, mediaType)
	})
}

func (c *HuggingFaceClient) attempt(ctx context.Context, data []byte, mediaType string) (types.CaptionOutcome, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(data))
	if err != nil {
		log.Printf("[CAPTION] Failed to create request: %v", err)
		return types.Failure(types.ReasonServiceError), false
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", mediaType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[CAPTION] Inference request failed: %v", err)
		return types.Failure(types.ReasonServiceError), false
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		log.Printf("[CAPTION] Failed to read inference response: %v", err)
		return types.Failure(types.ReasonServiceError), false
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return parseCaptions(body), false
	case http.StatusServiceUnavailable:
		return types.Failure(types.ReasonServiceError), true
	default:
		log.Printf("[CAPTION] Inference service returned HTTP %d: %s", resp.StatusCode, truncate(string(body), 200))
		return types.Failure(types.ReasonServiceError), false
	}
}

// parseCaptions maps a 200 body to Success or NoCaption; a body that is not
// a JSON array is a service error.
func parseCaptions(body []byte) types.CaptionOutcome {
	var captions []hfCaption
	if err := json.Unmarshal(body, &captions); err != nil {
		log.Printf("[CAPTION] Malformed inference response: %v", err)
		return types.Failure(types.ReasonServiceError)
	}
	if len(captions) == 0 {
		return types.Failure(types.ReasonNoCaption)
	}
	text := strings.TrimSpace(captions[0].GeneratedText)
	if text == "" {
		return types.Failure(types.ReasonNoCaption)
	}
	return types.Success(text)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

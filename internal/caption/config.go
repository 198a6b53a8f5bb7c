// Package caption requests generated alternative text for images from an
// external inference service.
package caption

import "time"

// Provider identifies a captioning backend.
type Provider string

// Provider constants define supported captioning backends.
const (
	// ProviderHuggingFace is the Hugging Face inference API (BLIP by default)
	ProviderHuggingFace Provider = "huggingface"
	// ProviderGemini is the Google Gemini vision API
	ProviderGemini Provider = "gemini"
)

// Default endpoints and models.
const (
	DefaultHuggingFaceEndpoint = "https://api-inference.huggingface.co/models/Salesforce/blip-image-captioning-large"
	DefaultGeminiModel         = "gemini-2.5-flash-lite"
	DefaultTimeout             = 60 * time.Second
)

// DefaultPrompt is sent alongside the image to instruction-following models.
const DefaultPrompt = "Write one short, factual sentence describing this image for use as HTML alt text. " +
	"Do not start with \"image of\" or \"picture of\"."

// Config holds the captioning configuration for the application.
type Config struct {
	Provider Provider
	// Endpoint is the inference URL for Hugging Face.
	Endpoint string
	// Model is the model name for Gemini.
	Model string
	// HuggingFaceToken is the bearer credential; may be empty until first use.
	HuggingFaceToken string
	// GeminiAPIKey is the Gemini API key; may be empty until first use.
	GeminiAPIKey string
	Timeout      time.Duration
	Retry        RetryPolicy
	Verbose      bool
}

// DefaultConfig returns the default configuration (Hugging Face BLIP).
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderHuggingFace,
		Endpoint: DefaultHuggingFaceEndpoint,
		Model:    DefaultGeminiModel,
		Timeout:  DefaultTimeout,
		Retry:    DefaultRetryPolicy(),
	}
}

package types

// OutcomeKind tags a CaptionOutcome.
type OutcomeKind string

// Outcome kinds.
const (
	OutcomeSuccess OutcomeKind = "success"
	OutcomeSkipped OutcomeKind = "skipped"
	OutcomeFailure OutcomeKind = "failure"
)

// OutcomeReason explains a skipped or failed outcome.
type OutcomeReason string

// Outcome reasons.
const (
	// ReasonAnimatedImage marks an intentional skip, not a failure.
	ReasonAnimatedImage OutcomeReason = "animated_image"
	// ReasonFetchError covers unreachable, oversized or undecodable images.
	ReasonFetchError OutcomeReason = "fetch_error"
	// ReasonServiceError covers an unavailable or misbehaving captioning backend.
	ReasonServiceError OutcomeReason = "service_error"
	// ReasonNoCaption is a well-formed response without caption text.
	ReasonNoCaption OutcomeReason = "no_caption"
)

// CaptionOutcome is the result of trying to caption a single image.
type CaptionOutcome struct {
	Kind   OutcomeKind   `json:"kind"`
	Text   string        `json:"text,omitempty"`
	Reason OutcomeReason `json:"reason,omitempty"`
}

// Success builds a successful outcome.
func Success(text string) CaptionOutcome {
	return CaptionOutcome{Kind: OutcomeSuccess, Text: text}
}

// Skipped builds an intentionally skipped outcome.
func Skipped(reason OutcomeReason) CaptionOutcome {
	return CaptionOutcome{Kind: OutcomeSkipped, Reason: reason}
}

// Failure builds a failed outcome.
func Failure(reason OutcomeReason) CaptionOutcome {
	return CaptionOutcome{Kind: OutcomeFailure, Reason: reason}
}

// IsSuccess reports whether the outcome carries a caption.
func (o CaptionOutcome) IsSuccess() bool { return o.Kind == OutcomeSuccess }

// IsFailure reports whether captioning was attempted and failed.
func (o CaptionOutcome) IsFailure() bool { return o.Kind == OutcomeFailure }

// RemediationResult is one generated alt text for an image-alt violation node.
// AltText is nil when the image was intentionally skipped.
type RemediationResult struct {
	ImageURL       string         `json:"imageUrl"`
	AltText        *string        `json:"altText"`
	FailureSummary string         `json:"failureSummary"`
	Outcome        CaptionOutcome `json:"outcome"`
}

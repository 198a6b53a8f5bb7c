// Package remediation generates alternative text for images reported by the
// axe-core "image-alt" rule.
package remediation

import (
	"context"
	"errors"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/wcag-check/internal/caption"
	"github.com/jonathan/wcag-check/internal/fetch"
	"github.com/jonathan/wcag-check/internal/imaging"
	"github.com/jonathan/wcag-check/internal/resolve"
	"github.com/jonathan/wcag-check/internal/types"
)

// DefaultFailureMarker is the alt text recorded when captioning failed.
const DefaultFailureMarker = "API Fehler"

// ErrInvalidReport is returned when the audit report is missing or malformed.
var ErrInvalidReport = errors.New("invalid audit report")

// Cache stores previously generated captions by absolute image URL.
type Cache interface {
	GetCaption(ctx context.Context, imageURL string) (string, bool, error)
	SaveCaption(ctx context.Context, imageURL, text string) error
}

// ProgressEvent is emitted once per finished node.
type ProgressEvent struct {
	Index  int                     `json:"index"`
	Total  int                     `json:"total"`
	Result types.RemediationResult `json:"result"`
}

// ProgressCallback is called when a node has been processed.
type ProgressCallback func(event ProgressEvent)

// Remediator walks image-alt violations and captions the images they reference.
// A Remediator holds no per-call state and is safe for concurrent use.
type Remediator struct {
	captioner     caption.Captioner
	fetchOpts     *fetch.Options
	normalizeOpts *imaging.NormalizeOptions
	cache         Cache
	failureMarker string
	concurrency   int
	onProgress    ProgressCallback
	verbose       bool
}

// Option configures a Remediator.
type Option func(*Remediator)

// WithConcurrency sets how many nodes are processed at once. Values below 1 mean sequential.
func WithConcurrency(n int) Option {
	return func(r *Remediator) { r.concurrency = max(1, n) }
}

// WithFetchOptions sets the options used to download images.
func WithFetchOptions(opts *fetch.Options) Option {
	return func(r *Remediator) { r.fetchOpts = opts }
}

// WithNormalizeOptions sets the image normalization bounds.
func WithNormalizeOptions(opts *imaging.NormalizeOptions) Option {
	return func(r *Remediator) { r.normalizeOpts = opts }
}

// WithCache enables caption caching.
func WithCache(cache Cache) Option {
	return func(r *Remediator) { r.cache = cache }
}

// WithFailureMarker sets the alt text recorded for failed nodes.
func WithFailureMarker(marker string) Option {
	return func(r *Remediator) { r.failureMarker = marker }
}

// WithProgress registers a per-node progress callback. With concurrency above
// one the callback is invoked from several goroutines.
func WithProgress(cb ProgressCallback) Option {
	return func(r *Remediator) { r.onProgress = cb }
}

// WithVerbose enables detailed logging.
func WithVerbose(verbose bool) Option {
	return func(r *Remediator) { r.verbose = verbose }
}

// New creates a Remediator that captions with captioner.
func New(captioner caption.Captioner, opts ...Option) *Remediator {
	r := &Remediator{
		captioner:     captioner,
		fetchOpts:     fetch.DefaultOptions(),
		normalizeOpts: imaging.DefaultNormalizeOptions(),
		failureMarker: DefaultFailureMarker,
		concurrency:   1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// target is a node that resolved to an image.
type target struct {
	imageURL       string
	failureSummary string
}

// Remediate returns one result per image-alt node that references an image,
// in node order. Per-node failures are recorded in the results; only a
// missing or malformed report is returned as an error.
func (r *Remediator) Remediate(ctx context.Context, report *types.AuditReport) ([]types.RemediationResult, error) {
	if report == nil {
		return nil, fmt.Errorf("%w: report is nil", ErrInvalidReport)
	}
	if err := report.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidReport, err)
	}

	targets := r.collectTargets(report)
	results := make([]types.RemediationResult, len(targets))
	if len(targets) == 0 {
		return results, nil
	}

	if r.concurrency <= 1 {
		for i, t := range targets {
			results[i] = r.processNode(ctx, t)
			r.emit(i, len(targets), results[i])
		}
		return results, nil
	}

	// Each goroutine owns its slot, so order follows node order without locking.
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, t := range targets {
		g.Go(func() error {
			results[i] = r.processNode(gCtx, t)
			r.emit(i, len(targets), results[i])
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	return results, nil
}

// collectTargets resolves image references of the image-alt violation nodes.
func (r *Remediator) collectTargets(report *types.AuditReport) []target {
	violation := report.FindViolation(types.ImageAltRuleID)
	if violation == nil {
		if r.verbose {
			log.Printf("[REMEDIATE] No %s violation in report for %s", types.ImageAltRuleID, report.URL)
		}
		return nil
	}

	targets := make([]target, 0, len(violation.Nodes))
	for _, node := range violation.Nodes {
		imageURL, ok := resolve.ImageURL(node.HTML, report.URL)
		if !ok {
			if r.verbose {
				log.Printf("[REMEDIATE] No image source in node %v", node.Target)
			}
			continue
		}
		targets = append(targets, target{imageURL: imageURL, failureSummary: node.FailureSummary})
	}
	return targets
}

// processNode runs fetch, classification, normalization and captioning for one image.
func (r *Remediator) processNode(ctx context.Context, t target) types.RemediationResult {
	outcome := r.captionImage(ctx, t.imageURL)

	result := types.RemediationResult{
		ImageURL:       t.imageURL,
		FailureSummary: t.failureSummary,
		Outcome:        outcome,
	}
	switch outcome.Kind {
	case types.OutcomeSuccess:
		text := outcome.Text
		result.AltText = &text
	case types.OutcomeFailure:
		marker := r.failureMarker
		result.AltText = &marker
	}

	if r.verbose {
		log.Printf("[REMEDIATE] %s -> %s %s", t.imageURL, outcome.Kind, outcome.Reason)
	}
	return result
}

func (r *Remediator) captionImage(ctx context.Context, imageURL string) types.CaptionOutcome {
	if r.cache != nil {
		text, ok, err := r.cache.GetCaption(ctx, imageURL)
		if err != nil {
			log.Printf("[REMEDIATE] Caption cache lookup failed for %s: %v", imageURL, err)
		} else if ok {
			return types.Success(text)
		}
	}

	img, err := fetch.Image(ctx, imageURL, r.fetchOpts)
	if err != nil {
		log.Printf("[REMEDIATE] %v", err)
		return types.Failure(types.ReasonFetchError)
	}

	if imaging.IsAnimated(img.Body, img.MediaType, imageURL) {
		if r.verbose {
			log.Printf("[REMEDIATE] Animated GIF detected (markers: %d), skipping %s", imaging.FrameMarkers(img.Body), imageURL)
		}
		return types.Skipped(types.ReasonAnimatedImage)
	}

	normalized, err := imaging.Normalize(img.Body, r.normalizeOpts)
	if err != nil {
		log.Printf("[REMEDIATE] Cannot process image %s: %v", imageURL, err)
		return types.Failure(types.ReasonFetchError)
	}

	outcome := r.captioner.Caption(ctx, normalized.Data, normalized.MediaType)
	if outcome.IsSuccess() && r.cache != nil {
		if err := r.cache.SaveCaption(ctx, imageURL, outcome.Text); err != nil {
			log.Printf("[REMEDIATE] Failed to cache caption for %s: %v", imageURL, err)
		}
	}
	return outcome
}

func (r *Remediator) emit(index, total int, result types.RemediationResult) {
	if r.onProgress != nil {
		r.onProgress(ProgressEvent{Index: index, Total: total, Result: result})
	}
}

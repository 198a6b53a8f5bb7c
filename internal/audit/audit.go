// Package audit runs axe-core against a live page in a headless browser.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/jonathan/wcag-check/internal/fetch"
	"github.com/jonathan/wcag-check/internal/types"
)

// DefaultTimeout bounds a full audit: navigation, script injection and rule evaluation.
const DefaultTimeout = 60 * time.Second

// DefaultAxeScriptURL is the axe-core build injected into audited pages.
const DefaultAxeScriptURL = "https://cdnjs.cloudflare.com/ajax/libs/axe-core/4.10.2/axe.min.js"

// Result types understood by axe-core.
const (
	ResultViolations   = "violations"
	ResultPasses       = "passes"
	ResultIncomplete   = "incomplete"
	ResultInapplicable = "inapplicable"
)

// FullResultTypes is used for the wcag-check report.
var FullResultTypes = []string{ResultViolations, ResultInapplicable, ResultPasses}

// ViolationsOnly is used when only remediation targets are needed.
var ViolationsOnly = []string{ResultViolations}

// Producer produces an audit report for a page.
type Producer interface {
	Audit(ctx context.Context, pageURL string, resultTypes []string) (*types.AuditReport, error)
}

// Error represents a failure while auditing a page.
type Error struct {
	URL     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("audit error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("audit error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Options configures the browser audit.
type Options struct {
	Timeout time.Duration
	// AxeScriptPath takes precedence over AxeScriptURL when set.
	AxeScriptPath string
	AxeScriptURL  string
	// SettleDelay is waited after the body is ready so client-side rendering can finish.
	SettleDelay  time.Duration
	FetchOptions *fetch.Options
	Verbose      bool
}

// DefaultOptions returns sensible defaults for auditing.
func DefaultOptions() *Options {
	return &Options{
		Timeout:      DefaultTimeout,
		AxeScriptURL: DefaultAxeScriptURL,
		SettleDelay:  2 * time.Second,
		FetchOptions: fetch.DefaultOptions(),
	}
}

// ChromeProducer audits pages with a headless Chrome driven by chromedp.
// Requires Chrome/Chromium to be installed on the system.
type ChromeProducer struct {
	opts *Options

	mu     sync.Mutex
	script string
}

// NewChromeProducer creates a producer. The axe-core script is loaded lazily
// on the first audit and reused afterwards.
func NewChromeProducer(opts *Options) *ChromeProducer {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &ChromeProducer{opts: opts}
}

// EnsureScheme prepends https:// when the URL has no http(s) scheme.
func EnsureScheme(pageURL string) string {
	pageURL = strings.TrimSpace(pageURL)
	lower := strings.ToLower(pageURL)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return pageURL
	}
	return "https://" + pageURL
}

// Audit navigates to pageURL and returns the axe-core v2 report.
func (p *ChromeProducer) Audit(ctx context.Context, pageURL string, resultTypes []string) (*types.AuditReport, error) {
	pageURL = EnsureScheme(pageURL)
	if len(resultTypes) == 0 {
		resultTypes = FullResultTypes
	}

	script, err := p.axeScript(ctx)
	if err != nil {
		return nil, &Error{URL: pageURL, Message: "failed to load axe-core", Cause: err}
	}

	if p.opts.Verbose {
		log.Printf("[BROWSER] Starting headless browser for: %s", pageURL)
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	timeout := p.opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	browserCtx, cancel = context.WithTimeout(browserCtx, timeout)
	defer cancel()

	runExpr, err := runExpression(resultTypes)
	if err != nil {
		return nil, &Error{URL: pageURL, Message: "invalid result types", Cause: err}
	}

	var raw []byte
	err = chromedp.Run(browserCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body"),
		chromedp.Sleep(p.opts.SettleDelay),
		chromedp.Evaluate(script+"\n;true", nil),
		chromedp.Evaluate(runExpr, &raw, awaitPromise),
	)
	if err != nil {
		return nil, &Error{URL: pageURL, Message: "browser audit failed", Cause: err}
	}

	report, err := DecodeReport(raw)
	if err != nil {
		return nil, &Error{URL: pageURL, Message: "unexpected axe-core result", Cause: err}
	}
	if report.URL == "" {
		report.URL = pageURL
	}

	if p.opts.Verbose {
		log.Printf("[AUDIT] %s: %d violations, %d passes, %d incomplete, %d inapplicable",
			report.URL, len(report.Violations), len(report.Passes), len(report.Incomplete), len(report.Inapplicable))
	}
	return report, nil
}

func awaitPromise(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithAwaitPromise(true)
}

// runExpression builds the axe.run call for the given result types.
func runExpression(resultTypes []string) (string, error) {
	for _, rt := range resultTypes {
		switch rt {
		case ResultViolations, ResultPasses, ResultIncomplete, ResultInapplicable:
		default:
			return "", fmt.Errorf("unknown result type %q", rt)
		}
	}
	options, err := json.Marshal(map[string]any{
		"reporter":         "v2",
		"performanceTimer": false,
		"resultTypes":      resultTypes,
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("axe.run(document, %s)", options), nil
}

// DecodeReport parses the JSON produced by axe.run into an AuditReport.
// Missing sections decode as empty slices.
func DecodeReport(raw []byte) (*types.AuditReport, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty result")
	}
	var report types.AuditReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, err
	}
	if report.Violations == nil {
		report.Violations = []types.Violation{}
	}
	if report.Passes == nil {
		report.Passes = []types.Violation{}
	}
	if report.Incomplete == nil {
		report.Incomplete = []types.Violation{}
	}
	if report.Inapplicable == nil {
		report.Inapplicable = []types.Violation{}
	}
	return &report, nil
}

// axeScript returns the axe-core source, loading it on first use.
func (p *ChromeProducer) axeScript(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.script != "" {
		return p.script, nil
	}

	var script string
	switch {
	case p.opts.AxeScriptPath != "":
		data, err := os.ReadFile(p.opts.AxeScriptPath)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", p.opts.AxeScriptPath, err)
		}
		script = string(data)
	default:
		scriptURL := p.opts.AxeScriptURL
		if scriptURL == "" {
			scriptURL = DefaultAxeScriptURL
		}
		result, err := fetch.URL(ctx, scriptURL, p.opts.FetchOptions)
		if err != nil {
			return "", err
		}
		script = result.Text()
	}

	if strings.TrimSpace(script) == "" {
		return "", fmt.Errorf("axe-core script is empty")
	}
	p.script = script
	return script, nil
}

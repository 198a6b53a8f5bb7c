package remediation

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/wcag-check/internal/imaging"
	"github.com/jonathan/wcag-check/internal/types"
)

// fakeCaptioner returns a fixed outcome and records what it was sent.
type fakeCaptioner struct {
	mu         sync.Mutex
	calls      int
	mediaTypes []string
	outcome    types.CaptionOutcome
	delay      time.Duration
}

func (f *fakeCaptioner) Caption(_ context.Context, _ []byte, mediaType string) types.CaptionOutcome {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.mediaTypes = append(f.mediaTypes, mediaType)
	return f.outcome
}

func (f *fakeCaptioner) Name() string { return "fake" }
func (f *fakeCaptioner) Close() error { return nil }

func (f *fakeCaptioner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// memoryCache is an in-memory Cache.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string]string
	getErr  error
}

func (m *memoryCache) GetCaption(_ context.Context, imageURL string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", false, m.getErr
	}
	text, ok := m.entries[imageURL]
	return text, ok, nil
}

func (m *memoryCache) SaveCaption(_ context.Context, imageURL, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[imageURL] = text
	return nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{B: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func animatedGIF() []byte {
	data := []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00")
	for i := 0; i < 2; i++ {
		data = append(data, 0x21, 0xF9, 0x04, 0x00, 0x0A, 0x00, 0x00, 0x00, 0x2C)
	}
	return append(data, 0x3B)
}

// imageHost serves a PNG for /*.png, an animated GIF for /anim.gif and 404 otherwise.
func imageHost(t *testing.T) *httptest.Server {
	t.Helper()
	pngData := pngBytes(t, 640, 480)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/anim.gif":
			w.Header().Set("Content-Type", "image/gif")
			_, _ = w.Write(animatedGIF())
		case "/broken.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write([]byte("not really a png"))
		case "/a.png", "/b.png", "/c.png", "/d.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(pngData)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func reportWithNodes(baseURL string, snippets ...string) *types.AuditReport {
	nodes := make([]types.ViolationNode, 0, len(snippets))
	for i, s := range snippets {
		nodes = append(nodes, types.ViolationNode{
			HTML:           s,
			Target:         types.Selector{"img:nth-child(" + string(rune('1'+i)) + ")"},
			FailureSummary: "Fix any of the following: Element does not have an alt attribute",
		})
	}
	return &types.AuditReport{
		URL: baseURL,
		Violations: []types.Violation{
			{ID: "color-contrast", Impact: types.ImpactSerious, Nodes: []types.ViolationNode{{HTML: `<img src="/a.png">`}}},
			{ID: types.ImageAltRuleID, Impact: types.ImpactCritical, Nodes: nodes},
		},
	}
}

func TestRemediate_SkipsNodesWithoutImage(t *testing.T) {
	host := imageHost(t)
	captioner := &fakeCaptioner{outcome: types.Success("a blue line")}

	report := reportWithNodes(host.URL, `<img src="/a.png">`, `<div role="img"></div>`)
	results, err := New(captioner).Remediate(context.Background(), report)
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, host.URL+"/a.png", results[0].ImageURL)
	require.NotNil(t, results[0].AltText)
	assert.Equal(t, "a blue line", *results[0].AltText)
	assert.Equal(t, "Fix any of the following: Element does not have an alt attribute", results[0].FailureSummary)
	assert.Equal(t, []string{"image/jpeg"}, captioner.mediaTypes)
}

func TestRemediate_ResolvesAgainstReportURL(t *testing.T) {
	report := reportWithNodes("https://ex.com", `<img src="/a.png">`, `<span>no image</span>`)
	captioner := &fakeCaptioner{outcome: types.Success("unused")}

	// Image host is unreachable in tests; the entry still carries the resolved URL.
	r := New(captioner)
	r.fetchOpts.Client = &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("offline")
	})}

	results, err := r.Remediate(context.Background(), report)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "https://ex.com/a.png", results[0].ImageURL)
	assert.Equal(t, types.Failure(types.ReasonFetchError), results[0].Outcome)
	require.NotNil(t, results[0].AltText)
	assert.Equal(t, DefaultFailureMarker, *results[0].AltText)
	assert.Zero(t, captioner.callCount())
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestRemediate_AnimatedGIFSkippedWithoutInference(t *testing.T) {
	host := imageHost(t)
	captioner := &fakeCaptioner{outcome: types.Success("should not be used")}

	results, err := New(captioner).Remediate(context.Background(), reportWithNodes(host.URL, `<img src="/anim.gif">`))
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Nil(t, results[0].AltText)
	assert.Equal(t, types.Skipped(types.ReasonAnimatedImage), results[0].Outcome)
	assert.Zero(t, captioner.callCount())
}

func TestRemediate_FailuresAreRecordedPerEntry(t *testing.T) {
	host := imageHost(t)
	captioner := &fakeCaptioner{outcome: types.Failure(types.ReasonServiceError)}

	report := reportWithNodes(host.URL,
		`<img src="/missing.png">`,
		`<img src="/broken.png">`,
		`<img src="/a.png">`,
	)
	results, err := New(captioner, WithFailureMarker("caption failed")).Remediate(context.Background(), report)
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, types.Failure(types.ReasonFetchError), results[0].Outcome)
	assert.Equal(t, types.Failure(types.ReasonFetchError), results[1].Outcome)
	assert.Equal(t, types.Failure(types.ReasonServiceError), results[2].Outcome)
	for _, r := range results {
		require.NotNil(t, r.AltText)
		assert.Equal(t, "caption failed", *r.AltText)
	}
	assert.Equal(t, 1, captioner.callCount())
}

func TestRemediate_OversizedImageFailsOnlyItsEntry(t *testing.T) {
	host := imageHost(t)
	captioner := &fakeCaptioner{outcome: types.Success("a blue line")}

	report := reportWithNodes(host.URL, `<img src="/a.png">`, `<img src="/anim.gif">`)
	normalize := imaging.DefaultNormalizeOptions()
	normalize.MaxPixels = 640*480 - 1

	results, err := New(captioner, WithNormalizeOptions(normalize), WithConcurrency(2)).
		Remediate(context.Background(), report)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, types.Failure(types.ReasonFetchError), results[0].Outcome)
	require.NotNil(t, results[0].AltText)
	assert.Equal(t, DefaultFailureMarker, *results[0].AltText)
	assert.Equal(t, types.Skipped(types.ReasonAnimatedImage), results[1].Outcome)
	assert.Zero(t, captioner.callCount())
}

func TestRemediate_NoImageAltViolation(t *testing.T) {
	report := &types.AuditReport{
		URL:        "https://ex.com",
		Violations: []types.Violation{{ID: "region", Nodes: []types.ViolationNode{{HTML: `<img src="/a.png">`}}}},
	}
	captioner := &fakeCaptioner{}

	results, err := New(captioner).Remediate(context.Background(), report)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
	assert.Zero(t, captioner.callCount())
}

func TestRemediate_InvalidReport(t *testing.T) {
	_, err := New(&fakeCaptioner{}).Remediate(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidReport)

	_, err = New(&fakeCaptioner{}).Remediate(context.Background(), &types.AuditReport{})
	assert.ErrorIs(t, err, ErrInvalidReport)
}

func TestRemediate_ConcurrentPreservesOrder(t *testing.T) {
	host := imageHost(t)
	captioner := &fakeCaptioner{outcome: types.Success("ok"), delay: 10 * time.Millisecond}

	report := reportWithNodes(host.URL,
		`<img src="/a.png">`,
		`<img src="/anim.gif">`,
		`<img src="/b.png">`,
		`<p>none</p>`,
		`<img src="/c.png">`,
		`<img src="/missing.png">`,
		`<img src="/d.png">`,
	)

	var mu sync.Mutex
	var seen []int
	r := New(captioner, WithConcurrency(4), WithProgress(func(e ProgressEvent) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, e.Index)
		assert.Equal(t, 6, e.Total)
	}))

	results, err := r.Remediate(context.Background(), report)
	require.NoError(t, err)

	want := []string{"/a.png", "/anim.gif", "/b.png", "/c.png", "/missing.png", "/d.png"}
	require.Len(t, results, len(want))
	for i, path := range want {
		assert.Equal(t, host.URL+path, results[i].ImageURL)
	}
	assert.Equal(t, types.OutcomeSkipped, results[1].Outcome.Kind)
	assert.Equal(t, types.OutcomeFailure, results[4].Outcome.Kind)
	assert.Equal(t, 4, captioner.callCount())
	assert.ElementsMatch(t, []int{0, 1, 2, 3, 4, 5}, seen)
}

func TestRemediate_SequentialProgressInOrder(t *testing.T) {
	host := imageHost(t)
	var seen []string
	r := New(&fakeCaptioner{outcome: types.Success("ok")}, WithProgress(func(e ProgressEvent) {
		seen = append(seen, e.Result.ImageURL)
	}))

	_, err := r.Remediate(context.Background(), reportWithNodes(host.URL, `<img src="/b.png">`, `<img src="/a.png">`))
	require.NoError(t, err)
	assert.Equal(t, []string{host.URL + "/b.png", host.URL + "/a.png"}, seen)
}

func TestRemediate_UsesCache(t *testing.T) {
	host := imageHost(t)
	cache := &memoryCache{entries: map[string]string{host.URL + "/b.png": "cached caption"}}
	captioner := &fakeCaptioner{outcome: types.Success("fresh caption")}
	r := New(captioner, WithCache(cache))

	results, err := r.Remediate(context.Background(), reportWithNodes(host.URL, `<img src="/a.png">`, `<img src="/b.png">`))
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "fresh caption", *results[0].AltText)
	assert.Equal(t, "cached caption", *results[1].AltText)
	assert.Equal(t, 1, captioner.callCount())
	assert.Equal(t, "fresh caption", cache.entries[host.URL+"/a.png"])
}

func TestRemediate_CacheErrorsAreIgnored(t *testing.T) {
	host := imageHost(t)
	cache := &memoryCache{entries: map[string]string{}, getErr: errors.New("db down")}
	captioner := &fakeCaptioner{outcome: types.Success("fresh caption")}

	results, err := New(captioner, WithCache(cache)).Remediate(context.Background(), reportWithNodes(host.URL, `<img src="/a.png">`))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "fresh caption", *results[0].AltText)
}

func TestRemediate_FailedCaptionsAreNotCached(t *testing.T) {
	host := imageHost(t)
	cache := &memoryCache{entries: map[string]string{}}
	captioner := &fakeCaptioner{outcome: types.Failure(types.ReasonNoCaption)}

	_, err := New(captioner, WithCache(cache)).Remediate(context.Background(), reportWithNodes(host.URL, `<img src="/a.png">`))
	require.NoError(t, err)
	assert.Empty(t, cache.entries)
}

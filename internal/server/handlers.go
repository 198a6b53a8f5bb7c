package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/jonathan/wcag-check/internal/audit"
	"github.com/jonathan/wcag-check/internal/remediation"
	"github.com/jonathan/wcag-check/internal/schemas"
	"github.com/jonathan/wcag-check/internal/summary"
	"github.com/jonathan/wcag-check/internal/types"
)

// maxBodyBytes caps request bodies, which may carry a full audit report.
const maxBodyBytes = 10 << 20

// AuditRequest is the accepted JSON body for the audit and remediation endpoints.
// The URL may also be given as the "url" query parameter or a plain-text body.
type AuditRequest struct {
	URL string `json:"url,omitempty"`
	// Report is a previously produced audit report; used by /alt-texts instead of a browser run.
	Report json.RawMessage `json:"report,omitempty"`
}

func (r *AuditRequest) hasReport() bool {
	trimmed := bytes.TrimSpace(r.Report)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// parseAuditRequest extracts the page URL and optional report.
// The query parameter wins over the body.
func parseAuditRequest(r *http.Request) (*AuditRequest, error) {
	req := &AuditRequest{URL: strings.TrimSpace(r.URL.Query().Get("url"))}
	if r.Body == nil || r.Method != http.MethodPost {
		return req, nil
	}

	body, err := readBody(r)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return req, nil
	}

	if body[0] != '{' {
		if req.URL == "" {
			req.URL = string(body)
		}
		return req, nil
	}

	var payload AuditRequest
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &ErrValidation{Field: "body", Message: "invalid JSON: " + err.Error()}
	}
	if req.URL == "" {
		req.URL = strings.TrimSpace(payload.URL)
	}
	req.Report = payload.Report
	return req, nil
}

func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, &ErrValidation{Field: "body", Message: "failed to read request body"}
	}
	if len(body) > maxBodyBytes {
		return nil, &ErrValidation{Field: "body", Message: "request body too large"}
	}
	return bytes.TrimSpace(body), nil
}

// decodeReport validates raw report JSON against the audit report schema and decodes it.
func decodeReport(raw []byte) (*types.AuditReport, error) {
	if err := schemas.ValidateAuditReport(raw); err != nil {
		return nil, &ErrReport{Cause: err}
	}
	var report types.AuditReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, &ErrReport{Cause: err}
	}
	return &report, nil
}

// reportFor returns the submitted report, or audits the requested page for violations.
func (s *Server) reportFor(ctx context.Context, req *AuditRequest) (*types.AuditReport, error) {
	if req.hasReport() {
		return decodeReport(req.Report)
	}
	if req.URL == "" {
		return nil, &ErrValidation{Field: "url", Message: "url or report is required"}
	}
	return s.producer.Audit(ctx, audit.EnsureScheme(req.URL), audit.ViolationsOnly)
}

// remediator builds a remediator for one request with any extra options appended.
func (s *Server) remediator(extra ...remediation.Option) *remediation.Remediator {
	opts := make([]remediation.Option, 0, len(s.remediation)+len(extra))
	opts = append(opts, s.remediation...)
	opts = append(opts, extra...)
	return remediation.New(s.captioner, opts...)
}

// liftWriteDeadline clears the server write timeout for a remediation run,
// whose length grows with the number of images. Fetch and caption calls keep
// their own timeouts and the request context still ends on client disconnect.
func liftWriteDeadline(w http.ResponseWriter, r *http.Request) {
	err := http.NewResponseController(w).SetWriteDeadline(time.Time{})
	if err != nil && !errors.Is(err, http.ErrNotSupported) {
		log.Printf("[%s] %s: clearing write deadline (request %s): %v", r.Method, r.URL.Path, requestID(r.Context()), err)
	}
}

// handleError logs err and writes it with the status from HTTPStatus.
func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	log.Printf("[%s] %s failed with %d (request %s): %v", r.Method, r.URL.Path, status, requestID(r.Context()), err)
	s.errorResponse(w, status, err.Error())
}

// handleWCAGCheck audits a page and returns the full report
func (s *Server) handleWCAGCheck(w http.ResponseWriter, r *http.Request) {
	req, err := parseAuditRequest(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	if req.URL == "" {
		s.handleError(w, r, &ErrValidation{Field: "url", Message: "url is required"})
		return
	}

	report, err := s.producer.Audit(r.Context(), audit.EnsureScheme(req.URL), audit.FullResultTypes)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, report)
}

// handleAltTexts generates alt text for every image-alt violation
func (s *Server) handleAltTexts(w http.ResponseWriter, r *http.Request) {
	req, err := parseAuditRequest(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	report, err := s.reportFor(r.Context(), req)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	liftWriteDeadline(w, r)
	results, err := s.remediator().Remediate(r.Context(), report)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	if s.verbose {
		log.Printf("[REMEDIATE] %s: %d results (request %s)", report.URL, len(results), requestID(r.Context()))
	}
	s.jsonResponse(w, http.StatusOK, results)
}

// handleAltTextsStream generates alt text and streams each result as it completes
func (s *Server) handleAltTextsStream(w http.ResponseWriter, r *http.Request) {
	req, err := parseAuditRequest(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	// Resolve the report before switching to SSE so input errors keep their status codes
	report, err := s.reportFor(r.Context(), req)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	liftWriteDeadline(w, r)

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	onProgress := func(event remediation.ProgressEvent) {
		if err := sse.WriteEvent("result", event); err != nil {
			log.Printf("Error writing SSE event (request %s): %v", requestID(r.Context()), err)
		}
	}

	results, err := s.remediator(remediation.WithProgress(onProgress)).Remediate(r.Context(), report)
	if err != nil {
		sse.WriteError(fmt.Sprintf("remediation failed: %v", err))
		return
	}

	sse.WriteComplete(len(results), "completed")
}

// handleSummary returns display statistics for a submitted report
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	if len(body) == 0 {
		s.handleError(w, r, &ErrValidation{Field: "body", Message: "audit report is required"})
		return
	}

	report, err := decodeReport(body)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, summary.Summarize(report))
}

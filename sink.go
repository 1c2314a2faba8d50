package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PositionSink receives position updates. Publish never returns an error of
// its own: every target yields a PublishResult, failed or not.
type PositionSink interface {
	Publish(ctx context.Context, busID string, update PositionUpdate) []PublishResult
}

// PublishResult is the outcome of delivering one update to one target.
type PublishResult struct {
	BusID      string
	URL        string
	RequestID  string
	StatusCode int
	Err        error
}

func (r PublishResult) OK() bool { return r.Err == nil }

// TransportFailure covers timeouts, connection errors and non-2xx replies.
// StatusCode is 0 when no response was received.
type TransportFailure struct {
	BusID      string
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportFailure) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("patch %s for %s: http status %d", e.URL, e.BusID, e.StatusCode)
	}
	return fmt.Sprintf("patch %s for %s: %v", e.URL, e.BusID, e.Err)
}

func (e *TransportFailure) Unwrap() error { return e.Err }

// HTTPSink PATCHes JSON documents into a Firebase-style REST tree:
// <base>/<collection>/<bus>/<field>.json
type HTTPSink struct {
	baseURLs   []string
	collection string
	field      string
	httpClient *http.Client
}

func NewHTTPSink(baseURLs []string, collection, field string, timeout time.Duration) *HTTPSink {
	bases := make([]string, 0, len(baseURLs))
	for _, b := range baseURLs {
		bases = append(bases, strings.TrimRight(b, "/"))
	}
	return &HTTPSink{
		baseURLs:   bases,
		collection: strings.Trim(collection, "/"),
		field:      strings.Trim(field, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSink) documentURL(base, busID string) string {
	return fmt.Sprintf("%s/%s/%s/%s.json", base, s.collection, url.PathEscape(busID), s.field)
}

func (s *HTTPSink) Publish(ctx context.Context, busID string, update PositionUpdate) []PublishResult {
	body, err := json.Marshal(update)
	results := make([]PublishResult, 0, len(s.baseURLs))
	for _, base := range s.baseURLs {
		target := s.documentURL(base, busID)
		if err != nil {
			results = append(results, PublishResult{
				BusID: busID,
				URL:   target,
				Err:   &TransportFailure{BusID: busID, URL: target, Err: err},
			})
			continue
		}
		results = append(results, s.patch(ctx, busID, target, body))
	}
	return results
}

func (s *HTTPSink) patch(ctx context.Context, busID, target string, body []byte) PublishResult {
	res := PublishResult{BusID: busID, URL: target, RequestID: uuid.NewString()}
	fail := func(err error) PublishResult {
		res.Err = &TransportFailure{BusID: busID, URL: target, StatusCode: res.StatusCode, Err: err}
		return res
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, target, bytes.NewReader(body))
	if err != nil {
		return fail(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", res.RequestID)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()
	// drain so the connection can be reused
	_, _ = io.Copy(io.Discard, resp.Body)

	res.StatusCode = resp.StatusCode
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fail(fmt.Errorf("unexpected status %s", resp.Status))
	}
	return res
}

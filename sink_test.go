package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	method      string
	path        string
	contentType string
	requestID   string
	body        []byte
}

// recordingServer answers every request with status and keeps what it got.
func recordingServer(t *testing.T, status int) (*httptest.Server, func() []capturedRequest) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []capturedRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, capturedRequest{
			method:      r.Method,
			path:        r.URL.Path,
			contentType: r.Header.Get("Content-Type"),
			requestID:   r.Header.Get("X-Request-Id"),
			body:        body,
		})
		mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`null`))
	}))
	t.Cleanup(srv.Close)
	return srv, func() []capturedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]capturedRequest(nil), reqs...)
	}
}

func TestHTTPSink_Publish(t *testing.T) {
	srv, requests := recordingServer(t, http.StatusOK)
	sink := NewHTTPSink([]string{srv.URL + "/"}, "/buses/", "location", time.Second)

	update := PositionUpdate{Lat: 30.31725, Lng: 78.0326, Timestamp: 1700000000123, Route: "Clock Tower"}
	results := sink.Publish(context.Background(), "bus1", update)

	require.Len(t, results, 1)
	res := results[0]
	assert.True(t, res.OK())
	assert.NoError(t, res.Err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, srv.URL+"/buses/bus1/location.json", res.URL)

	reqs := requests()
	require.Len(t, reqs, 1)
	got := reqs[0]
	assert.Equal(t, http.MethodPatch, got.method)
	assert.Equal(t, "/buses/bus1/location.json", got.path)
	assert.Equal(t, "application/json", got.contentType)
	assert.Equal(t, res.RequestID, got.requestID)
	_, err := uuid.Parse(got.requestID)
	assert.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(got.body, &body))
	assert.Equal(t, map[string]any{
		"lat":       30.31725,
		"lng":       78.0326,
		"timestamp": float64(1700000000123),
		"route":     "Clock Tower",
	}, body)
}

func TestHTTPSink_PublishOmitsEmptyRoute(t *testing.T) {
	srv, requests := recordingServer(t, http.StatusNoContent)
	sink := NewHTTPSink([]string{srv.URL}, "buses", "location", time.Second)

	results := sink.Publish(context.Background(), "bus2", PositionUpdate{Lat: 1, Lng: 2, Timestamp: 3})
	require.Len(t, results, 1)
	assert.True(t, results[0].OK())

	reqs := requests()
	require.Len(t, reqs, 1)
	assert.JSONEq(t, `{"lat":1,"lng":2,"timestamp":3}`, string(reqs[0].body))
}

func TestHTTPSink_Non2xxIsTransportFailure(t *testing.T) {
	srv, _ := recordingServer(t, http.StatusUnauthorized)
	sink := NewHTTPSink([]string{srv.URL}, "buses", "location", time.Second)

	results := sink.Publish(context.Background(), "bus1", PositionUpdate{})
	require.Len(t, results, 1)
	assert.False(t, results[0].OK())
	assert.Equal(t, http.StatusUnauthorized, results[0].StatusCode)

	var tf *TransportFailure
	require.True(t, errors.As(results[0].Err, &tf))
	assert.Equal(t, "bus1", tf.BusID)
	assert.Equal(t, http.StatusUnauthorized, tf.StatusCode)
	assert.Equal(t, srv.URL+"/buses/bus1/location.json", tf.URL)
	assert.Contains(t, tf.Error(), "http status 401")
}

func TestHTTPSink_ConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	sink := NewHTTPSink([]string{url}, "buses", "location", time.Second)
	results := sink.Publish(context.Background(), "bus1", PositionUpdate{})
	require.Len(t, results, 1)

	var tf *TransportFailure
	require.True(t, errors.As(results[0].Err, &tf))
	assert.Zero(t, tf.StatusCode)
	assert.Error(t, tf.Unwrap())
}

func TestHTTPSink_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	sink := NewHTTPSink([]string{srv.URL}, "buses", "location", 50*time.Millisecond)
	results := sink.Publish(context.Background(), "bus1", PositionUpdate{})
	require.Len(t, results, 1)

	var tf *TransportFailure
	require.True(t, errors.As(results[0].Err, &tf))
	assert.Zero(t, tf.StatusCode)
}

func TestHTTPSink_EveryBaseURLGetsItsOwnResult(t *testing.T) {
	up, upRequests := recordingServer(t, http.StatusOK)
	down, downRequests := recordingServer(t, http.StatusServiceUnavailable)
	sink := NewHTTPSink([]string{down.URL, up.URL}, "buses", "location", time.Second)

	results := sink.Publish(context.Background(), "bus1", PositionUpdate{Lat: 1, Lng: 1})
	require.Len(t, results, 2)
	assert.False(t, results[0].OK())
	assert.Equal(t, down.URL+"/buses/bus1/location.json", results[0].URL)
	assert.True(t, results[1].OK())
	assert.Equal(t, up.URL+"/buses/bus1/location.json", results[1].URL)

	assert.Len(t, upRequests(), 1)
	assert.Len(t, downRequests(), 1)
}

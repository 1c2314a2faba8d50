package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// Set with -ldflags "-X main.Version=..." at build time.
var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

type feedEncoder func(vehicles []Vehicle, now time.Time) ([]byte, error)

func registerRoutes(mux *http.ServeMux, t *tracker, hub *wsHub) {
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /api/vehicles", func(w http.ResponseWriter, r *http.Request) {
		vehicles := t.Snapshot()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(vehicles)
	})
	mux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"version":   Version,
			"commit":    Commit,
			"buildTime": BuildTime,
		})
	})

	mux.Handle("GET /data.json", hub.handler(t.Snapshot))
	mux.Handle("GET /gtfsrt", withLogging(feedHandler(t, "application/x-protobuf", encodeGtfsRt)))
	mux.Handle("GET /siri.json", withLogging(feedHandler(t, "application/json", encodeSiriJSON)))
	mux.Handle("GET /siri.xml", withLogging(feedHandler(t, "application/xml", encodeSiriXML)))
}

func feedHandler(t *tracker, contentType string, encode feedEncoder) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := encode(t.Snapshot(), time.Now())
		if err != nil {
			slog.Error("feed encode error", "path", r.URL.Path, "err", err)
			http.Error(w, "encode error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write(body)
	})
}

func withLogging(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slog.Debug("http request", "method", r.Method, "path", r.URL.Path)
		h.ServeHTTP(w, r)
	})
}

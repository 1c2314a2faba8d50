package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

// Duration reads Go duration strings ("3s", "500ms") from JSON.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"3s\": %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// BusConfig declares one simulated bus. Exactly one of Waypoints and Polyline
// must be set.
type BusConfig struct {
	ID        string     `json:"id"`
	Route     string     `json:"route"`
	Waypoints []Waypoint `json:"waypoints,omitempty"`
	Polyline  string     `json:"polyline,omitempty"`
}

// Config is everything a Publisher needs. Zero values are not usable; start
// from DefaultConfig or LoadConfig.
type Config struct {
	BaseURLs        []string    `json:"baseURLs"`
	Collection      string      `json:"collection"`
	Field           string      `json:"field"`
	StepsPerSegment int         `json:"stepsPerSegment"`
	Interval        Duration    `json:"interval"`
	RequestTimeout  Duration    `json:"requestTimeout"`
	MaxCycles       int         `json:"maxCycles"`
	Buses           []BusConfig `json:"buses"`
}

const defaultBaseURL = "https://realtime-location-tracke-5e9a7-default-rtdb.asia-southeast1.firebasedatabase.app"

// DefaultConfig runs two buses around central Dehradun.
func DefaultConfig() Config {
	return Config{
		BaseURLs:        []string{defaultBaseURL},
		Collection:      "buses",
		Field:           "location",
		StepsPerSegment: 20,
		Interval:        Duration(3 * time.Second),
		RequestTimeout:  Duration(5 * time.Second),
		Buses: []BusConfig{
			{
				ID:    "bus1",
				Route: "Clock Tower - Rajpur Road",
				Waypoints: []Waypoint{
					{Lat: 30.3165, Lng: 78.0322},
					{Lat: 30.3180, Lng: 78.0330},
					{Lat: 30.3212, Lng: 78.0368},
					{Lat: 30.3256, Lng: 78.0412},
				},
			},
			{
				ID:    "bus2",
				Route: "ISBT - Clock Tower",
				Waypoints: []Waypoint{
					{Lat: 30.2885, Lng: 77.9987},
					{Lat: 30.2990, Lng: 78.0105},
					{Lat: 30.3092, Lng: 78.0231},
					{Lat: 30.3165, Lng: 78.0322},
				},
			},
		},
	}
}

// LoadConfig reads a JSON file on top of DefaultConfig. Fields missing from
// the file keep their default; a "buses" list replaces the default buses.
func LoadConfig(path string) (Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	// json decodes array elements into whatever the slice already holds, so
	// lists start empty and only fall back to the defaults when absent.
	defaults := DefaultConfig()
	cfg := defaults
	cfg.BaseURLs = nil
	cfg.Buses = nil
	if err := json.Unmarshal(file, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.BaseURLs == nil {
		cfg.BaseURLs = defaults.BaseURLs
	}
	if cfg.Buses == nil {
		cfg.Buses = defaults.Buses
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var errs []error
	if len(c.BaseURLs) == 0 {
		errs = append(errs, errors.New("at least one base URL is required"))
	}
	for _, raw := range c.BaseURLs {
		u, err := url.Parse(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("base URL %q: %w", raw, err))
			continue
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			errs = append(errs, fmt.Errorf("base URL %q: scheme must be http or https", raw))
		}
	}
	if strings.Trim(c.Collection, "/") == "" {
		errs = append(errs, errors.New("collection is required"))
	}
	if strings.Trim(c.Field, "/") == "" {
		errs = append(errs, errors.New("field is required"))
	}
	if c.StepsPerSegment < 1 {
		errs = append(errs, fmt.Errorf("stepsPerSegment must be >= 1, got %d", c.StepsPerSegment))
	}
	if c.Interval <= 0 {
		errs = append(errs, fmt.Errorf("interval must be positive, got %s", time.Duration(c.Interval)))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("requestTimeout must be positive, got %s", time.Duration(c.RequestTimeout)))
	}
	if c.MaxCycles < 0 {
		errs = append(errs, fmt.Errorf("maxCycles must be >= 0, got %d", c.MaxCycles))
	}
	if len(c.Buses) == 0 {
		errs = append(errs, errors.New("at least one bus is required"))
	}
	seen := make(map[string]bool, len(c.Buses))
	for i, b := range c.Buses {
		switch {
		case b.ID == "":
			errs = append(errs, fmt.Errorf("bus #%d: id is required", i))
		case strings.Contains(b.ID, "/"):
			errs = append(errs, fmt.Errorf("bus %q: id must not contain '/'", b.ID))
		case seen[b.ID]:
			errs = append(errs, fmt.Errorf("bus %q: duplicate id", b.ID))
		}
		seen[b.ID] = true
		if (len(b.Waypoints) == 0) == (b.Polyline == "") {
			errs = append(errs, fmt.Errorf("bus %q: set exactly one of waypoints and polyline", b.ID))
		}
	}
	return errors.Join(errs...)
}

// routes builds the Route of every bus, in configuration order.
func (c Config) routes() ([]*Route, error) {
	out := make([]*Route, 0, len(c.Buses))
	for _, b := range c.Buses {
		name := b.Route
		if name == "" {
			name = b.ID
		}
		var (
			r   *Route
			err error
		)
		if b.Polyline != "" {
			r, err = NewRouteFromPolyline(name, b.Polyline)
		} else {
			r, err = NewRoute(name, b.Waypoints)
		}
		if err != nil {
			return nil, fmt.Errorf("bus %q: %w", b.ID, err)
		}
		out = append(out, r)
	}
	return out, nil
}

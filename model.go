package main

// Vehicle is the last known position of a bus as exposed by the monitor server.
type Vehicle struct {
	ID         string  `json:"id"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Route      string  `json:"route,omitempty"`
	LastUpdate int64   `json:"lastUpdate"`

	// LastPublishOK is false when any sink rejected the latest position.
	LastPublishOK bool `json:"lastPublishOK"`
}

// PositionUpdate is the document PATCHed to the sink. The bus id is part of
// the URL, not the body.
type PositionUpdate struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Timestamp int64   `json:"timestamp"`
	Route     string  `json:"route,omitempty"`
}

package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/twpayne/go-polyline"
	"gonum.org/v1/gonum/spatial/r2"
)

// Waypoint is a fixed coordinate in degrees. In JSON it is written as a
// [lat, lng] pair, the same order polyline coordinates use.
type Waypoint struct {
	Lat float64
	Lng float64
}

func (w Waypoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{w.Lat, w.Lng})
}

func (w *Waypoint) UnmarshalJSON(b []byte) error {
	var pair []float64
	if err := json.Unmarshal(b, &pair); err != nil {
		return fmt.Errorf("waypoint: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("waypoint: want [lat, lng], got %d values", len(pair))
	}
	w.Lat, w.Lng = pair[0], pair[1]
	return nil
}

func (w Waypoint) vec() r2.Vec { return r2.Vec{X: w.Lng, Y: w.Lat} }

func waypointFromVec(v r2.Vec) Waypoint { return Waypoint{Lat: v.Y, Lng: v.X} }

// Interpolate returns a + (b-a)*t on both axes. No great-circle correction is
// applied; over a few hundred metres the difference is far below GPS noise.
func Interpolate(a, b Waypoint, t float64) Waypoint {
	va := a.vec()
	return waypointFromVec(r2.Add(va, r2.Scale(t, r2.Sub(b.vec(), va))))
}

// Route is a cyclic, immutable list of waypoints. The segment after the last
// waypoint leads back to the first one.
type Route struct {
	name      string
	waypoints []Waypoint
}

var errEmptyRoute = errors.New("route has no waypoints")

func NewRoute(name string, waypoints []Waypoint) (*Route, error) {
	if len(waypoints) == 0 {
		return nil, fmt.Errorf("route %q: %w", name, errEmptyRoute)
	}
	wps := make([]Waypoint, len(waypoints))
	copy(wps, waypoints)
	return &Route{name: name, waypoints: wps}, nil
}

// NewRouteFromPolyline decodes a Google encoded polyline (precision 1e5).
func NewRouteFromPolyline(name, encoded string) (*Route, error) {
	coords, rest, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("route %q: decode polyline: %w", name, err)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("route %q: %d trailing bytes after polyline", name, len(rest))
	}
	wps := make([]Waypoint, 0, len(coords))
	for _, c := range coords {
		wps = append(wps, Waypoint{Lat: c[0], Lng: c[1]})
	}
	return NewRoute(name, wps)
}

func (r *Route) Name() string { return r.name }

// Len is the number of waypoints, which is also the number of segments.
func (r *Route) Len() int { return len(r.waypoints) }

func (r *Route) Waypoint(i int) Waypoint { return r.waypoints[i%len(r.waypoints)] }

// Segment returns the endpoints of segment i, wrapping around the route.
func (r *Route) Segment(i int) (Waypoint, Waypoint) {
	return r.Waypoint(i), r.Waypoint(i + 1)
}

// Polyline encodes the route's waypoints.
func (r *Route) Polyline() string {
	coords := make([][]float64, 0, len(r.waypoints))
	for _, w := range r.waypoints {
		coords = append(coords, []float64{w.Lat, w.Lng})
	}
	return string(polyline.EncodeCoords(coords))
}

// routeCursor walks a route in steps equal increments per segment. Step k of
// a segment sits at t = k/steps, so a segment's end waypoint is only reached
// as step 0 of the next segment.
type routeCursor struct {
	route   *Route
	steps   int
	segment int
	step    int
}

func newRouteCursor(r *Route, steps int) *routeCursor {
	return &routeCursor{route: r, steps: steps}
}

func (c *routeCursor) Position() Waypoint {
	a, b := c.route.Segment(c.segment)
	return Interpolate(a, b, float64(c.step)/float64(c.steps))
}

func (c *routeCursor) Advance() {
	c.step++
	if c.step < c.steps {
		return
	}
	c.step = 0
	c.segment = (c.segment + 1) % c.route.Len()
}

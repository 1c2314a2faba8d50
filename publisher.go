package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Recorder is told about every position the publisher emits, whether or not
// the sink accepted it.
type Recorder interface {
	Record(busID, route string, update PositionUpdate, results []PublishResult)
}

// Publisher walks each bus along its route and pushes one position per bus
// per cycle to the sink, then waits for the configured interval.
//
// Buses are published sequentially; a slow sink stretches the cycle rather
// than overlapping publishes.
type Publisher struct {
	sink      PositionSink
	clock     Clock
	recorder  Recorder
	log       *slog.Logger
	interval  time.Duration
	maxCycles int

	buses  []*simulatedBus
	cycles int
	lastTs int64
}

type simulatedBus struct {
	id     string
	cursor *routeCursor
}

type PublisherOption func(*Publisher)

func WithClock(c Clock) PublisherOption { return func(p *Publisher) { p.clock = c } }

func WithRecorder(r Recorder) PublisherOption { return func(p *Publisher) { p.recorder = r } }

func WithLogger(l *slog.Logger) PublisherOption { return func(p *Publisher) { p.log = l } }

func NewPublisher(cfg Config, sink PositionSink, opts ...PublisherOption) (*Publisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	routes, err := cfg.routes()
	if err != nil {
		return nil, err
	}
	p := &Publisher{
		sink:      sink,
		clock:     realClock{},
		log:       slog.Default(),
		interval:  time.Duration(cfg.Interval),
		maxCycles: cfg.MaxCycles,
	}
	for i, b := range cfg.Buses {
		p.buses = append(p.buses, &simulatedBus{
			id:     b.ID,
			cursor: newRouteCursor(routes[i], cfg.StepsPerSegment),
		})
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run publishes until ctx is cancelled or the configured number of cycles
// has completed. Publish failures never end the loop.
func (p *Publisher) Run(ctx context.Context) error {
	p.log.Info("publisher started", "buses", len(p.buses), "interval", p.interval)
	if p.log.Enabled(ctx, slog.LevelDebug) {
		for _, b := range p.buses {
			r := b.cursor.route
			p.log.Debug("bus route", "bus", b.id, "route", r.Name(), "waypoints", r.Len(), "polyline", r.Polyline())
		}
	}
	for {
		if ctx.Err() != nil {
			return nil
		}
		p.Step(ctx)
		if p.maxCycles > 0 && p.cycles >= p.maxCycles {
			p.log.Info("publisher finished", "cycles", p.cycles)
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-p.clock.After(p.interval):
		}
	}
}

// Step runs one cycle: every bus publishes its current position and moves
// one step along its route. A cancelled ctx ends the cycle early and it is
// not counted.
func (p *Publisher) Step(ctx context.Context) []PublishResult {
	var all []PublishResult
	for _, b := range p.buses {
		if ctx.Err() != nil {
			return all
		}
		all = append(all, p.publish(ctx, b)...)
		b.cursor.Advance()
	}
	p.cycles++
	return all
}

func (p *Publisher) publish(ctx context.Context, b *simulatedBus) []PublishResult {
	pos := b.cursor.Position()
	update := PositionUpdate{
		Lat:       pos.Lat,
		Lng:       pos.Lng,
		Timestamp: p.timestamp(),
		Route:     b.cursor.route.Name(),
	}
	results := p.sink.Publish(ctx, b.id, update)
	for _, r := range results {
		if r.OK() {
			p.log.Info("position published",
				"bus", b.id, "lat", update.Lat, "lng", update.Lng, "url", r.URL, "status", r.StatusCode)
			continue
		}
		p.log.Warn("publish failed",
			"bus", b.id, "url", r.URL, "request_id", r.RequestID, "err", r.Err)
	}
	if p.recorder != nil {
		p.recorder.Record(b.id, update.Route, update, results)
	}
	return results
}

// timestamp is the send time in ms, never earlier than the previous one even
// if the wall clock steps back.
func (p *Publisher) timestamp() int64 {
	ts := p.clock.Now().UnixMilli()
	if ts < p.lastTs {
		ts = p.lastTs
	}
	p.lastTs = ts
	return ts
}

// Cycles is the number of completed cycles.
func (p *Publisher) Cycles() int { return p.cycles }

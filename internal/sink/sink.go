package sink

import (
	"context"
	"errors"
	"fmt"

	"gpsdjson/internal/gpsd"
)

// Sink is an output for decoded records.
type Sink interface {
	Publish(ctx context.Context, rec gpsd.Record) error
	Close() error
}

// Fanout publishes every record to all of its sinks.
type Fanout struct {
	sinks []Sink
}

func NewFanout(sinks ...Sink) *Fanout {
	out := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return &Fanout{sinks: out}
}

func (f *Fanout) Len() int { return len(f.sinks) }

// Publish tries every sink even when one fails.
func (f *Fanout) Publish(ctx context.Context, rec gpsd.Record) error {
	var errs []error
	for i, s := range f.sinks {
		if err := s.Publish(ctx, rec); err != nil {
			errs = append(errs, fmt.Errorf("sink %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func (f *Fanout) Close() error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Filter passes only the named classes through to next. An empty class
// list passes everything.
type Filter struct {
	next    Sink
	classes map[string]bool
}

func NewFilter(next Sink, classes []string) Sink {
	if len(classes) == 0 {
		return next
	}
	m := make(map[string]bool, len(classes))
	for _, c := range classes {
		m[c] = true
	}
	return &Filter{next: next, classes: m}
}

func (f *Filter) Publish(ctx context.Context, rec gpsd.Record) error {
	if !f.classes[rec.Class()] {
		return nil
	}
	return f.next.Publish(ctx, rec)
}

func (f *Filter) Close() error { return f.next.Close() }

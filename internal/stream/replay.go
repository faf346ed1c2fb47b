package stream

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"gpsdjson/internal/gpsd"
)

// Capture format: gpspipe -w output, one JSON object per line.
//
// - Blank lines ignored.
// - Lines starting with '#' ignored.
// - NMEA passthrough lines ('$', '!') are kept and routed like live input.

// ReadCapture returns the non-comment lines of a capture.
func ReadCapture(r io.Reader) ([][]byte, error) {
	s := bufio.NewScanner(r)
	// SKY reports with many satellites run past the default 64 KiB.
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lines := make([][]byte, 0, 1024)
	for s.Scan() {
		line := bytes.TrimSpace(s.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		lines = append(lines, bytes.Clone(line))
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

type ReplayConfig struct {
	// Speed scales the gaps between record timestamps: 1 is real time,
	// 2 is twice as fast. 0 disables pacing.
	Speed float64
	Loop  bool

	// Sleep waits for d or until ctx ends. Nil uses a timer.
	Sleep func(ctx context.Context, d time.Duration) bool
}

// Replay routes captured lines, pacing records by their own timestamps.
// Lines that fail to decode are counted by the router and skipped.
func Replay(ctx context.Context, lines [][]byte, cfg ReplayConfig, router *Router) error {
	if router == nil {
		return errors.New("router is nil")
	}
	if cfg.Speed < 0 {
		return fmt.Errorf("replay speed must be >= 0")
	}
	if len(lines) == 0 {
		return errors.New("no records")
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	for {
		last := math.NaN()
		for _, line := range lines {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			rec, err := router.Decode(line)
			if err != nil || rec == nil {
				continue
			}

			if at, ok := RecordTime(rec); ok && cfg.Speed > 0 {
				if !math.IsNaN(last) && at > last {
					wait := time.Duration((at - last) / cfg.Speed * float64(time.Second))
					if !sleep(ctx, wait) {
						return ctx.Err()
					}
				}
				last = at
			}

			if err := router.Deliver(rec); err != nil {
				return err
			}
		}
		if !cfg.Loop {
			return nil
		}
	}
}

// ReplayFile reads a capture from path and replays it.
func ReplayFile(ctx context.Context, path string, cfg ReplayConfig, router *Router) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	lines, err := ReadCapture(f)
	_ = f.Close()
	if err != nil {
		return fmt.Errorf("read capture %s: %w", path, err)
	}
	return Replay(ctx, lines, cfg, router)
}

// RecordTime returns the epoch seconds carried by timed reports.
func RecordTime(rec gpsd.Record) (float64, bool) {
	var ts float64
	switch r := rec.(type) {
	case gpsd.TPV:
		ts = r.Timestamp
	case gpsd.SKY:
		ts = r.Timestamp
	case gpsd.GST:
		ts = r.Timestamp
	case gpsd.ATT:
		ts = r.Timestamp
	case gpsd.Poll:
		ts = r.Timestamp
	default:
		return 0, false
	}
	if math.IsNaN(ts) {
		return 0, false
	}
	return ts, true
}

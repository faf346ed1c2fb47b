package stream

import (
	"bytes"
	"log/slog"
	"sync/atomic"

	nmea "github.com/adrianmo/go-nmea"

	"gpsdjson/internal/gpsd"
)

// Handler receives every decoded record. It should be fast; if it can
// block, it should offload work.
type Handler func(rec gpsd.Record) error

// Router classifies raw gpsd output lines. JSON objects go to the decoder,
// NMEA passthrough sentences (sent when WATCH has nmea=true) are parsed
// with go-nmea and counted.
type Router struct {
	dec      *gpsd.Decoder
	logger   *slog.Logger
	onRecord Handler
	onNMEA   func(nmea.Sentence)

	records      atomic.Uint64
	sentences    atomic.Uint64
	decodeErrors atomic.Uint64
	nmeaErrors   atomic.Uint64
}

type RouterStats struct {
	Records      uint64 `json:"records"`
	Sentences    uint64 `json:"nmea_sentences"`
	DecodeErrors uint64 `json:"decode_errors"`
	NMEAErrors   uint64 `json:"nmea_errors"`
}

func NewRouter(dec *gpsd.Decoder, logger *slog.Logger, onRecord Handler) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{dec: dec, logger: logger, onRecord: onRecord}
}

// OnNMEA registers a callback for parsed passthrough sentences.
func (r *Router) OnNMEA(fn func(nmea.Sentence)) { r.onNMEA = fn }

func (r *Router) Stats() RouterStats {
	return RouterStats{
		Records:      r.records.Load(),
		Sentences:    r.sentences.Load(),
		DecodeErrors: r.decodeErrors.Load(),
		NMEAErrors:   r.nmeaErrors.Load(),
	}
}

// HandleLine decodes one line and delivers the result.
func (r *Router) HandleLine(line []byte) error {
	rec, err := r.Decode(line)
	if err != nil || rec == nil {
		return err
	}
	return r.Deliver(rec)
}

// Decode returns the record for a JSON line, or nil for blank and NMEA
// lines. Malformed NMEA is counted and dropped; malformed JSON is returned.
func (r *Router) Decode(line []byte) (gpsd.Record, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil, nil
	}
	if line[0] == '$' || line[0] == '!' {
		r.handleNMEA(string(line))
		return nil, nil
	}

	rec, err := r.dec.DecodeLine(line)
	if err != nil {
		r.decodeErrors.Add(1)
		r.logger.Warn("gpsd decode failed", "error", err, "bytes", len(line))
		return nil, err
	}
	return rec, nil
}

func (r *Router) Deliver(rec gpsd.Record) error {
	r.records.Add(1)
	if r.onRecord == nil {
		return nil
	}
	return r.onRecord(rec)
}

func (r *Router) handleNMEA(line string) {
	s, err := nmea.Parse(line)
	if err != nil {
		// Receivers emit partial sentences on startup; keep this quiet.
		r.nmeaErrors.Add(1)
		r.logger.Debug("nmea parse failed", "error", err)
		return
	}
	r.sentences.Add(1)
	if r.onNMEA != nil {
		r.onNMEA(s)
	}
}

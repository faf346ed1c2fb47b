package sink

import (
	"context"
	"io"
	"sync"

	"gpsdjson/internal/gpsd"
)

// Writer writes one encoded record per line (JSON) or a CBOR sequence.
type Writer struct {
	mu     sync.Mutex
	w      io.Writer
	format Format
}

func NewWriter(w io.Writer, format Format) *Writer {
	return &Writer{w: w, format: format}
}

func (s *Writer) Publish(_ context.Context, rec gpsd.Record) error {
	b, err := Encode(s.format, rec)
	if err != nil {
		return err
	}
	if s.format == FormatJSON {
		b = append(b, '\n')
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.w.Write(b)
	return err
}

func (s *Writer) Close() error {
	if c, ok := s.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

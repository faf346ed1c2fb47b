package main

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"gpsdjson/internal/gpsd"
	"gpsdjson/internal/stream"
)

type captureSummary struct {
	Lines       int
	Records     int
	NMEA        int
	NMEAInvalid int
	Invalid     int
	First       float64
	Last        float64
	ClassCounts map[string]int
}

func (s captureSummary) Span() time.Duration {
	if math.IsNaN(s.First) || math.IsNaN(s.Last) {
		return 0
	}
	return time.Duration((s.Last - s.First) * float64(time.Second))
}

// summarizeCapture runs lines through the same router as live input, so
// both agree on what counts as a record or a sentence.
func summarizeCapture(lines [][]byte, dec *gpsd.Decoder, logger *slog.Logger) captureSummary {
	s := captureSummary{First: math.NaN(), Last: math.NaN(), ClassCounts: map[string]int{}}
	router := stream.NewRouter(dec, logger, func(rec gpsd.Record) error {
		s.ClassCounts[rec.Class()]++
		if ts, ok := stream.RecordTime(rec); ok {
			if math.IsNaN(s.First) || ts < s.First {
				s.First = ts
			}
			if math.IsNaN(s.Last) || ts > s.Last {
				s.Last = ts
			}
		}
		return nil
	})
	for _, line := range lines {
		s.Lines++
		_ = router.HandleLine(line)
	}

	st := router.Stats()
	s.Records = int(st.Records)
	s.NMEA = int(st.Sentences)
	s.NMEAInvalid = int(st.NMEAErrors)
	s.Invalid = int(st.DecodeErrors)
	return s
}

func printCaptureSummary(w io.Writer, path string, dec *gpsd.Decoder, logger *slog.Logger) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("path is empty")
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	lines, err := stream.ReadCapture(f)
	if err != nil {
		return err
	}
	s := summarizeCapture(lines, dec, logger)

	fmt.Fprintf(w, "path: %s\n", path)
	fmt.Fprintf(w, "lines: %d\n", s.Lines)
	fmt.Fprintf(w, "records: %d\n", s.Records)
	fmt.Fprintf(w, "nmea_sentences: %d\n", s.NMEA)
	fmt.Fprintf(w, "invalid_nmea: %d\n", s.NMEAInvalid)
	fmt.Fprintf(w, "invalid_lines: %d\n", s.Invalid)
	fmt.Fprintf(w, "span: %s\n", s.Span())

	classes := make([]string, 0, len(s.ClassCounts))
	for c := range s.ClassCounts {
		classes = append(classes, c)
	}
	sort.Strings(classes)
	fmt.Fprintf(w, "class_counts:\n")
	for _, c := range classes {
		fmt.Fprintf(w, "  %s: %d\n", c, s.ClassCounts[c])
	}
	return nil
}

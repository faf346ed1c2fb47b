package gpsd

import (
	"math"
	"time"
)

// timeLayout is the fixed ISO-8601 form gpsd uses for "time" fields.
const timeLayout = "2006-01-02T15:04:05.000Z"

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err == nil {
		return t, nil
	}
	// Newer daemons may send a different fractional precision.
	if t, rerr := time.Parse(time.RFC3339Nano, s); rerr == nil {
		return t.UTC(), nil
	}
	return time.Time{}, err
}

// timestamp resolves a time field to seconds since the Unix epoch with
// millisecond resolution. The field may hold an ISO-8601 string or a raw
// epoch number; anything else degrades to NaN.
func (d *Decoder) timestamp(o Object, name string) float64 {
	raw, present := o[name]
	if !present || raw == nil {
		return math.NaN()
	}

	var perr error
	if s, ok := raw.(string); ok {
		t, err := parseTime(s)
		if err == nil {
			return float64(t.UnixMilli()) / 1000
		}
		perr = err
	}

	if v := o.Float(name, math.NaN()); !math.IsNaN(v) {
		return v
	}

	d.logger.Info("gpsd time parse failed", "field", name, "value", raw, "error", perr)
	return math.NaN()
}

func formatTimestamp(v float64) (string, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "", false
	}
	ms := int64(math.Round(v * 1000))
	return time.UnixMilli(ms).UTC().Format(timeLayout), true
}

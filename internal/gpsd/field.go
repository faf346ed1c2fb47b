package gpsd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
)

// Object is one parsed gpsd JSON object. Numbers stay json.Number so the
// accessors can tell numeric, boolean and string kinds apart.
type Object map[string]any

// ParseObject parses one line of gpsd output. Anything other than a single
// well-formed JSON object is a *SyntaxError.
func ParseObject(line []byte) (Object, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &SyntaxError{Err: err}
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, &SyntaxError{Err: errors.New("trailing data after object")}
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, &SyntaxError{Err: fmt.Errorf("not a JSON object (%T)", v)}
	}
	return Object(m), nil
}

// Has reports whether name is present, even with a null value.
func (o Object) Has(name string) bool {
	_, ok := o[name]
	return ok
}

func (o Object) Float(name string, fallback float64) float64 { return get(o, name, fallback) }

func (o Object) Int(name string, fallback int) int { return get(o, name, fallback) }

func (o Object) Bool(name string, fallback bool) bool { return get(o, name, fallback) }

func (o Object) Text(name string, fallback string) string { return get(o, name, fallback) }

// Child returns the nested object stored under name.
func (o Object) Child(name string) (Object, bool) {
	m, ok := o[name].(map[string]any)
	if !ok {
		return nil, false
	}
	return Object(m), true
}

// get never fails: absent, null, non-primitive and wrong-kind values all
// yield fallback. A JSON string is never coerced to a number.
func get[T float64 | int | bool | string](o Object, name string, fallback T) T {
	v, ok := o[name]
	if !ok || v == nil {
		return fallback
	}

	var out any
	switch any(fallback).(type) {
	case float64:
		n, ok := v.(json.Number)
		if !ok {
			return fallback
		}
		f, err := n.Float64()
		if err != nil {
			return fallback
		}
		out = f
	case int:
		n, ok := v.(json.Number)
		if !ok {
			return fallback
		}
		i, ok := numberToInt(n)
		if !ok {
			return fallback
		}
		out = i
	case bool:
		b, ok := v.(bool)
		if !ok {
			return fallback
		}
		out = b
	case string:
		s, ok := v.(string)
		if !ok {
			return fallback
		}
		out = s
	}
	return out.(T)
}

// numberToInt truncates fractional values toward zero, the way gpsd clients
// have always read integer fields that some receivers send as floats.
func numberToInt(n json.Number) (int, bool) {
	if i, err := n.Int64(); err == nil {
		if i > math.MaxInt || i < math.MinInt {
			return 0, false
		}
		return int(i), true
	}
	// -float64(math.MinInt) is exactly 2^(bits-1); float64(math.MaxInt)
	// rounds up to it.
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || f >= -float64(math.MinInt) || f < float64(math.MinInt) {
		return 0, false
	}
	return int(f), true
}

func (o Object) int64Of(name string) int64 {
	n, ok := o[name].(json.Number)
	if !ok {
		return 0
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || f >= 1<<63 || f < -(1<<63) {
		return 0
	}
	return int64(f)
}

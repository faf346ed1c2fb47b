package sink

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"gpsdjson/internal/gpsd"
)

type Format int

const (
	FormatJSON Format = iota
	FormatCBOR
)

func (f Format) String() string {
	switch f {
	case FormatCBOR:
		return "cbor"
	default:
		return "json"
	}
}

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "cbor":
		return FormatCBOR, nil
	default:
		return 0, fmt.Errorf("unknown output format %q", s)
	}
}

// Core Deterministic Encoding: the same record always yields the same bytes.
var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error
	cborEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("sink: CBOR encoder initialization failed: " + err.Error())
	}
	cborDec, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("sink: CBOR decoder initialization failed: " + err.Error())
	}
}

// Encode renders the wire form of rec.
func Encode(f Format, rec gpsd.Record) ([]byte, error) {
	if rec == nil {
		return nil, fmt.Errorf("record is nil")
	}
	switch f {
	case FormatCBOR:
		return cborEnc.Marshal(rec.Wire())
	default:
		return json.Marshal(rec.Wire())
	}
}

// DecodeCBOR reads one CBOR-encoded record back into its wire map.
func DecodeCBOR(data []byte) (map[string]any, error) {
	var out map[string]any
	if err := cborDec.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

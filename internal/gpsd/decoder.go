package gpsd

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Protocol selects how POLL responses are laid out. It is chosen by the
// caller; the decoder never guesses it from message content.
type Protocol int

const (
	// ProtocolCurrent is the POLL layout of gpsd releases after 3.5.
	ProtocolCurrent Protocol = iota
	// ProtocolLegacy is the POLL layout of gpsd 3.5 and older.
	ProtocolLegacy
)

func (p Protocol) String() string {
	switch p {
	case ProtocolCurrent:
		return "current"
	case ProtocolLegacy:
		return "legacy"
	default:
		return fmt.Sprintf("protocol(%d)", int(p))
	}
}

// ParseProtocol maps a configuration string to a Protocol. The empty string
// means current.
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "current":
		return ProtocolCurrent, nil
	case "legacy":
		return ProtocolLegacy, nil
	default:
		return 0, fmt.Errorf("unknown gpsd protocol %q (want current or legacy)", s)
	}
}

type Options struct {
	Protocol Protocol

	// Logger receives non-fatal degradations (bad timestamps, unknown
	// subframe payloads). Defaults to slog.Default().
	Logger *slog.Logger

	// Now is used when a POLL carries no time at all. Defaults to time.Now.
	Now func() time.Time
}

// Decoder turns gpsd JSON objects into records. It holds no mutable state
// after construction and may be shared between goroutines.
type Decoder struct {
	protocol Protocol
	logger   *slog.Logger
	now      func() time.Time
	poll     builder
}

type builder func(d *Decoder, o Object) (Record, error)

func New(opts Options) *Decoder {
	d := &Decoder{
		protocol: opts.Protocol,
		logger:   opts.Logger,
		now:      opts.Now,
		poll:     (*Decoder).buildPoll,
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.now == nil {
		d.now = time.Now
	}
	if d.protocol == ProtocolLegacy {
		d.poll = (*Decoder).buildLegacyPoll
	}
	return d
}

func (d *Decoder) Protocol() Protocol { return d.protocol }

// fingerprints classify objects without a class field. Order matters: the
// first field present wins.
var fingerprints = []struct {
	field string
	build builder
}{
	{"PRN", pure((*Decoder).buildSAT)},
	{"deltai", pure((*Decoder).buildAlmanac)},
	{"IODC", pure((*Decoder).buildEphem1)},
	{"Crs", pure((*Decoder).buildEphem2)},
	{"IDOT", pure((*Decoder).buildEphem3)},
	{"ERD30", pure((*Decoder).buildERD)},
	{"SVH32", pure((*Decoder).buildHealth)},
	{"WNa", pure((*Decoder).buildHealth2)},
	{"WNlsf", pure((*Decoder).buildIono)},
}

func pure[R Record](fn func(d *Decoder, o Object) R) builder {
	return func(d *Decoder, o Object) (Record, error) {
		return fn(d, o), nil
	}
}

// DecodeLine parses and decodes one line of gpsd output.
func (d *Decoder) DecodeLine(line []byte) (Record, error) {
	o, err := ParseObject(line)
	if err != nil {
		return nil, err
	}
	return d.Decode(o)
}

// Decode classifies o by its class field, falling back to field
// fingerprints, and runs the matching builder.
func (d *Decoder) Decode(o Object) (Record, error) {
	class := o.Text("class", "")
	switch class {
	case ClassTPV:
		return d.buildTPV(o), nil
	case ClassSKY:
		return d.buildSKY(o)
	case ClassGST:
		return d.buildGST(o), nil
	case ClassATT:
		return d.buildATT(o), nil
	case ClassSubframe:
		return d.buildSubframe(o), nil
	case ClassVersion:
		return d.buildVersion(o), nil
	case ClassDevices:
		return d.buildDevices(o)
	case ClassDevice:
		return d.buildDevice(o), nil
	case ClassWatch:
		return d.buildWatch(o), nil
	case ClassPoll:
		return d.poll(d, o)
	case ClassError:
		return d.buildError(o), nil
	case ClassPPS:
		return d.buildPPS(o), nil
	}
	for _, fp := range fingerprints {
		if o.Has(fp.field) {
			return fp.build(d, o)
		}
	}
	return nil, &UnknownClassError{Class: class}
}

// decodeList decodes the array under key. An absent or null key yields an
// empty slice. Elements of the wrong record type are dropped with a warning.
func decodeList[T Record](d *Decoder, o Object, key string) ([]T, error) {
	out := make([]T, 0)
	raw, ok := o[key]
	if !ok || raw == nil {
		return out, nil
	}
	items, ok := raw.([]any)
	if !ok {
		d.logger.Warn("gpsd field is not an array", "field", key)
		return out, nil
	}
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, &SyntaxError{Err: fmt.Errorf("%s[%d] is not an object", key, i)}
		}
		rec, err := d.Decode(Object(m))
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", key, i, err)
		}
		v, ok := rec.(T)
		if !ok {
			d.logger.Warn("gpsd list element has unexpected class", "field", key, "index", i, "class", rec.Class())
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

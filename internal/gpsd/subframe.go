package gpsd

import (
	"encoding/json"
	"strconv"
)

// Subframe is one raw GPS navigation message subframe. At most one of
// SystemMessage and Payload is set; both are empty when gpsd sent a page
// this package does not know.
type Subframe struct {
	Device          string
	MSBs            int // TOW17
	SatelliteNumber int // tSV
	SubframeNumber  int // frame
	Scaled          bool
	PageID          int

	SystemMessage string

	// Payload is one of Almanac, Ephem1, Ephem2, Ephem3, ERD, Health,
	// Health2 or Iono.
	Payload Record
}

func (Subframe) Class() string { return ClassSubframe }

func (s Subframe) Wire() map[string]any {
	w := newWire(ClassSubframe)
	w.str("device", s.Device)
	w.int("TOW17", s.MSBs)
	w.int("tSV", s.SatelliteNumber)
	w.int("frame", s.SubframeNumber)
	w.bool("scaled", s.Scaled)
	w.int("pageid", s.PageID)
	w.str("system_message", s.SystemMessage)
	if s.Payload != nil {
		w[s.Payload.Class()] = s.Payload.Wire()
	}
	return w
}

func (s Subframe) MarshalJSON() ([]byte, error) { return json.Marshal(s.Wire()) }

// subframePayloads lists the payload keys in the order they are probed.
var subframePayloads = []string{
	ClassAlmanac,
	ClassEphem1,
	ClassEphem2,
	ClassEphem3,
	ClassERD,
	ClassHealth,
	ClassHealth2,
	ClassIono,
}

// buildSubframe never fails. A payload that cannot be resolved is logged
// and the header is returned on its own.
func (d *Decoder) buildSubframe(o Object) Subframe {
	sf := Subframe{
		Device:          o.Text("device", ""),
		MSBs:            o.Int("TOW17", 0),
		SatelliteNumber: o.Int("tSV", 0),
		SubframeNumber:  o.Int("frame", 0),
		Scaled:          o.Bool("scaled", false),
		PageID:          o.Int("pageid", 0),
	}

	if o.Has("system_message") {
		sf.SystemMessage = o.Text("system_message", "")
		return sf
	}

	for _, key := range subframePayloads {
		if !o.Has(key) {
			continue
		}
		child, ok := o.Child(key)
		if !ok {
			d.logger.Error("gpsd subframe payload is not an object", "payload", key, "tSV", sf.SatelliteNumber)
			return sf
		}
		rec, err := d.Decode(child)
		if err != nil {
			d.logger.Error("gpsd subframe payload decode failed", "payload", key, "tSV", sf.SatelliteNumber, "error", err)
			return sf
		}
		if rec.Class() != key {
			d.logger.Error("gpsd subframe payload mismatch", "payload", key, "decoded", rec.Class(), "tSV", sf.SatelliteNumber)
			return sf
		}
		sf.Payload = rec
		return sf
	}

	d.logger.Error("gpsd unknown subframe", "tSV", sf.SatelliteNumber, "frame", sf.SubframeNumber, "pageid", sf.PageID)
	return sf
}

// Almanac is a reduced-precision orbit for one satellite.
type Almanac struct {
	ID     int
	Health int
	E      float64
	Toa    int
	Deltai float64
	Omegad float64
	SqrtA  float64
	Omega0 float64
	Omega  float64
	M0     float64
	Af0    float64
	Af1    float64
}

func (Almanac) Class() string { return ClassAlmanac }

func (a Almanac) Wire() map[string]any {
	w := newWire("")
	w.int("ID", a.ID)
	w.int("Health", a.Health)
	w.float("e", a.E)
	w.int("toa", a.Toa)
	w.float("deltai", a.Deltai)
	w.float("Omegad", a.Omegad)
	w.float("sqrtA", a.SqrtA)
	w.float("Omega0", a.Omega0)
	w.float("omega", a.Omega)
	w.float("M0", a.M0)
	w.float("af0", a.Af0)
	w.float("af1", a.Af1)
	return w
}

func (a Almanac) MarshalJSON() ([]byte, error) { return json.Marshal(a.Wire()) }

func (d *Decoder) buildAlmanac(o Object) Almanac {
	return Almanac{
		ID:     o.Int("ID", 0),
		Health: o.Int("Health", 0),
		E:      o.Float("e", nan),
		Toa:    o.Int("toa", 0),
		Deltai: o.Float("deltai", nan),
		Omegad: o.Float("Omegad", nan),
		SqrtA:  o.Float("sqrtA", nan),
		Omega0: o.Float("Omega0", nan),
		Omega:  o.Float("omega", nan),
		M0:     o.Float("M0", nan),
		Af0:    o.Float("af0", nan),
		Af1:    o.Float("af1", nan),
	}
}

// Ephem1 is subframe 1: clock corrections and satellite health.
type Ephem1 struct {
	WN   int
	IODC int
	L2   int
	URA  float64
	Hlth float64
	L2P  int
	Tgd  float64
	Toc  int
	Af2  float64
	Af1  float64
	Af0  float64
}

func (Ephem1) Class() string { return ClassEphem1 }

func (e Ephem1) Wire() map[string]any {
	w := newWire("")
	w.int("WN", e.WN)
	w.int("IODC", e.IODC)
	w.int("L2", e.L2)
	w.float("ura", e.URA)
	w.float("hlth", e.Hlth)
	w.int("L2P", e.L2P)
	w.float("Tgd", e.Tgd)
	w.int("toc", e.Toc)
	w.float("af2", e.Af2)
	w.float("af1", e.Af1)
	w.float("af0", e.Af0)
	return w
}

func (e Ephem1) MarshalJSON() ([]byte, error) { return json.Marshal(e.Wire()) }

func (d *Decoder) buildEphem1(o Object) Ephem1 {
	return Ephem1{
		WN:   o.Int("WN", 0),
		IODC: o.Int("IODC", 0),
		L2:   o.Int("L2", 0),
		URA:  o.Float("ura", nan),
		Hlth: o.Float("hlth", nan),
		L2P:  o.Int("L2P", 0),
		Tgd:  o.Float("Tgd", nan),
		Toc:  o.Int("toc", 0),
		Af2:  o.Float("af2", nan),
		Af1:  o.Float("af1", nan),
		Af0:  o.Float("af0", nan),
	}
}

// Ephem2 is subframe 2 of the ephemeris.
type Ephem2 struct {
	IODE   int
	Crs    float64
	Deltan float64
	M0     float64
	Cuc    float64
	E      float64
	Cus    float64
	SqrtA  float64
	Toe    int
	FIT    int
	AODO   int
}

func (Ephem2) Class() string { return ClassEphem2 }

func (e Ephem2) Wire() map[string]any {
	w := newWire("")
	w.int("IODE", e.IODE)
	w.float("Crs", e.Crs)
	w.float("deltan", e.Deltan)
	w.float("M0", e.M0)
	w.float("Cuc", e.Cuc)
	w.float("e", e.E)
	w.float("Cus", e.Cus)
	w.float("sqrtA", e.SqrtA)
	w.int("toe", e.Toe)
	w.int("FIT", e.FIT)
	w.int("AODO", e.AODO)
	return w
}

func (e Ephem2) MarshalJSON() ([]byte, error) { return json.Marshal(e.Wire()) }

func (d *Decoder) buildEphem2(o Object) Ephem2 {
	return Ephem2{
		IODE:   o.Int("IODE", 0),
		Crs:    o.Float("Crs", nan),
		Deltan: o.Float("deltan", nan),
		M0:     o.Float("M0", nan),
		Cuc:    o.Float("Cuc", nan),
		E:      o.Float("e", nan),
		Cus:    o.Float("Cus", nan),
		SqrtA:  o.Float("sqrtA", nan),
		Toe:    o.Int("toe", 0),
		FIT:    o.Int("FIT", 0),
		AODO:   o.Int("AODO", 0),
	}
}

// Ephem3 is subframe 3 of the ephemeris.
type Ephem3 struct {
	IODE   int
	IDOT   float64
	Cic    float64
	Omega0 float64
	Cis    float64
	I0     float64
	Crc    float64
	Omega  float64
	Omegad float64
}

func (Ephem3) Class() string { return ClassEphem3 }

func (e Ephem3) Wire() map[string]any {
	w := newWire("")
	w.int("IODE", e.IODE)
	w.float("IDOT", e.IDOT)
	w.float("Cic", e.Cic)
	w.float("Omega0", e.Omega0)
	w.float("Cis", e.Cis)
	w.float("i0", e.I0)
	w.float("Crc", e.Crc)
	w.float("omega", e.Omega)
	w.float("Omegad", e.Omegad)
	return w
}

func (e Ephem3) MarshalJSON() ([]byte, error) { return json.Marshal(e.Wire()) }

func (d *Decoder) buildEphem3(o Object) Ephem3 {
	return Ephem3{
		IODE:   o.Int("IODE", 0),
		IDOT:   o.Float("IDOT", nan),
		Cic:    o.Float("Cic", nan),
		Omega0: o.Float("Omega0", nan),
		Cis:    o.Float("Cis", nan),
		I0:     o.Float("i0", nan),
		Crc:    o.Float("Crc", nan),
		Omega:  o.Float("omega", nan),
		Omegad: o.Float("Omegad", nan),
	}
}

// ERD holds the 30 estimated range deviations of subframe 4 page 13.
type ERD struct {
	AI  int
	ERD [30]int // ERD1..ERD30
}

func (ERD) Class() string { return ClassERD }

func (e ERD) Wire() map[string]any {
	w := newWire("")
	w.int("ai", e.AI)
	indexed(w, "ERD", 1, e.ERD[:])
	return w
}

func (e ERD) MarshalJSON() ([]byte, error) { return json.Marshal(e.Wire()) }

func (d *Decoder) buildERD(o Object) ERD {
	e := ERD{AI: o.Int("ai", 0)}
	readIndexed(o, "ERD", 1, e.ERD[:])
	return e
}

// Health is subframe 5 page 25: per-satellite health for SV1..SV32.
type Health struct {
	DataID int
	SV     [32]int // SV1..SV32
	SVH    [8]int  // SVH25..SVH32
}

func (Health) Class() string { return ClassHealth }

func (h Health) Wire() map[string]any {
	w := newWire("")
	w.int("data_id", h.DataID)
	indexed(w, "SV", 1, h.SV[:])
	indexed(w, "SVH", 25, h.SVH[:])
	return w
}

func (h Health) MarshalJSON() ([]byte, error) { return json.Marshal(h.Wire()) }

func (d *Decoder) buildHealth(o Object) Health {
	h := Health{DataID: o.Int("data_id", 0)}
	readIndexed(o, "SV", 1, h.SV[:])
	readIndexed(o, "SVH", 25, h.SVH[:])
	return h
}

// Health2 is subframe 4 page 25: health of SV1..SV24 plus almanac reference.
type Health2 struct {
	Toa int
	WNa int
	SV  [24]int // SV1..SV24
}

func (Health2) Class() string { return ClassHealth2 }

func (h Health2) Wire() map[string]any {
	w := newWire("")
	w.int("toa", h.Toa)
	w.int("WNa", h.WNa)
	indexed(w, "SV", 1, h.SV[:])
	return w
}

func (h Health2) MarshalJSON() ([]byte, error) { return json.Marshal(h.Wire()) }

func (d *Decoder) buildHealth2(o Object) Health2 {
	h := Health2{
		Toa: o.Int("toa", 0),
		WNa: o.Int("WNa", 0),
	}
	readIndexed(o, "SV", 1, h.SV[:])
	return h
}

// Iono is subframe 4 page 18: ionospheric and UTC parameters.
type Iono struct {
	Alpha0 float64
	Alpha1 float64
	Alpha2 float64
	Alpha3 float64
	Beta0  float64
	Beta1  float64
	Beta2  float64
	Beta3  float64
	A0     float64
	A1     float64
	Tot    float64
	WNt    int
	Leap   int // ls
	WNlsf  int
	DN     int
	Lsf    int
}

func (Iono) Class() string { return ClassIono }

func (i Iono) Wire() map[string]any {
	w := newWire("")
	w.float("a0", i.Alpha0)
	w.float("a1", i.Alpha1)
	w.float("a2", i.Alpha2)
	w.float("a3", i.Alpha3)
	w.float("b0", i.Beta0)
	w.float("b1", i.Beta1)
	w.float("b2", i.Beta2)
	w.float("b3", i.Beta3)
	w.float("A0", i.A0)
	w.float("A1", i.A1)
	w.float("tot", i.Tot)
	w.int("WNt", i.WNt)
	w.int("ls", i.Leap)
	w.int("WNlsf", i.WNlsf)
	w.int("DN", i.DN)
	w.int("lsf", i.Lsf)
	return w
}

func (i Iono) MarshalJSON() ([]byte, error) { return json.Marshal(i.Wire()) }

func (d *Decoder) buildIono(o Object) Iono {
	return Iono{
		Alpha0: o.Float("a0", nan),
		Alpha1: o.Float("a1", nan),
		Alpha2: o.Float("a2", nan),
		Alpha3: o.Float("a3", nan),
		Beta0:  o.Float("b0", nan),
		Beta1:  o.Float("b1", nan),
		Beta2:  o.Float("b2", nan),
		Beta3:  o.Float("b3", nan),
		A0:     o.Float("A0", nan),
		A1:     o.Float("A1", nan),
		Tot:    o.Float("tot", nan),
		WNt:    o.Int("WNt", 0),
		Leap:   o.Int("ls", 0),
		WNlsf:  o.Int("WNlsf", 0),
		DN:     o.Int("DN", 0),
		Lsf:    o.Int("lsf", 0),
	}
}

// readIndexed fills dst from fields prefix<first>, prefix<first+1>, ...
func readIndexed(o Object, prefix string, first int, dst []int) {
	for i := range dst {
		dst[i] = o.Int(prefix+strconv.Itoa(first+i), 0)
	}
}

func indexed(w wire, prefix string, first int, src []int) {
	for i, v := range src {
		w.int(prefix+strconv.Itoa(first+i), v)
	}
}

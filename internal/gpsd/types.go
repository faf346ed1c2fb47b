package gpsd

import (
	"encoding/json"
	"math"
)

// Wire discriminators ("class" values) for top-level reports.
const (
	ClassTPV      = "TPV"
	ClassSKY      = "SKY"
	ClassGST      = "GST"
	ClassATT      = "ATT"
	ClassSubframe = "SUBFRAME"
	ClassVersion  = "VERSION"
	ClassDevices  = "DEVICES"
	ClassDevice   = "DEVICE"
	ClassWatch    = "WATCH"
	ClassPoll     = "POLL"
	ClassError    = "ERROR"
	ClassPPS      = "PPS"
)

// Names of records that never carry a "class" field on the wire. They are
// recognised by fingerprint (SAT) or by their key inside a SUBFRAME.
const (
	ClassSAT     = "SAT"
	ClassAlmanac = "ALMANAC"
	ClassEphem1  = "EPHEM1"
	ClassEphem2  = "EPHEM2"
	ClassEphem3  = "EPHEM3"
	ClassERD     = "ERD"
	ClassHealth  = "HEALTH"
	ClassHealth2 = "HEALTH2"
	ClassIono    = "IONO"
)

// Record is one decoded gpsd report.
//
// Wire returns the report's fields under their gpsd names. Fields that were
// absent (NaN, empty string) are left out so the map can be re-encoded and
// decoded again without inventing values.
type Record interface {
	Class() string
	Wire() map[string]any
}

// Mode is the NMEA fix mode reported in TPV.
type Mode int

const (
	ModeNotSeen Mode = iota
	ModeNoFix
	Mode2D
	Mode3D
)

func (m Mode) String() string {
	switch m {
	case ModeNotSeen:
		return "not-seen"
	case ModeNoFix:
		return "no-fix"
	case Mode2D:
		return "2d"
	case Mode3D:
		return "3d"
	default:
		return "unknown"
	}
}

// Parity of a serial device as reported in DEVICE.
type Parity string

const (
	ParityUnknown Parity = ""
	ParityNone    Parity = "N"
	ParityOdd     Parity = "O"
	ParityEven    Parity = "E"
)

func parseParity(s string) Parity {
	switch Parity(s) {
	case ParityNone, ParityOdd, ParityEven:
		return Parity(s)
	default:
		return ParityUnknown
	}
}

// TPV is a time-position-velocity report.
type TPV struct {
	Tag    string
	Device string

	// Timestamp is seconds since the Unix epoch, NaN when unknown.
	Timestamp      float64
	TimestampError float64

	Mode   Mode
	Status int

	Latitude    float64
	Longitude   float64
	Altitude    float64
	AltitudeHAE float64
	AltitudeMSL float64

	LatitudeError   float64
	LongitudeError  float64
	AltitudeError   float64
	HorizontalError float64

	Course    float64
	Speed     float64
	ClimbRate float64

	CourseError    float64
	SpeedError     float64
	ClimbRateError float64
}

func (TPV) Class() string { return ClassTPV }

func (t TPV) Wire() map[string]any {
	w := newWire(ClassTPV)
	w.str("tag", t.Tag)
	w.str("device", t.Device)
	w.time("time", t.Timestamp)
	w.float("ept", t.TimestampError)
	w.int("mode", int(t.Mode))
	if t.Status != 0 {
		w.int("status", t.Status)
	}
	w.float("lat", t.Latitude)
	w.float("lon", t.Longitude)
	w.float("alt", t.Altitude)
	w.float("altHAE", t.AltitudeHAE)
	w.float("altMSL", t.AltitudeMSL)
	w.float("epy", t.LatitudeError)
	w.float("epx", t.LongitudeError)
	w.float("epv", t.AltitudeError)
	w.float("eph", t.HorizontalError)
	w.float("track", t.Course)
	w.float("speed", t.Speed)
	w.float("climb", t.ClimbRate)
	w.float("epd", t.CourseError)
	w.float("eps", t.SpeedError)
	w.float("epc", t.ClimbRateError)
	return w
}

func (t TPV) MarshalJSON() ([]byte, error) { return json.Marshal(t.Wire()) }

// SAT is one satellite entry of a SKY report. Integer fields are -1 when
// the receiver did not report them.
type SAT struct {
	PRN            int
	Azimuth        int
	Elevation      int
	SignalStrength int
	Used           bool
}

func (SAT) Class() string { return ClassSAT }

func (s SAT) Wire() map[string]any {
	w := newWire("")
	w.intOpt("PRN", s.PRN, -1)
	w.intOpt("az", s.Azimuth, -1)
	w.intOpt("el", s.Elevation, -1)
	w.intOpt("ss", s.SignalStrength, -1)
	w.bool("used", s.Used)
	return w
}

func (s SAT) MarshalJSON() ([]byte, error) { return json.Marshal(s.Wire()) }

// SKY is the sky view: dilution of precision plus the visible satellites.
type SKY struct {
	Tag       string
	Device    string
	Timestamp float64

	LongitudeDOP      float64 // xdop
	LatitudeDOP       float64 // ydop
	AltitudeDOP       float64 // vdop
	TimestampDOP      float64 // tdop
	HorizontalDOP     float64 // hdop
	SphericalDOP      float64 // pdop
	HypersphericalDOP float64 // gdop

	// NumSatellites and UsedSatellites are -1 unless gpsd sent nSat/uSat.
	NumSatellites  int
	UsedSatellites int

	Satellites []SAT
}

func (SKY) Class() string { return ClassSKY }

func (s SKY) Wire() map[string]any {
	w := newWire(ClassSKY)
	w.str("tag", s.Tag)
	w.str("device", s.Device)
	w.time("time", s.Timestamp)
	w.float("xdop", s.LongitudeDOP)
	w.float("ydop", s.LatitudeDOP)
	w.float("vdop", s.AltitudeDOP)
	w.float("tdop", s.TimestampDOP)
	w.float("hdop", s.HorizontalDOP)
	w.float("pdop", s.SphericalDOP)
	w.float("gdop", s.HypersphericalDOP)
	w.intOpt("nSat", s.NumSatellites, -1)
	w.intOpt("uSat", s.UsedSatellites, -1)
	w.list("satellites", wireList(s.Satellites))
	return w
}

func (s SKY) MarshalJSON() ([]byte, error) { return json.Marshal(s.Wire()) }

// GST carries pseudorange noise statistics.
type GST struct {
	Tag       string
	Device    string
	Timestamp float64

	RMS    float64
	Major  float64
	Minor  float64
	Orient float64

	Latitude  float64
	Longitude float64
	Altitude  float64
}

func (GST) Class() string { return ClassGST }

func (g GST) Wire() map[string]any {
	w := newWire(ClassGST)
	w.str("tag", g.Tag)
	w.str("device", g.Device)
	w.time("time", g.Timestamp)
	w.float("rms", g.RMS)
	w.float("major", g.Major)
	w.float("minor", g.Minor)
	w.float("orient", g.Orient)
	w.float("lat", g.Latitude)
	w.float("lon", g.Longitude)
	w.float("alt", g.Altitude)
	return w
}

func (g GST) MarshalJSON() ([]byte, error) { return json.Marshal(g.Wire()) }

// ATT is an attitude report from a compass or IMU.
type ATT struct {
	Tag       string
	Device    string
	Timestamp float64

	Heading float64
	Pitch   float64
	Yaw     float64
	Roll    float64
	Dip     float64

	MagLength float64
	MagX      float64
	MagY      float64
	MagZ      float64

	AccLength float64
	AccX      float64
	AccY      float64
	AccZ      float64

	GyroX float64
	GyroY float64
	GyroZ float64

	Depth       float64
	Temperature float64

	MagState   string
	RollState  string
	PitchState string
	YawState   string
}

func (ATT) Class() string { return ClassATT }

func (a ATT) Wire() map[string]any {
	w := newWire(ClassATT)
	w.str("tag", a.Tag)
	w.str("device", a.Device)
	w.time("time", a.Timestamp)
	w.float("heading", a.Heading)
	w.float("pitch", a.Pitch)
	w.float("yaw", a.Yaw)
	w.float("roll", a.Roll)
	w.float("dip", a.Dip)
	w.float("mag_len", a.MagLength)
	w.float("mag_x", a.MagX)
	w.float("mag_y", a.MagY)
	w.float("mag_z", a.MagZ)
	w.float("acc_len", a.AccLength)
	w.float("acc_x", a.AccX)
	w.float("acc_y", a.AccY)
	w.float("acc_z", a.AccZ)
	w.float("gyro_x", a.GyroX)
	w.float("gyro_y", a.GyroY)
	w.float("gyro_z", a.GyroZ)
	w.float("depth", a.Depth)
	w.float("temperature", a.Temperature)
	w.str("mag_st", a.MagState)
	w.str("roll_st", a.RollState)
	w.str("pitch_st", a.PitchState)
	w.str("yaw_st", a.YawState)
	return w
}

func (a ATT) MarshalJSON() ([]byte, error) { return json.Marshal(a.Wire()) }

// Version identifies the daemon.
type Version struct {
	Release       string
	Revision      string
	ProtocolMajor int
	ProtocolMinor int
}

func (Version) Class() string { return ClassVersion }

func (v Version) Wire() map[string]any {
	w := newWire(ClassVersion)
	w.str("release", v.Release)
	w.str("rev", v.Revision)
	w.int("proto_major", v.ProtocolMajor)
	w.int("proto_minor", v.ProtocolMinor)
	return w
}

func (v Version) MarshalJSON() ([]byte, error) { return json.Marshal(v.Wire()) }

// Device describes one receiver attached to gpsd.
type Device struct {
	Path    string
	Driver  string
	Subtype string

	// Activated is seconds since the Unix epoch, NaN when unknown.
	Activated float64

	BPS        int
	Parity     Parity
	StopBits   int
	NativeMode bool

	// Cycle and MinCycle are in seconds.
	Cycle    float64
	MinCycle float64
}

func (Device) Class() string { return ClassDevice }

func (d Device) Wire() map[string]any {
	w := newWire(ClassDevice)
	w.str("path", d.Path)
	w.str("driver", d.Driver)
	w.str("subtype", d.Subtype)
	w.time("activated", d.Activated)
	w.int("bps", d.BPS)
	w.str("parity", string(d.Parity))
	w.int("stopbits", d.StopBits)
	if d.NativeMode {
		w.int("native", 1)
	} else {
		w.int("native", 0)
	}
	w.float("cycle", d.Cycle)
	w.float("mincycle", d.MinCycle)
	return w
}

func (d Device) MarshalJSON() ([]byte, error) { return json.Marshal(d.Wire()) }

// Devices is the roster of attached receivers.
type Devices struct {
	Devices []Device
}

func (Devices) Class() string { return ClassDevices }

func (d Devices) Wire() map[string]any {
	w := newWire(ClassDevices)
	w.list("devices", wireList(d.Devices))
	return w
}

func (d Devices) MarshalJSON() ([]byte, error) { return json.Marshal(d.Wire()) }

// Watch echoes the active subscription.
type Watch struct {
	Enable  bool
	Dump    bool // "json"
	NMEA    bool
	Raw     int
	Scaled  bool
	PPS     bool
	Split24 bool
	Device  string
}

func (Watch) Class() string { return ClassWatch }

func (wt Watch) Wire() map[string]any {
	w := newWire(ClassWatch)
	w.bool("enable", wt.Enable)
	w.bool("json", wt.Dump)
	w.bool("nmea", wt.NMEA)
	w.int("raw", wt.Raw)
	w.bool("scaled", wt.Scaled)
	w.bool("pps", wt.PPS)
	w.bool("split24", wt.Split24)
	w.str("device", wt.Device)
	return w
}

func (wt Watch) MarshalJSON() ([]byte, error) { return json.Marshal(wt.Wire()) }

// Poll is the answer to ?POLL; and bundles the latest reports of every
// active device.
type Poll struct {
	Timestamp float64
	Active    int
	Fixes     []TPV
	Skyviews  []SKY
	GST       []GST

	// legacy is set when the POLL came in the gpsd 3.5 layout, so Wire
	// writes it back the same way.
	legacy bool
}

func (Poll) Class() string { return ClassPoll }

func (p Poll) Wire() map[string]any {
	w := newWire(ClassPoll)
	w.time("time", p.Timestamp)
	w.int("active", p.Active)
	if p.legacy {
		w.list("fixes", wireList(p.Fixes))
		w.list("skyviews", wireList(p.Skyviews))
		return w
	}
	w.list("tpv", wireList(p.Fixes))
	w.list("sky", wireList(p.Skyviews))
	w.list("gst", wireList(p.GST))
	return w
}

func (p Poll) MarshalJSON() ([]byte, error) { return json.Marshal(p.Wire()) }

// Error is gpsd's reply to a command it could not honour.
type Error struct {
	Message string
}

func (Error) Class() string { return ClassError }

func (e Error) Wire() map[string]any {
	w := newWire(ClassError)
	w.str("message", e.Message)
	return w
}

func (e Error) MarshalJSON() ([]byte, error) { return json.Marshal(e.Wire()) }

// PPS pairs a pulse-per-second edge with the system clock.
type PPS struct {
	Device    string
	RealSec   int64
	RealNsec  int64
	ClockSec  int64
	ClockNsec int64
	Precision int
}

func (PPS) Class() string { return ClassPPS }

func (p PPS) Wire() map[string]any {
	w := newWire(ClassPPS)
	w.str("device", p.Device)
	w["real_sec"] = p.RealSec
	w["real_nsec"] = p.RealNsec
	w["clock_sec"] = p.ClockSec
	w["clock_nsec"] = p.ClockNsec
	w.int("precision", p.Precision)
	return w
}

func (p PPS) MarshalJSON() ([]byte, error) { return json.Marshal(p.Wire()) }

type wire map[string]any

func newWire(class string) wire {
	w := wire{}
	if class != "" {
		w["class"] = class
	}
	return w
}

func (w wire) float(name string, v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	w[name] = v
}

func (w wire) time(name string, v float64) {
	if s, ok := formatTimestamp(v); ok {
		w[name] = s
	}
}

func (w wire) str(name, v string) {
	if v != "" {
		w[name] = v
	}
}

func (w wire) int(name string, v int) { w[name] = v }

func (w wire) intOpt(name string, v, sentinel int) {
	if v != sentinel {
		w[name] = v
	}
}

func (w wire) bool(name string, v bool) { w[name] = v }

func (w wire) list(name string, v []map[string]any) { w[name] = v }

func wireList[T Record](items []T) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		out = append(out, it.Wire())
	}
	return out
}

package gpsd

import "math"

var nan = math.NaN()

func (d *Decoder) buildTPV(o Object) TPV {
	return TPV{
		Tag:             o.Text("tag", ""),
		Device:          o.Text("device", ""),
		Timestamp:       d.timestamp(o, "time"),
		TimestampError:  o.Float("ept", nan),
		Mode:            Mode(o.Int("mode", 0)),
		Status:          o.Int("status", 0),
		Latitude:        o.Float("lat", nan),
		Longitude:       o.Float("lon", nan),
		Altitude:        o.Float("alt", nan),
		AltitudeHAE:     o.Float("altHAE", nan),
		AltitudeMSL:     o.Float("altMSL", nan),
		LatitudeError:   o.Float("epy", nan),
		LongitudeError:  o.Float("epx", nan),
		AltitudeError:   o.Float("epv", nan),
		HorizontalError: o.Float("eph", nan),
		Course:          o.Float("track", nan),
		Speed:           o.Float("speed", nan),
		ClimbRate:       o.Float("climb", nan),
		CourseError:     o.Float("epd", nan),
		SpeedError:      o.Float("eps", nan),
		ClimbRateError:  o.Float("epc", nan),
	}
}

func (d *Decoder) buildSKY(o Object) (Record, error) {
	sats, err := decodeList[SAT](d, o, "satellites")
	if err != nil {
		return nil, err
	}
	return SKY{
		Tag:               o.Text("tag", ""),
		Device:            o.Text("device", ""),
		Timestamp:         d.timestamp(o, "time"),
		LongitudeDOP:      o.Float("xdop", nan),
		LatitudeDOP:       o.Float("ydop", nan),
		AltitudeDOP:       o.Float("vdop", nan),
		TimestampDOP:      o.Float("tdop", nan),
		HorizontalDOP:     o.Float("hdop", nan),
		SphericalDOP:      o.Float("pdop", nan),
		HypersphericalDOP: o.Float("gdop", nan),
		NumSatellites:     o.Int("nSat", -1),
		UsedSatellites:    o.Int("uSat", -1),
		Satellites:        sats,
	}, nil
}

func (d *Decoder) buildSAT(o Object) SAT {
	return SAT{
		PRN:            o.Int("PRN", -1),
		Azimuth:        o.Int("az", -1),
		Elevation:      o.Int("el", -1),
		SignalStrength: o.Int("ss", -1),
		Used:           o.Bool("used", false),
	}
}

func (d *Decoder) buildGST(o Object) GST {
	return GST{
		Tag:       o.Text("tag", ""),
		Device:    o.Text("device", ""),
		Timestamp: d.timestamp(o, "time"),
		RMS:       o.Float("rms", nan),
		Major:     o.Float("major", nan),
		Minor:     o.Float("minor", nan),
		Orient:    o.Float("orient", nan),
		Latitude:  o.Float("lat", nan),
		Longitude: o.Float("lon", nan),
		Altitude:  o.Float("alt", nan),
	}
}

func (d *Decoder) buildATT(o Object) ATT {
	return ATT{
		Tag:         o.Text("tag", ""),
		Device:      o.Text("device", ""),
		Timestamp:   d.timestamp(o, "time"),
		Heading:     o.Float("heading", nan),
		Pitch:       o.Float("pitch", nan),
		Yaw:         o.Float("yaw", nan),
		Roll:        o.Float("roll", nan),
		Dip:         o.Float("dip", nan),
		MagLength:   o.Float("mag_len", nan),
		MagX:        o.Float("mag_x", nan),
		MagY:        o.Float("mag_y", nan),
		MagZ:        o.Float("mag_z", nan),
		AccLength:   o.Float("acc_len", nan),
		AccX:        o.Float("acc_x", nan),
		AccY:        o.Float("acc_y", nan),
		AccZ:        o.Float("acc_z", nan),
		GyroX:       o.Float("gyro_x", nan),
		GyroY:       o.Float("gyro_y", nan),
		GyroZ:       o.Float("gyro_z", nan),
		Depth:       o.Float("depth", nan),
		Temperature: o.Float("temperature", nan),
		MagState:    o.Text("mag_st", ""),
		RollState:   o.Text("roll_st", ""),
		PitchState:  o.Text("pitch_st", ""),
		YawState:    o.Text("yaw_st", ""),
	}
}

func (d *Decoder) buildVersion(o Object) Version {
	return Version{
		Release:       o.Text("release", ""),
		Revision:      o.Text("rev", ""),
		ProtocolMajor: o.Int("proto_major", 0),
		ProtocolMinor: o.Int("proto_minor", 0),
	}
}

func (d *Decoder) buildDevice(o Object) Device {
	// Older clients read "stopbit"; gpsd itself sends "stopbits".
	stop := o.Int("stopbits", 0)
	if !o.Has("stopbits") {
		stop = o.Int("stopbit", 0)
	}
	return Device{
		Path:       o.Text("path", ""),
		Driver:     o.Text("driver", ""),
		Subtype:    o.Text("subtype", ""),
		Activated:  d.timestamp(o, "activated"),
		BPS:        o.Int("bps", 0),
		Parity:     parseParity(o.Text("parity", "")),
		StopBits:   stop,
		NativeMode: o.Int("native", 0) == 1,
		Cycle:      o.Float("cycle", nan),
		MinCycle:   o.Float("mincycle", nan),
	}
}

func (d *Decoder) buildDevices(o Object) (Record, error) {
	devs, err := decodeList[Device](d, o, "devices")
	if err != nil {
		return nil, err
	}
	return Devices{Devices: devs}, nil
}

func (d *Decoder) buildWatch(o Object) Watch {
	return Watch{
		Enable:  o.Bool("enable", true),
		Dump:    o.Bool("json", false),
		NMEA:    o.Bool("nmea", false),
		Raw:     o.Int("raw", 0),
		Scaled:  o.Bool("scaled", false),
		PPS:     o.Bool("pps", false),
		Split24: o.Bool("split24", false),
		Device:  o.Text("device", ""),
	}
}

func (d *Decoder) buildError(o Object) Error {
	return Error{Message: o.Text("message", "")}
}

func (d *Decoder) buildPPS(o Object) PPS {
	return PPS{
		Device:    o.Text("device", ""),
		RealSec:   o.int64Of("real_sec"),
		RealNsec:  o.int64Of("real_nsec"),
		ClockSec:  o.int64Of("clock_sec"),
		ClockNsec: o.int64Of("clock_nsec"),
		Precision: o.Int("precision", 0),
	}
}

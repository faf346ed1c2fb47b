package gpsd

import (
	"fmt"
	"strings"
	"testing"
)

func indexedFields(prefix string, first, n int, value func(i int) int) string {
	parts := make([]string, 0, n)
	for i := 0; i < n; i++ {
		parts = append(parts, fmt.Sprintf(`"%s%d":%d`, prefix, first+i, value(i)))
	}
	return strings.Join(parts, ",")
}

func TestSubframe_ERDPayload(t *testing.T) {
	d, logs := newTestDecoder(t, ProtocolCurrent)
	line := `{"class":"SUBFRAME","device":"/dev/ttyUSB0","tSV":3,"TOW17":99,"frame":4,"scaled":true,` +
		`"pageid":13,"ERD":{"ai":1,` + indexedFields("ERD", 1, 30, func(i int) int { return i + 1 }) + `}}`
	sf := decodeAs[Subframe](t, d, line)

	if sf.SatelliteNumber != 3 || sf.SubframeNumber != 4 || sf.MSBs != 99 || !sf.Scaled || sf.PageID != 13 {
		t.Fatalf("header=%+v", sf)
	}
	erd, ok := sf.Payload.(ERD)
	if !ok {
		t.Fatalf("payload=%T want ERD", sf.Payload)
	}
	if erd.AI != 1 {
		t.Fatalf("ai=%d", erd.AI)
	}
	for i, v := range erd.ERD {
		if v != i+1 {
			t.Fatalf("ERD%d=%d want %d", i+1, v, i+1)
		}
	}
	if logs.Len() != 0 {
		t.Fatalf("unexpected logs: %s", logs.String())
	}
}

func TestSubframe_HealthPayloads(t *testing.T) {
	d, _ := newTestDecoder(t, ProtocolCurrent)

	line := `{"class":"SUBFRAME","tSV":1,"frame":5,"HEALTH":{"data_id":1,` +
		indexedFields("SV", 1, 32, func(i int) int { return i % 2 }) + `,` +
		indexedFields("SVH", 25, 8, func(i int) int { return 60 + i }) + `}}`
	sf := decodeAs[Subframe](t, d, line)
	h, ok := sf.Payload.(Health)
	if !ok {
		t.Fatalf("payload=%T want Health", sf.Payload)
	}
	if h.DataID != 1 || h.SV[0] != 0 || h.SV[1] != 1 || h.SV[31] != 1 {
		t.Fatalf("health=%+v", h)
	}
	if h.SVH[0] != 60 || h.SVH[7] != 67 {
		t.Fatalf("svh=%v", h.SVH)
	}

	line = `{"class":"SUBFRAME","tSV":1,"frame":4,"HEALTH2":{"toa":319488,"WNa":140,` +
		indexedFields("SV", 1, 24, func(i int) int { return i }) + `}}`
	sf = decodeAs[Subframe](t, d, line)
	h2, ok := sf.Payload.(Health2)
	if !ok {
		t.Fatalf("payload=%T want Health2", sf.Payload)
	}
	if h2.Toa != 319488 || h2.WNa != 140 || h2.SV[23] != 23 {
		t.Fatalf("health2=%+v", h2)
	}
}

func TestSubframe_OrbitalPayloads(t *testing.T) {
	d, _ := newTestDecoder(t, ProtocolCurrent)

	sf := decodeAs[Subframe](t, d, `{"class":"SUBFRAME","tSV":25,"frame":5,"ALMANAC":{"ID":25,"Health":0,`+
		`"e":0.005,"toa":147456,"deltai":0.0066,"Omegad":-8.1e-09,"sqrtA":5153.6,"Omega0":2.9,"omega":0.7,`+
		`"M0":-1.3,"af0":0.0002,"af1":0.0}}`)
	a, ok := sf.Payload.(Almanac)
	if !ok || a.ID != 25 || a.SqrtA != 5153.6 || a.Toa != 147456 || a.Af1 != 0 {
		t.Fatalf("almanac=%+v (%T)", sf.Payload, sf.Payload)
	}

	sf = decodeAs[Subframe](t, d, `{"class":"SUBFRAME","tSV":7,"frame":1,"EPHEM1":{"WN":1900,"IODC":10,`+
		`"L2":1,"ura":2.0,"hlth":0,"L2P":0,"Tgd":-1.1e-08,"toc":3000,"af2":0,"af1":1e-12,"af0":0.0001}}`)
	e1, ok := sf.Payload.(Ephem1)
	if !ok || e1.WN != 1900 || e1.IODC != 10 || e1.Toc != 3000 || e1.Tgd != -1.1e-08 {
		t.Fatalf("ephem1=%+v", sf.Payload)
	}

	sf = decodeAs[Subframe](t, d, `{"class":"SUBFRAME","tSV":7,"frame":2,"EPHEM2":{"IODE":10,"Crs":12.5,`+
		`"deltan":4.5e-09,"M0":1.1,"Cuc":6e-07,"e":0.01,"Cus":8e-06,"sqrtA":5153.7,"toe":3000,"FIT":0,"AODO":27900}}`)
	e2, ok := sf.Payload.(Ephem2)
	if !ok || e2.Crs != 12.5 || e2.SqrtA != 5153.7 || e2.AODO != 27900 {
		t.Fatalf("ephem2=%+v", sf.Payload)
	}

	sf = decodeAs[Subframe](t, d, `{"class":"SUBFRAME","tSV":7,"frame":3,"EPHEM3":{"IODE":10,"IDOT":1e-10,`+
		`"Cic":1e-07,"Omega0":2.0,"Cis":-2e-08,"i0":0.96,"Crc":200.5,"omega":0.5,"Omegad":-8e-09}}`)
	e3, ok := sf.Payload.(Ephem3)
	if !ok || e3.IODE != 10 || e3.I0 != 0.96 || e3.Crc != 200.5 {
		t.Fatalf("ephem3=%+v", sf.Payload)
	}

	sf = decodeAs[Subframe](t, d, `{"class":"SUBFRAME","tSV":7,"frame":4,"pageid":56,"IONO":{"a0":1e-08,`+
		`"a1":0,"a2":-6e-08,"a3":0,"b0":90112,"b1":0,"b2":-196608,"b3":0,"A0":0,"A1":0,"tot":405504,`+
		`"WNt":140,"ls":18,"WNlsf":137,"DN":7,"lsf":18}}`)
	iono, ok := sf.Payload.(Iono)
	if !ok || iono.Leap != 18 || iono.WNlsf != 137 || iono.Beta2 != -196608 || iono.Tot != 405504 {
		t.Fatalf("iono=%+v", sf.Payload)
	}
}

func TestSubframe_SystemMessage(t *testing.T) {
	d, _ := newTestDecoder(t, ProtocolCurrent)
	sf := decodeAs[Subframe](t, d, `{"class":"SUBFRAME","tSV":2,"frame":4,"pageid":55,"system_message":"HELLO",`+
		`"IONO":{"WNlsf":1}}`)
	if sf.SystemMessage != "HELLO" {
		t.Fatalf("system_message=%q", sf.SystemMessage)
	}
	if sf.Payload != nil {
		t.Fatalf("payload=%T want nil when system_message is present", sf.Payload)
	}
}

func TestSubframe_UnknownPayloadIsHeaderOnly(t *testing.T) {
	cases := []string{
		`{"class":"SUBFRAME","tSV":3,"frame":4}`,
		`{"class":"SUBFRAME","tSV":3,"frame":4,"MYSTERY":{"x":1}}`,
		`{"class":"SUBFRAME","tSV":3,"frame":4,"ALMANAC":"oops"}`,
		`{"class":"SUBFRAME","tSV":3,"frame":4,"ALMANAC":{"ID":1}}`,
		`{"class":"SUBFRAME","tSV":3,"frame":4,"ALMANAC":{"IODC":1}}`,
	}
	for _, line := range cases {
		d, logs := newTestDecoder(t, ProtocolCurrent)
		sf := decodeAs[Subframe](t, d, line)
		if sf.SatelliteNumber != 3 || sf.SubframeNumber != 4 {
			t.Fatalf("%s: header=%+v", line, sf)
		}
		if sf.Payload != nil || sf.SystemMessage != "" {
			t.Fatalf("%s: expected header-only subframe, got %+v", line, sf)
		}
		if !strings.Contains(logs.String(), "level=ERROR") {
			t.Fatalf("%s: expected an error log, got %q", line, logs.String())
		}
	}
}

func TestSubframe_PayloadProbeOrder(t *testing.T) {
	d, _ := newTestDecoder(t, ProtocolCurrent)
	sf := decodeAs[Subframe](t, d, `{"class":"SUBFRAME","IONO":{"WNlsf":1},"ALMANAC":{"deltai":0.1}}`)
	if _, ok := sf.Payload.(Almanac); !ok {
		t.Fatalf("payload=%T want Almanac (probed first)", sf.Payload)
	}
}

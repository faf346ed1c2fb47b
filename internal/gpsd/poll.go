package gpsd

import "math"

// buildPoll decodes the POLL layout of gpsd after 3.5.
//
// A POLL without any time field is stamped with the decoder's clock.
func (d *Decoder) buildPoll(o Object) (Record, error) {
	p := Poll{Active: o.Int("active", 0)}

	switch {
	case o.Has("time"):
		p.Timestamp = d.timestamp(o, "time")
	case o.Has("timestamp"):
		p.Timestamp = o.Float("timestamp", math.NaN())
	default:
		p.Timestamp = float64(d.now().UnixMilli()) / 1000
	}

	var err error
	if p.Fixes, err = decodeList[TPV](d, o, firstKey(o, "tpv", "fixes")); err != nil {
		return nil, err
	}
	if p.Skyviews, err = decodeList[SKY](d, o, firstKey(o, "sky", "skyviews")); err != nil {
		return nil, err
	}
	if p.GST, err = decodeList[GST](d, o, "gst"); err != nil {
		return nil, err
	}
	return p, nil
}

// buildLegacyPoll decodes the POLL layout of gpsd 3.5 and older, which had
// no gst list and always used the fixes/skyviews keys.
func (d *Decoder) buildLegacyPoll(o Object) (Record, error) {
	p := Poll{
		Timestamp: d.timestamp(o, "time"),
		Active:    o.Int("active", 0),
		GST:       []GST{},
		legacy:    true,
	}

	var err error
	if p.Fixes, err = decodeList[TPV](d, o, "fixes"); err != nil {
		return nil, err
	}
	if p.Skyviews, err = decodeList[SKY](d, o, "skyviews"); err != nil {
		return nil, err
	}
	return p, nil
}

func firstKey(o Object, keys ...string) string {
	for _, k := range keys {
		if o.Has(k) {
			return k
		}
	}
	return keys[len(keys)-1]
}

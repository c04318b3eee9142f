package tzif

import "fmt"

// FixedZone returns V2 data for a zone that has always been at utoff
// seconds east of UT under the designation abbrev. It has no transitions
// and a footer TZ string equivalent to the single local time type.
func FixedZone(abbrev string, utoff int32) Data {
	desig := append([]byte(abbrev), 0)
	h := Header{
		Typecnt: 1,
		Charcnt: uint32(len(desig)),
	}
	ltt := []LocalTimeTypeRecord{{Utoff: utoff}}

	v1h := h
	v1h.Version = V2
	v2h := v1h

	return Data{
		Version:  V2,
		V1Header: v1h,
		V1Data: V1DataBlock{
			LocalTimeTypeRecord: append([]LocalTimeTypeRecord(nil), ltt...),
			TimeZoneDesignation: append([]byte(nil), desig...),
		},
		V2Header: v2h,
		V2Data: V2DataBlock{
			LocalTimeTypeRecord: ltt,
			TimeZoneDesignation: desig,
		},
		V2Footer: Footer{TZString: []byte(posixTZ(abbrev, utoff))},
	}
}

// posixTZ formats a fixed offset as a POSIX TZ string. POSIX offsets are
// west-positive, the inverse of Utoff.
func posixTZ(abbrev string, utoff int32) string {
	if len(abbrev) < 3 || !isAlpha(abbrev) {
		abbrev = "<" + abbrev + ">"
	}
	west := -int64(utoff)
	sign := ""
	if west < 0 {
		sign = "-"
		west = -west
	}
	h, m, s := west/3600, west/60%60, west%60
	switch {
	case s != 0:
		return fmt.Sprintf("%s%s%d:%02d:%02d", abbrev, sign, h, m, s)
	case m != 0:
		return fmt.Sprintf("%s%s%d:%02d", abbrev, sign, h, m)
	default:
		return fmt.Sprintf("%s%s%d", abbrev, sign, h)
	}
}

func isAlpha(s string) bool {
	for _, c := range s {
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return true
}

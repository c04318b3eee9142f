package tzif

import (
	"errors"
	"fmt"
)

// Validate checks the structural rules of RFC8536 that a reader relies on.
// All problems found are returned joined.
func Validate(d Data) error {
	var errs []error
	if d.Version != d.V1Header.Version || (d.Version > V1 && d.V1Header.Version != d.V2Header.Version) {
		errs = append(errs, fmt.Errorf("inconsistent version: file = %v, v1 header = %v, v2 header = %v", d.Version, d.V1Header.Version, d.V2Header.Version))
	}

	errs = append(errs, validateBlock("v1", d.V1Header, d.V1Data)...)

	if d.Version > V1 {
		errs = append(errs, validateBlock("v2", d.V2Header, d.V2Data)...)
		for _, c := range d.V2Footer.TZString {
			if c == 0 || c == asciiNewLine {
				errs = append(errs, fmt.Errorf("invalid footer: TZ string contains %q", c))
				break
			}
		}
	}

	return errors.Join(errs...)
}

func validateBlock[T TimeValue](name string, header Header, data DataBlock[T]) []error {
	var err []error

	// Isutcnt
	if header.Isutcnt != 0 && header.Isutcnt != header.Typecnt {
		err = append(err, fmt.Errorf("invalid %s isutcnt (%d): must be 0 or equal to typecnt (%d)", name, header.Isutcnt, header.Typecnt))
	}
	if len(data.UTLocalIndicators) != int(header.Isutcnt) {
		err = append(err, fmt.Errorf("invalid %s isutcnt: header = %d, data = %d", name, header.Isutcnt, len(data.UTLocalIndicators)))
	}

	// Isstdcnt
	if header.Isstdcnt != 0 && header.Isstdcnt != header.Typecnt {
		err = append(err, fmt.Errorf("invalid %s isstdcnt (%d): must be 0 or equal to typecnt (%d)", name, header.Isstdcnt, header.Typecnt))
	}
	if len(data.StandardWallIndicators) != int(header.Isstdcnt) {
		err = append(err, fmt.Errorf("invalid %s isstdcnt: header = %d, data = %d", name, header.Isstdcnt, len(data.StandardWallIndicators)))
	}
	for i, ut := range data.UTLocalIndicators {
		if ut && i < len(data.StandardWallIndicators) && !data.StandardWallIndicators[i] {
			err = append(err, fmt.Errorf("invalid %s indicators: type %d is UT but not standard time", name, i))
		}
	}

	// Leapcnt
	if len(data.LeapSecondRecords) != int(header.Leapcnt) {
		err = append(err, fmt.Errorf("invalid %s leapcnt: header = %d, data = %d", name, header.Leapcnt, len(data.LeapSecondRecords)))
	}

	// Timecnt
	if len(data.TransitionTimes) != int(header.Timecnt) {
		err = append(err, fmt.Errorf("invalid %s timecnt: header = %d, transition times = %d", name, header.Timecnt, len(data.TransitionTimes)))
	}
	if times, types := len(data.TransitionTimes), len(data.TransitionTypes); times != types {
		err = append(err, fmt.Errorf("inconsistent %s transitions: transition times = %d, transition types = %d", name, times, types))
	}
	for i := 1; i < len(data.TransitionTimes); i++ {
		if data.TransitionTimes[i] <= data.TransitionTimes[i-1] {
			err = append(err, fmt.Errorf("invalid %s transition times: not strictly ascending at index %d", name, i))
			break
		}
	}
	for i, typ := range data.TransitionTypes {
		if uint32(typ) >= header.Typecnt {
			err = append(err, fmt.Errorf("invalid %s transition type %d at index %d: typecnt = %d", name, typ, i, header.Typecnt))
			break
		}
	}

	// Typecnt
	if header.Typecnt == 0 {
		err = append(err, fmt.Errorf("invalid %s typecnt: must not be zero", name))
	}
	if len(data.LocalTimeTypeRecord) != int(header.Typecnt) {
		err = append(err, fmt.Errorf("invalid %s typecnt: header = %d, data = %d", name, header.Typecnt, len(data.LocalTimeTypeRecord)))
	}
	for i, r := range data.LocalTimeTypeRecord {
		if r.Utoff == -1<<31 {
			err = append(err, fmt.Errorf("invalid %s local time type %d: utoff must not be -2**31", name, i))
		}
		if uint32(r.Idx) >= header.Charcnt {
			err = append(err, fmt.Errorf("invalid %s local time type %d: idx %d out of range (charcnt = %d)", name, i, r.Idx, header.Charcnt))
		}
	}

	// Charcnt
	if header.Charcnt == 0 {
		err = append(err, fmt.Errorf("invalid %s charcnt: must not be zero", name))
	}
	if len(data.TimeZoneDesignation) != int(header.Charcnt) {
		err = append(err, fmt.Errorf("invalid %s charcnt: header = %d, data = %d", name, header.Charcnt, len(data.TimeZoneDesignation)))
	}
	if n := len(data.TimeZoneDesignation); n > 0 && data.TimeZoneDesignation[n-1] != 0 {
		err = append(err, fmt.Errorf("invalid %s time zone designations: missing null terminator", name))
	}
	return err
}

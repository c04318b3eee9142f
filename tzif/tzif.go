// Package tzif implements the TZif file format according to RFC8536.
// https://datatracker.ietf.org/doc/html/rfc8536
//
// Rules-data files carry one TZif blob per zone. This package decodes and
// validates those blobs; it does not interpret them.
package tzif

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// NOTE: All multi-octet integer values MUST be stored in network octet
// order format (high-order octet first, otherwise known as big-endian),
// with all bits significant.  Signed integer values MUST be represented
// using two's complement.
var order = binary.BigEndian

// Version represents the version of a TZif file.
// In V1, time values are 32bit and in V2 upwards time values are 64bit.
// Therefore, V1DataBlock is only used by V1 and V2DataBlock is used by V2, V3 and V4.
type Version byte

func (v Version) String() string {
	switch v {
	case V1:
		return "V1 (0x00)"
	case V2:
		return "V2 (0x32)"
	case V3:
		return "V3 (0x33)"
	case V4:
		return "V4 (0x34)"
	default:
		return fmt.Sprintf("<undefined version (%d)>", v)
	}
}

// Known reports whether v is one of the versions defined by RFC8536 or
// tzfile(5).
func (v Version) Known() bool {
	return v == V1 || v == V2 || v == V3 || v == V4
}

const (
	// V1 files contain only the version 1 header and data block.
	V1 Version = 0x00
	// V2 files contain the version 1 header and data block, a version 2+
	// header and data block, and a footer.
	V2 Version = 0x32 // '2'
	// V3 is V2 plus the TZ string extensions of RFC8536 section 3.3.1.
	V3 Version = 0x33 // '3'
	// V4 is specified in tzfile(5): the first leap second record may
	// truncate, and a repeated final correction marks table expiry.
	V4 Version = 0x34 // '4'
)

// Magic is the four-octet ASCII sequence "TZif" (0x54 0x5A 0x69 0x66),
// which identifies the file as utilizing the Time Zone Information Format.
var Magic = [4]byte{'T', 'Z', 'i', 'f'}

// HeaderSize is the encoded size of a header including the magic.
const HeaderSize = 44

// Header is the header of a TZif file.
//
//	+---------------+---+
//	|  magic    (4) |ver|
//	+---------------+---+---------------------------------------+
//	|           [unused - reserved for future use] (15)         |
//	+---------------+---------------+---------------+-----------+
//	|  isutcnt  (4) |  isstdcnt (4) |  leapcnt  (4) |
//	+---------------+---------------+---------------+
//	|  timecnt  (4) |  typecnt  (4) |  charcnt  (4) |
//	+---------------+---------------+---------------+
type Header struct {
	Version  Version
	Reserved [15]byte

	// Isutcnt is the number of UT/local indicators; zero or Typecnt.
	Isutcnt uint32
	// Isstdcnt is the number of standard/wall indicators; zero or Typecnt.
	Isstdcnt uint32
	// Leapcnt is the number of leap-second records.
	Leapcnt uint32
	// Timecnt is the number of transition times.
	Timecnt uint32
	// Typecnt is the number of local time type records. MUST NOT be zero.
	Typecnt uint32
	// Charcnt is the number of octets of time zone designations,
	// including the trailing NUL. MUST NOT be zero.
	Charcnt uint32
}

// Write writes the Header to w.
func (h Header) Write(w io.Writer) error {
	if _, err := w.Write(Magic[:]); err != nil {
		return err
	}
	return binary.Write(w, order, h)
}

// ReadHeader reads a header including its magic.
func ReadHeader(r io.Reader) (Header, error) {
	var (
		h     Header
		magic [4]byte
	)
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return h, fmt.Errorf("reading magic: %w", err)
	}
	if magic != Magic {
		return h, fmt.Errorf("invalid magic: %q", magic[:])
	}
	if err := binary.Read(r, order, &h); err != nil {
		return h, fmt.Errorf("reading header fields: %w", err)
	}
	return h, nil
}

// V1DataBlock is the data block of a version 1 TZif file (TIME_SIZE 4).
//
//	+---------------------------------------------------------+
//	|  transition times          (timecnt x TIME_SIZE)        |
//	+---------------------------------------------------------+
//	|  transition types          (timecnt)                    |
//	+---------------------------------------------------------+
//	|  local time type records   (typecnt x 6)                |
//	+---------------------------------------------------------+
//	|  time zone designations    (charcnt)                    |
//	+---------------------------------------------------------+
//	|  leap-second records       (leapcnt x (TIME_SIZE + 4))  |
//	+---------------------------------------------------------+
//	|  standard/wall indicators  (isstdcnt)                   |
//	+---------------------------------------------------------+
//	|  UT/local indicators       (isutcnt)                    |
//	+---------------------------------------------------------+
type V1DataBlock = DataBlock[int32]

// V2DataBlock is the data block of a version 2+ TZif file. It has the
// same layout as V1DataBlock with TIME_SIZE 8.
type V2DataBlock = DataBlock[int64]

// V1LeapSecondRecord is a leap-second record with a 32bit occurrence.
type V1LeapSecondRecord = LeapSecondRecord[int32]

// V2LeapSecondRecord is a leap-second record with a 64bit occurrence.
type V2LeapSecondRecord = LeapSecondRecord[int64]

// TimeValue is the type of transition and leap times: int32 in V1 data
// blocks, int64 in V2+ data blocks.
type TimeValue interface {
	int32 | int64
}

// DataBlock holds the body of a TZif file for one time size.
type DataBlock[T TimeValue] struct {
	// TransitionTimes are UNIX leap-time values in strictly ascending order.
	TransitionTimes []T
	// TransitionTypes index LocalTimeTypeRecord, one per transition time.
	TransitionTypes []uint8
	// LocalTimeTypeRecord describes each local time type.
	LocalTimeTypeRecord []LocalTimeTypeRecord
	// TimeZoneDesignation is a series of NUL-terminated designation strings.
	TimeZoneDesignation []byte
	// LeapSecondRecords are sorted by occurrence in ascending order.
	LeapSecondRecords []LeapSecondRecord[T]
	// StandardWallIndicators mark transition times given as standard time.
	StandardWallIndicators []bool
	// UTLocalIndicators mark transition times given as UT.
	UTLocalIndicators []bool
}

// Write writes the block to w in file order.
func (b DataBlock[T]) Write(w io.Writer) error {
	if err := binary.Write(w, order, b.TransitionTimes); err != nil {
		return err
	}
	if err := binary.Write(w, order, b.TransitionTypes); err != nil {
		return err
	}
	for _, r := range b.LocalTimeTypeRecord {
		if err := r.Write(w); err != nil {
			return err
		}
	}
	if _, err := w.Write(b.TimeZoneDesignation); err != nil {
		return err
	}
	for _, r := range b.LeapSecondRecords {
		if err := r.Write(w); err != nil {
			return err
		}
	}
	if err := binary.Write(w, order, b.StandardWallIndicators); err != nil {
		return err
	}
	return binary.Write(w, order, b.UTLocalIndicators)
}

// ReadV1DataBlock reads the version 1 data block described by h.
func ReadV1DataBlock(r io.Reader, h Header) (V1DataBlock, error) {
	return readDataBlock[int32](r, h)
}

// ReadV2DataBlock reads the version 2+ data block described by h.
func ReadV2DataBlock(r io.Reader, h Header) (V2DataBlock, error) {
	if h.Version < V2 {
		return V2DataBlock{}, fmt.Errorf("invalid header version: %v", h.Version)
	}
	return readDataBlock[int64](r, h)
}

func readDataBlock[T TimeValue](r io.Reader, h Header) (DataBlock[T], error) {
	var (
		b   DataBlock[T]
		err error
	)
	if b.TransitionTimes, err = readSlice[T](r, h.Timecnt); err != nil {
		return b, fmt.Errorf("reading transition times: %w", err)
	}
	if b.TransitionTypes, err = readSlice[uint8](r, h.Timecnt); err != nil {
		return b, fmt.Errorf("reading transition types: %w", err)
	}
	if b.LocalTimeTypeRecord, err = readSlice[LocalTimeTypeRecord](r, h.Typecnt); err != nil {
		return b, fmt.Errorf("reading local time type records: %w", err)
	}
	if b.TimeZoneDesignation, err = readSlice[byte](r, h.Charcnt); err != nil {
		return b, fmt.Errorf("reading time zone designations: %w", err)
	}
	if b.LeapSecondRecords, err = readSlice[LeapSecondRecord[T]](r, h.Leapcnt); err != nil {
		return b, fmt.Errorf("reading leap second records: %w", err)
	}
	if b.StandardWallIndicators, err = readSlice[bool](r, h.Isstdcnt); err != nil {
		return b, fmt.Errorf("reading standard/wall indicators: %w", err)
	}
	if b.UTLocalIndicators, err = readSlice[bool](r, h.Isutcnt); err != nil {
		return b, fmt.Errorf("reading UT/local indicators: %w", err)
	}
	return b, nil
}

// maxCount bounds every header count so a corrupt header cannot make the
// decoder allocate gigabytes before hitting EOF.
const maxCount = 1 << 20

// readSlice reads n fixed-size values. A zero count yields a nil slice.
func readSlice[E any](r io.Reader, n uint32) ([]E, error) {
	if n == 0 {
		return nil, nil
	}
	if n > maxCount {
		return nil, fmt.Errorf("count %d exceeds limit %d", n, maxCount)
	}
	s := make([]E, n)
	if err := binary.Read(r, order, s); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return s, nil
}

// LeapSecondRecord specifies the correction that needs to be applied to
// UTC in order to determine TAI.
//
//	+---------------+---------------+
//	|  occur (TIME_SIZE) |  corr (4) |
//	+---------------+---------------+
type LeapSecondRecord[T TimeValue] struct {
	// Occur is the UNIX leap time at which the correction occurs.
	Occur T
	// Corr is the value of LEAPCORR on or after the occurrence.
	Corr int32
}

// Write writes the record to w.
func (r LeapSecondRecord[T]) Write(w io.Writer) error {
	return binary.Write(w, order, r)
}

// LocalTimeTypeRecord represents a local time type record.
//
//	+---------------+---+---+
//	|  utoff (4)    |dst|idx|
//	+---------------+---+---+
type LocalTimeTypeRecord struct {
	// Utoff is the number of seconds to be added to UT in order to
	// determine local time. It MUST NOT be -2**31.
	Utoff int32
	// Dst indicates whether local time is Daylight Saving Time.
	Dst bool
	// Idx is an index into the time zone designations.
	Idx uint8
}

// Write writes the record to w.
func (r LocalTimeTypeRecord) Write(w io.Writer) error {
	return binary.Write(w, order, r)
}

// Footer represents the footer of a TZif file.
//
//	+---+--------------------+---+
//	| NL|  TZ string (0...)  |NL |
//	+---+--------------------+---+
type Footer struct {
	// TZString is a POSIX TZ rule for times after the last transition.
	// It is empty if that information is not available.
	TZString []byte
}

var asciiNewLine = byte(0x0A)

// maxTZString bounds the footer; real TZ strings are a few dozen bytes.
const maxTZString = 256

// Write writes the footer to w.
func (f Footer) Write(w io.Writer) error {
	if _, err := w.Write([]byte{asciiNewLine}); err != nil {
		return err
	}
	if _, err := w.Write(f.TZString); err != nil {
		return err
	}
	_, err := w.Write([]byte{asciiNewLine})
	return err
}

// ReadFooter reads a footer up to and including its closing newline.
func ReadFooter(r io.Reader) (Footer, error) {
	var (
		f   Footer
		buf [1]byte
	)
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return f, fmt.Errorf("reading newline: %w", err)
	}
	if buf[0] != asciiNewLine {
		return f, fmt.Errorf("expected newline: %v", buf[0])
	}
	var b bytes.Buffer
	for {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return f, fmt.Errorf("reading TZ string: %w", err)
		}
		if buf[0] == asciiNewLine {
			break
		}
		if b.Len() >= maxTZString {
			return f, fmt.Errorf("TZ string longer than %d bytes", maxTZString)
		}
		b.WriteByte(buf[0])
	}
	f.TZString = b.Bytes()
	return f, nil
}

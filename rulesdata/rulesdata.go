// Package rulesdata reads and writes the rules-data file: the single file
// holding every compiled zone of one time zone rules release.
//
// The layout is big-endian:
//
//	+------------------------------------------------------+
//	|  magic "tzdata" (6) | rules version (5) | NUL (1)    |
//	+------------------------------------------------------+
//	|  index offset (4) | data offset (4) | zone tab offset (4) |
//	+------------------------------------------------------+
//	|  index entries (n x 52)                              |
//	+------------------------------------------------------+
//	|  TZif data, one blob per index entry                 |
//	+------------------------------------------------------+
//	|  zone tab text (to end of file)                      |
//	+------------------------------------------------------+
//
// An index entry is a NUL-padded zone name (40), the blob offset relative
// to the data offset (4), the blob length (4) and a reserved field (4).
// Index entries are sorted by name.
package rulesdata

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
)

var order = binary.BigEndian

// Magic starts every rules-data file.
var Magic = [6]byte{'t', 'z', 'd', 'a', 't', 'a'}

const (
	// HeaderSize is the encoded size of the file header.
	HeaderSize = 24
	// IndexEntrySize is the encoded size of one index entry.
	IndexEntrySize = 52
	// MaxZoneNameLength is the size of the name field of an index entry.
	MaxZoneNameLength = 40
)

var rulesVersionPattern = regexp.MustCompile(`^[0-9]{4}[a-z]$`)

type header struct {
	Magic         [6]byte
	RulesVersion  [5]byte
	_             byte
	IndexOffset   int32
	DataOffset    int32
	ZoneTabOffset int32
}

type indexEntry struct {
	Name         [MaxZoneNameLength]byte
	Offset       int32
	Length       int32
	RawUTCOffset int32
}

func (e indexEntry) name() string {
	return string(bytes.TrimRight(e.Name[:], "\x00"))
}

// File is the decoded content of a rules-data file.
type File struct {
	// RulesVersion identifies the rules release, e.g. "2020a".
	RulesVersion string
	// Zones holds one TZif blob per zone.
	Zones []Zone
	// ZoneTab is the zone table text appended after the zone data.
	ZoneTab []byte
}

// Zone is a named TZif blob.
type Zone struct {
	Name string
	Data []byte
}

// Encode writes f to w. Zones are written sorted by name.
func Encode(w io.Writer, f File) error {
	if !rulesVersionPattern.MatchString(f.RulesVersion) {
		return fmt.Errorf("invalid rules version %q", f.RulesVersion)
	}
	zones := append([]Zone(nil), f.Zones...)
	sort.Slice(zones, func(i, j int) bool { return zones[i].Name < zones[j].Name })

	var (
		index []indexEntry
		data  int
	)
	for i, z := range zones {
		if z.Name == "" || len(z.Name) > MaxZoneNameLength {
			return fmt.Errorf("zone %d: invalid name %q", i, z.Name)
		}
		if i > 0 && zones[i-1].Name == z.Name {
			return fmt.Errorf("duplicate zone %q", z.Name)
		}
		var e indexEntry
		copy(e.Name[:], z.Name)
		e.Offset = int32(data)
		e.Length = int32(len(z.Data))
		index = append(index, e)
		data += len(z.Data)
	}

	h := header{Magic: Magic}
	copy(h.RulesVersion[:], f.RulesVersion)
	h.IndexOffset = HeaderSize
	h.DataOffset = h.IndexOffset + int32(len(index)*IndexEntrySize)
	h.ZoneTabOffset = h.DataOffset + int32(data)

	if err := binary.Write(w, order, h); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := binary.Write(w, order, index); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	for _, z := range zones {
		if _, err := w.Write(z.Data); err != nil {
			return fmt.Errorf("write zone %s: %w", z.Name, err)
		}
	}
	if _, err := w.Write(f.ZoneTab); err != nil {
		return fmt.Errorf("write zone tab: %w", err)
	}
	return nil
}

// Marshal returns the encoded form of f.
func Marshal(f File) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func readHeader(r io.Reader) (header, error) {
	var h header
	if err := binary.Read(r, order, &h); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return h, fmt.Errorf("reading header: %w", err)
	}
	if h.Magic != Magic {
		return h, fmt.Errorf("invalid magic: %q", h.Magic[:])
	}
	if v := string(h.RulesVersion[:]); !rulesVersionPattern.MatchString(v) {
		return h, fmt.Errorf("invalid rules version %q", v)
	}
	return h, nil
}

// ReadRulesVersion reads the rules version from the header of the
// rules-data file at path without loading the rest of the file.
func ReadRulesVersion(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h, err := readHeader(f)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return string(h.RulesVersion[:]), nil
}

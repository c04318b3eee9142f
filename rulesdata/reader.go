package rulesdata

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/ngrash/go-tzupdate/tzif"
)

// Reader gives access to a loaded rules-data file. Opening checks the
// header and index layout; Validate checks every zone.
type Reader struct {
	path   string
	buf    []byte
	header header
	index  []indexEntry
}

// Open loads the rules-data file at path.
func Open(path string) (*Reader, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r, err := Parse(buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	r.path = path
	return r, nil
}

// Parse reads a rules-data file held in memory.
func Parse(buf []byte) (*Reader, error) {
	h, err := readHeader(bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	size := int64(len(buf))
	if h.IndexOffset < HeaderSize || h.IndexOffset > h.DataOffset || h.DataOffset > h.ZoneTabOffset || int64(h.ZoneTabOffset) > size {
		return nil, fmt.Errorf("invalid section offsets: index = %d, data = %d, zone tab = %d, file size = %d",
			h.IndexOffset, h.DataOffset, h.ZoneTabOffset, size)
	}
	indexSize := h.DataOffset - h.IndexOffset
	if indexSize%IndexEntrySize != 0 {
		return nil, fmt.Errorf("index size %d is not a multiple of %d", indexSize, IndexEntrySize)
	}
	index := make([]indexEntry, indexSize/IndexEntrySize)
	if err := binary.Read(bytes.NewReader(buf[h.IndexOffset:h.DataOffset]), order, index); err != nil {
		return nil, fmt.Errorf("reading index: %w", err)
	}
	return &Reader{buf: buf, header: h, index: index}, nil
}

// Path returns the path the reader was opened from, if any.
func (r *Reader) Path() string { return r.path }

// RulesVersion returns the rules version recorded in the header.
func (r *Reader) RulesVersion() string {
	return string(r.header.RulesVersion[:])
}

// ZoneNames returns the zone names in index order.
func (r *Reader) ZoneNames() []string {
	names := make([]string, len(r.index))
	for i, e := range r.index {
		names[i] = e.name()
	}
	return names
}

// ZoneTab returns the zone table text.
func (r *Reader) ZoneTab() []byte {
	return r.buf[r.header.ZoneTabOffset:]
}

// ZoneData returns the raw TZif blob for the named zone.
func (r *Reader) ZoneData(name string) ([]byte, error) {
	for _, e := range r.index {
		if e.name() == name {
			return r.blob(e)
		}
	}
	return nil, fmt.Errorf("zone %q not found", name)
}

// Zone decodes the TZif data for the named zone.
func (r *Reader) Zone(name string) (tzif.Data, error) {
	b, err := r.ZoneData(name)
	if err != nil {
		return tzif.Data{}, err
	}
	return tzif.Decode(b)
}

// File returns the full decoded content.
func (r *Reader) File() (File, error) {
	f := File{RulesVersion: r.RulesVersion(), ZoneTab: append([]byte(nil), r.ZoneTab()...)}
	for _, e := range r.index {
		b, err := r.blob(e)
		if err != nil {
			return File{}, err
		}
		f.Zones = append(f.Zones, Zone{Name: e.name(), Data: append([]byte(nil), b...)})
	}
	return f, nil
}

func (r *Reader) blob(e indexEntry) ([]byte, error) {
	dataSize := int64(r.header.ZoneTabOffset - r.header.DataOffset)
	if e.Offset < 0 || e.Length <= 0 || int64(e.Offset)+int64(e.Length) > dataSize {
		return nil, fmt.Errorf("zone %q: data [%d, %d) outside data section of %d bytes",
			e.name(), e.Offset, int64(e.Offset)+int64(e.Length), dataSize)
	}
	start := int64(r.header.DataOffset) + int64(e.Offset)
	return r.buf[start : start+int64(e.Length)], nil
}

// maxZoneErrors bounds how many per-zone problems Validate reports.
const maxZoneErrors = 10

// Validate checks the index and decodes and validates every zone.
// All problems found are returned joined.
func (r *Reader) Validate() error {
	var errs []error
	if len(r.index) == 0 {
		errs = append(errs, errors.New("no zones"))
	}
	var zoneErrs int
	for i, e := range r.index {
		name := e.name()
		switch {
		case name == "":
			errs = append(errs, fmt.Errorf("index entry %d: empty zone name", i))
			continue
		case bytes.IndexByte(e.Name[:len(name)], 0) >= 0:
			errs = append(errs, fmt.Errorf("index entry %d: zone name %q contains NUL", i, name))
		case i > 0 && r.index[i-1].name() >= name:
			errs = append(errs, fmt.Errorf("index entry %d: zone %q not sorted after %q", i, name, r.index[i-1].name()))
		}
		if zoneErrs >= maxZoneErrors {
			continue
		}
		b, err := r.blob(e)
		if err != nil {
			errs = append(errs, err)
			zoneErrs++
			continue
		}
		d, err := tzif.Decode(b)
		if err == nil {
			err = tzif.Validate(d)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("zone %q: %w", name, err))
			zoneErrs++
		}
	}
	return errors.Join(errs...)
}

// Close releases the reader. The reader must not be used afterwards.
func (r *Reader) Close() error {
	r.buf = nil
	r.index = nil
	return nil
}

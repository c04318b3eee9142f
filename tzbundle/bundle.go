// Package tzbundle implements the time zone update bundle: a zip archive
// holding a version record, a rules-data file and companion zone table
// data under fixed entry names.
//
// The same package serves both sides. Builder produces bundles; the
// installer consumes them with Extract and ParseVersion.
package tzbundle

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/zeebo/blake3"
)

// ErrMissingEntry is returned when a required entry is absent.
var ErrMissingEntry = errors.New("missing bundle entry")

// Bundle is a serialized update bundle.
type Bundle struct {
	data []byte
}

// NewBundle wraps serialized bundle bytes. The content is not inspected.
func NewBundle(data []byte) *Bundle {
	return &Bundle{data: data}
}

// ReadFile reads a serialized bundle from path.
func ReadFile(path string) (*Bundle, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewBundle(b), nil
}

// Bytes returns the serialized bundle.
func (b *Bundle) Bytes() []byte {
	return b.data
}

// Digest identifies the exact bundle content.
func (b *Bundle) Digest() string {
	return Digest(b.data)
}

// Entries decodes every entry of the bundle.
func (b *Bundle) Entries() (map[string][]byte, error) {
	return ReadEntries(b.data)
}

// Version reads and parses the version record.
func (b *Bundle) Version() (Version, error) {
	entries, err := b.Entries()
	if err != nil {
		return Version{}, err
	}
	raw, ok := entries[VersionEntry]
	if !ok {
		return Version{}, fmt.Errorf("%w: %s", ErrMissingEntry, VersionEntry)
	}
	return ParseVersion(raw)
}

// ExtractTo writes the bundle's entries as files into dir.
func (b *Bundle) ExtractTo(dir string) error {
	return Extract(b.data, dir)
}

// Digest returns the hex-encoded BLAKE3-256 digest of data.
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// MissingEntries returns the required entries for which has reports false,
// in RequiredEntries order.
func MissingEntries(has func(name string) bool) []string {
	var missing []string
	for _, name := range RequiredEntries {
		if !has(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

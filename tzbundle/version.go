package tzbundle

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	// CurrentFormatMajor is the bundle format major version this module
	// reads and writes. Bundles with any other major version are rejected.
	CurrentFormatMajor = 1
	// CurrentFormatMinor is the minor version written by this module.
	// Readers ignore the minor version.
	CurrentFormatMinor = 1

	// VersionRecordLength is the length of an encoded version record:
	// "DDD.DDD|DDDDL|DDD".
	VersionRecordLength = 17
)

var (
	versionRecordPattern = regexp.MustCompile(`^([0-9]{3})\.([0-9]{3})\|([0-9]{4}[a-z])\|([0-9]{3})$`)
	legacyRecordPattern  = regexp.MustCompile(`^[0-9]{3}\.[0-9]{3}[0-9]{4}[a-z][0-9]{3}`)
	rulesVersionPattern  = regexp.MustCompile(`^[0-9]{4}[a-z]$`)
)

// ErrLegacyVersion is returned by ParseVersion for a version record in the
// older fixed-array layout without delimiters. Such bundles are not
// installable and must be rebuilt.
var ErrLegacyVersion = errors.New("legacy version record layout")

// ErrFormatMismatch is returned when a bundle's format major version is
// not CurrentFormatMajor.
var ErrFormatMismatch = errors.New("unsupported bundle format major version")

// Version is the version record of a bundle. Construct it with NewVersion
// or ParseVersion; the zero value is not valid.
type Version struct {
	// FormatMajor identifies the container layout. Only bundles with
	// FormatMajor == CurrentFormatMajor can be installed.
	FormatMajor int
	// FormatMinor is informational.
	FormatMinor int
	// RulesVersion identifies the rules release, e.g. "2020a".
	RulesVersion string
	// Revision numbers re-releases of the same rules version.
	Revision int
}

// NewVersion validates its arguments and returns a Version.
func NewVersion(formatMajor, formatMinor int, rulesVersion string, revision int) (Version, error) {
	for _, f := range []struct {
		name string
		v    int
	}{{"format major version", formatMajor}, {"format minor version", formatMinor}, {"revision", revision}} {
		if f.v < 0 || f.v > 999 {
			return Version{}, fmt.Errorf("invalid %s %d: must be in [0, 999]", f.name, f.v)
		}
	}
	if !ValidRulesVersion(rulesVersion) {
		return Version{}, fmt.Errorf("invalid rules version %q: want four digits and a lower-case letter", rulesVersion)
	}
	return Version{
		FormatMajor:  formatMajor,
		FormatMinor:  formatMinor,
		RulesVersion: rulesVersion,
		Revision:     revision,
	}, nil
}

// ValidRulesVersion reports whether s is a well-formed rules version.
func ValidRulesVersion(s string) bool {
	return rulesVersionPattern.MatchString(s)
}

// ParseVersion parses a version record. Bytes after the record are
// ignored.
func ParseVersion(b []byte) (Version, error) {
	if legacyRecordPattern.Match(b) {
		return Version{}, fmt.Errorf("%w: %q", ErrLegacyVersion, truncate(b))
	}
	if len(b) < VersionRecordLength {
		return Version{}, fmt.Errorf("version record too short: %d bytes, want at least %d", len(b), VersionRecordLength)
	}
	m := versionRecordPattern.FindSubmatch(b[:VersionRecordLength])
	if m == nil {
		return Version{}, fmt.Errorf("invalid version record %q", truncate(b))
	}
	major, _ := strconv.Atoi(string(m[1]))
	minor, _ := strconv.Atoi(string(m[2]))
	revision, _ := strconv.Atoi(string(m[4]))
	return NewVersion(major, minor, string(m[3]), revision)
}

func truncate(b []byte) string {
	if len(b) > VersionRecordLength {
		b = b[:VersionRecordLength]
	}
	return string(b)
}

// Bytes returns the encoded version record.
func (v Version) Bytes() []byte {
	return []byte(v.String())
}

// String returns the version record text, e.g. "001.001|2020a|001".
func (v Version) String() string {
	return fmt.Sprintf("%s|%s|%03d", v.FormatVersion(), v.RulesVersion, v.Revision)
}

// FormatVersion returns the bundle format version, e.g. "001.001".
func (v Version) FormatVersion() string {
	return fmt.Sprintf("%03d.%03d", v.FormatMajor, v.FormatMinor)
}

// FormatMajorVersion returns the zero-padded major format version, e.g. "001".
func (v Version) FormatMajorVersion() string {
	return fmt.Sprintf("%03d", v.FormatMajor)
}

// CheckCompatible returns ErrFormatMismatch unless v's major format
// version is CurrentFormatMajor.
func CheckCompatible(v Version) error {
	if v.FormatMajor != CurrentFormatMajor {
		return fmt.Errorf("%w: bundle has %s, want %03d", ErrFormatMismatch, v.FormatMajorVersion(), CurrentFormatMajor)
	}
	return nil
}

// CompareRulesVersions compares two rules versions. The result is 0 if
// a == b, -1 if a < b, and +1 if a > b. Rules versions are fixed-width
// (year and letter), so text order is release order.
func CompareRulesVersions(a, b string) int {
	return strings.Compare(a, b)
}

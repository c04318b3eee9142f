package tzbundle

import (
	"errors"
	"fmt"
	"os"
)

// Builder assembles a Bundle. The ...ForTests methods can produce bundles
// the installer must reject; such bundles can only be obtained through
// BuildUnvalidated.
type Builder struct {
	version      *Version
	versionBytes []byte
	rules        []byte
	companion    []byte
	extra        map[string][]byte
	errs         []error
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// SetVersion sets the version record.
func (b *Builder) SetVersion(v Version) *Builder {
	b.version = &v
	b.versionBytes = nil
	return b
}

// SetRulesData sets the rules-data entry.
func (b *Builder) SetRulesData(data []byte) *Builder {
	b.rules = data
	return b
}

// SetCompanionData sets the companion zone table entry.
func (b *Builder) SetCompanionData(data []byte) *Builder {
	b.companion = data
	return b
}

// SetRulesDataFile reads the rules-data entry from path. A read error is
// reported by Build.
func (b *Builder) SetRulesDataFile(path string) *Builder {
	return b.SetRulesData(b.readFile(path))
}

// SetCompanionDataFile reads the companion entry from path. A read error
// is reported by Build.
func (b *Builder) SetCompanionDataFile(path string) *Builder {
	return b.SetCompanionData(b.readFile(path))
}

func (b *Builder) readFile(path string) []byte {
	data, err := os.ReadFile(path)
	if err != nil {
		b.errs = append(b.errs, err)
		return nil
	}
	return data
}

// ReplaceFormatVersionForTests keeps the rules version and revision of the
// current version but writes the given format version, which may be one
// the installer does not support.
func (b *Builder) ReplaceFormatVersionForTests(major, minor int) *Builder {
	var (
		rules    = "0000a"
		revision = 1
	)
	if b.version != nil {
		rules, revision = b.version.RulesVersion, b.version.Revision
	}
	b.versionBytes = []byte(fmt.Sprintf("%03d.%03d|%s|%03d", major, minor, rules, revision))
	return b
}

// SetVersionBytesForTests stores raw as the version record verbatim.
func (b *Builder) SetVersionBytesForTests(raw []byte) *Builder {
	b.versionBytes = raw
	return b
}

// ClearVersionForTests removes the version record.
func (b *Builder) ClearVersionForTests() *Builder {
	b.version = nil
	b.versionBytes = nil
	return b
}

// ClearRulesDataForTests removes the rules-data entry.
func (b *Builder) ClearRulesDataForTests() *Builder {
	b.rules = nil
	return b
}

// ClearCompanionDataForTests removes the companion entry.
func (b *Builder) ClearCompanionDataForTests() *Builder {
	b.companion = nil
	return b
}

// AddEntryForTests adds an arbitrary entry.
func (b *Builder) AddEntryForTests(name string, data []byte) *Builder {
	if b.extra == nil {
		b.extra = make(map[string][]byte)
	}
	b.extra[name] = data
	return b
}

// Build checks that every required part is present and well-formed and
// serializes the bundle. All problems are reported together.
func (b *Builder) Build() (*Bundle, error) {
	errs := append([]error(nil), b.errs...)

	raw := b.versionRecord()
	if raw == nil {
		errs = append(errs, fmt.Errorf("%w: %s: version not set", ErrMissingEntry, VersionEntry))
	} else if v, err := ParseVersion(raw); err != nil {
		errs = append(errs, err)
	} else if err := CheckCompatible(v); err != nil {
		errs = append(errs, err)
	}
	if len(b.rules) == 0 {
		errs = append(errs, fmt.Errorf("%w: %s: rules data not set", ErrMissingEntry, RulesEntry))
	}
	if len(b.companion) == 0 {
		errs = append(errs, fmt.Errorf("%w: %s: companion data not set", ErrMissingEntry, CompanionEntry))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid bundle: %w", err)
	}
	return b.BuildUnvalidated()
}

// BuildUnvalidated serializes whatever has been set, without checks.
func (b *Builder) BuildUnvalidated() (*Bundle, error) {
	entries := make(map[string][]byte, len(b.extra)+3)
	for name, data := range b.extra {
		entries[name] = data
	}
	if raw := b.versionRecord(); raw != nil {
		entries[VersionEntry] = raw
	}
	if b.rules != nil {
		entries[RulesEntry] = b.rules
	}
	if b.companion != nil {
		entries[CompanionEntry] = b.companion
	}
	data, err := Serialize(entries)
	if err != nil {
		return nil, err
	}
	return NewBundle(data), nil
}

func (b *Builder) versionRecord() []byte {
	if b.versionBytes != nil {
		return b.versionBytes
	}
	if b.version != nil {
		return b.version.Bytes()
	}
	return nil
}

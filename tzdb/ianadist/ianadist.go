// Package ianadist extracts tzdb files from release archives distributed
// by IANA.
//
// Release archives are published on the [IANA data server]. Fetching them
// is left to the caller; this package only reads archives that are
// already at hand.
//
// [IANA data server]: https://www.iana.org/time-zones
package ianadist

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/ngrash/go-tzupdate/tzbundle"
)

// TZDataFiles is a map of tzdb data file names to file contents.
// Filenames are never empty and file contents always start with
// the magic header that indicates the start of a data file:
//
//	# tzdb data for
//
// Example:
//
//	 TZDataFiles{
//		"africa", []byte("# tzdb data for Africa and environs\n..."),
//		"europe", []byte("# tzdb data for Europe and environs\n..."),
//	 }
type TZDataFiles map[string][]byte

// Release is a parsed IANA time zone database release.
type Release struct {
	// Version is the version of the IANA time zone database.
	// For example, "2021a".
	Version string
	// DataFiles is a map of tzdb data file names to file contents.
	DataFiles TZDataFiles
	// LeapSecondsFile is the content of the leap seconds file.
	LeapSecondsFile []byte
	// ZoneTab is the zone table, zone1970.tab if the release has one and
	// zone.tab otherwise.
	ZoneTab []byte
}

const (
	// dataFileMagicHeader is used to identify data files in the archive.
	dataFileMagicHeader = "# tzdb data for"
	// leapSecondsFilename is the name of the leap seconds file in the archive.
	leapSecondsFilename = "leapseconds"
	// versionFilename is the name of the version file in the archive.
	versionFilename = "version"
	// zoneTabFilename and legacyZoneTabFilename name the zone tables.
	zoneTabFilename       = "zone1970.tab"
	legacyZoneTabFilename = "zone.tab"
	// maxFileSize bounds each file read from an archive.
	maxFileSize = 16 << 20
)

// ReadArchiveFile reads the release archive at path.
func ReadArchiveFile(path string) (*Release, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadArchive(f)
}

// ReadArchive unpacks the IANA time zone database from an archive.
//
// The io.Reader must contain a gzip-compressed tar archive as found at
// https://data.iana.org/time-zones/releases/.
func ReadArchive(r io.Reader) (*Release, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("read gzip: %w", err)
	}
	defer zr.Close()

	rel := &Release{DataFiles: make(TZDataFiles)}
	var legacyZoneTab []byte
	tr := tar.NewReader(zr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read tar: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		if hdr.Size > maxFileSize {
			return nil, fmt.Errorf("file %q too large: %d bytes", hdr.Name, hdr.Size)
		}
		body, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", hdr.Name, err)
		}

		switch hdr.Name {
		case versionFilename:
			if rel.Version, err = parseVersion(body); err != nil {
				return nil, err
			}
		case leapSecondsFilename:
			rel.LeapSecondsFile = body
		case zoneTabFilename:
			rel.ZoneTab = body
		case legacyZoneTabFilename:
			legacyZoneTab = body
		default:
			if bytes.HasPrefix(body, []byte(dataFileMagicHeader)) {
				rel.DataFiles[hdr.Name] = body
			}
		}
	}
	if rel.ZoneTab == nil {
		rel.ZoneTab = legacyZoneTab
	}

	switch {
	case len(rel.DataFiles) == 0:
		return nil, fmt.Errorf("no data files found")
	case rel.Version == "":
		return nil, fmt.Errorf("no version found")
	case len(rel.ZoneTab) == 0:
		return nil, fmt.Errorf("no zone table found")
	}
	return rel, nil
}

// parseVersion reads the content of the version file. Only release
// versions are accepted; development snapshots such as "2024b-12-gabc"
// have no place in a bundle.
func parseVersion(b []byte) (string, error) {
	v := strings.TrimSpace(string(b))
	if v == "" {
		return "", fmt.Errorf("empty version file")
	}
	if !tzbundle.ValidRulesVersion(v) {
		return "", fmt.Errorf("unsupported version %q", v)
	}
	return v, nil
}

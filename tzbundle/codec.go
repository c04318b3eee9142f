package tzbundle

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/ngrash/go-tzupdate/internal/fsutil"
)

// Entry names inside a bundle. They are the contract between Builder and
// the installer.
const (
	// VersionEntry holds the version record.
	VersionEntry = "bundle_version"
	// RulesEntry holds the rules-data file.
	RulesEntry = "tzdata"
	// CompanionEntry holds the zone table companion data.
	CompanionEntry = "zonetab"
)

// RequiredEntries lists the entries an installable bundle must contain.
var RequiredEntries = []string{VersionEntry, RulesEntry, CompanionEntry}

// MaxEntrySize bounds the uncompressed size of a single entry.
const MaxEntrySize = 64 << 20

// modTime is stamped on every entry so equal input yields equal archives.
var modTime = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// Serialize writes entries into a zip archive, sorted by name.
func Serialize(entries map[string][]byte) ([]byte, error) {
	names := make([]string, 0, len(entries))
	for name := range entries {
		if err := checkEntryName(name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: modTime,
		})
		if err != nil {
			return nil, fmt.Errorf("create entry %s: %w", name, err)
		}
		if _, err := w.Write(entries[name]); err != nil {
			return nil, fmt.Errorf("write entry %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finish archive: %w", err)
	}
	return buf.Bytes(), nil
}

// ReadEntries reads every entry of the archive in data. Any structural
// problem (bad central directory, checksum mismatch, truncation, unsafe or
// duplicate name, oversized entry) is an error.
func ReadEntries(data []byte) (map[string][]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	entries := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		if err := checkEntryName(f.Name); err != nil {
			return nil, err
		}
		if _, dup := entries[f.Name]; dup {
			return nil, fmt.Errorf("duplicate entry %q", f.Name)
		}
		if f.UncompressedSize64 > MaxEntrySize {
			return nil, fmt.Errorf("entry %s: %d bytes exceeds limit of %d", f.Name, f.UncompressedSize64, MaxEntrySize)
		}
		b, err := readEntry(f)
		if err != nil {
			return nil, fmt.Errorf("read entry %s: %w", f.Name, err)
		}
		entries[f.Name] = b
	}
	return entries, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	b, err := io.ReadAll(io.LimitReader(rc, MaxEntrySize+1))
	if err != nil {
		return nil, err
	}
	if len(b) > MaxEntrySize {
		return nil, fmt.Errorf("entry exceeds limit of %d bytes", MaxEntrySize)
	}
	return b, nil
}

// Extract writes every entry of the archive in data as a file in dir,
// creating dir if needed. The whole archive is read and checked before
// the first file is written, so a malformed archive leaves dir untouched.
func Extract(data []byte, dir string) error {
	entries, err := ReadEntries(data)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := fsutil.WriteFile(filepath.Join(dir, name), entries[name], 0o644); err != nil {
			return err
		}
	}
	return fsutil.SyncDir(dir)
}

// checkEntryName accepts only plain file names so extraction can never
// write outside the target directory.
func checkEntryName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("invalid entry name %q", name)
	case strings.ContainsAny(name, `/\`+"\x00"):
		return fmt.Errorf("invalid entry name %q: must be a plain file name", name)
	}
	return nil
}

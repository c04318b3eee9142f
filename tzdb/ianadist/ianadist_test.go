package ianadist

import (
	"archive/tar"
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/gzip"
)

// testTZDataFiles checks that the TZDataFiles map adheres to the expected format.
func testTZDataFiles(t *testing.T, files TZDataFiles) {
	t.Helper()
	for file, data := range files {
		if len(file) == 0 {
			t.Errorf("TZDataFiles: empty file name.")
		}
		if !strings.HasPrefix(string(data), "# tzdb data for") {
			t.Errorf("TZDataFiles: data missing magic string in %q", file)
		}
	}
}

type archiveFile struct {
	name string
	body string
}

// makeArchive builds a gzip-compressed tar archive shaped like an IANA
// release.
func makeArchive(t *testing.T, files ...archiveFile) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(zw)
	for _, f := range files {
		hdr := &tar.Header{Name: f.name, Mode: 0o644, Size: int64(len(f.body)), Typeflag: tar.TypeReg}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("write header %s: %v", f.name, err)
		}
		if _, err := tw.Write([]byte(f.body)); err != nil {
			t.Fatalf("write %s: %v", f.name, err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close gzip: %v", err)
	}
	return buf.Bytes()
}

var (
	europe   = archiveFile{"europe", "# tzdb data for Europe and environs\nZone Europe/Berlin 0:53:28 - LMT 1893 Apr\n"}
	etcetera = archiveFile{"etcetera", "# tzdb data for ships at sea and other miscellany\nZone Etc/UTC 0 - UTC\n"}
	version  = archiveFile{"version", "2024b\n"}
	leap     = archiveFile{"leapseconds", "Leap 2016 Dec 31 23:59:60 + S\n"}
	zone1970 = archiveFile{"zone1970.tab", "DE,DK,NO,SE,SJ\t+5230+01322\tEurope/Berlin\n"}
	zoneTab  = archiveFile{"zone.tab", "DE\t+5230+01322\tEurope/Berlin\n"}
	readme   = archiveFile{"README", "README for the tz distribution\n"}
	tinyFile = archiveFile{"tiny", "x"}
)

func TestReadArchive(t *testing.T) {
	data := makeArchive(t, readme, version, europe, etcetera, leap, zoneTab, zone1970, tinyFile)
	release, err := ReadArchive(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadArchive(...): unexpected non-nil error: %v", err)
	}
	testTZDataFiles(t, release.DataFiles)

	want := &Release{
		Version: "2024b",
		DataFiles: TZDataFiles{
			"europe":   []byte(europe.body),
			"etcetera": []byte(etcetera.body),
		},
		LeapSecondsFile: []byte(leap.body),
		ZoneTab:         []byte(zone1970.body),
	}
	if diff := cmp.Diff(want, release); diff != "" {
		t.Errorf("ReadArchive(...) mismatch (-want +got):\n%s", diff)
	}
}

func TestReadArchive_LegacyZoneTab(t *testing.T) {
	data := makeArchive(t, version, europe, zoneTab)
	release, err := ReadArchive(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadArchive(...): unexpected non-nil error: %v", err)
	}
	if got := string(release.ZoneTab); got != zoneTab.body {
		t.Errorf("ZoneTab = %q, want %q", got, zoneTab.body)
	}
}

func TestReadArchive_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr string
	}{
		{"not gzip", []byte("plain text"), "read gzip"},
		{"no data files", makeArchive(t, version, zone1970), "no data files"},
		{"no version", makeArchive(t, europe, zone1970), "no version"},
		{"bad version", makeArchive(t, archiveFile{"version", "2024b-1-gdeadbeef\n"}, europe, zone1970), "unsupported version"},
		{"empty version", makeArchive(t, archiveFile{"version", "\n"}, europe, zone1970), "empty version"},
		{"no zone table", makeArchive(t, version, europe), "no zone table"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadArchive(bytes.NewReader(tt.data))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ReadArchive(...) error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

package tzbundle

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestVersion_Bytes(t *testing.T) {
	v, err := NewVersion(1, 1, "2020a", 1)
	require.NoError(t, err)
	require.Equal(t, "001.001|2020a|001", string(v.Bytes()))
	require.Len(t, v.Bytes(), VersionRecordLength)
	require.Equal(t, "001", v.FormatMajorVersion())
	require.Equal(t, "001.001", v.FormatVersion())
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Version
	}{
		{"plain", "001.001|2020a|001", Version{1, 1, "2020a", 1}},
		{"trailing bytes", "002.017|2016b|042\nextra", Version{2, 17, "2016b", 42}},
		{"zero revision", "001.000|1999z|000", Version{1, 0, "1999z", 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVersion([]byte(tt.in))
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseVersion() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseVersion_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"short", "001.001|2020a|01"},
		{"missing delimiter", "001.001-2020a|001"},
		{"upper-case letter", "001.001|2020A|001"},
		{"non-digit major", "0x1.001|2020a|001"},
		{"short rules version", "001.001|202a|0001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseVersion([]byte(tt.in))
			require.Error(t, err)
			require.NotErrorIs(t, err, ErrLegacyVersion)
		})
	}
}

func TestParseVersion_Legacy(t *testing.T) {
	_, err := ParseVersion([]byte("001.0012015a001"))
	require.ErrorIs(t, err, ErrLegacyVersion)
}

func TestNewVersion_Errors(t *testing.T) {
	_, err := NewVersion(1000, 1, "2020a", 1)
	require.ErrorContains(t, err, "format major version")
	_, err = NewVersion(1, -1, "2020a", 1)
	require.ErrorContains(t, err, "format minor version")
	_, err = NewVersion(1, 1, "2020a", 1000)
	require.ErrorContains(t, err, "revision")
	_, err = NewVersion(1, 1, "20a", 1)
	require.ErrorContains(t, err, "rules version")
}

func TestCheckCompatible(t *testing.T) {
	require.NoError(t, CheckCompatible(Version{CurrentFormatMajor, CurrentFormatMinor, "2020a", 1}))
	require.NoError(t, CheckCompatible(Version{CurrentFormatMajor, CurrentFormatMinor + 1, "2020a", 1}))
	require.ErrorIs(t, CheckCompatible(Version{CurrentFormatMajor + 1, CurrentFormatMinor, "2020a", 1}), ErrFormatMismatch)
	require.ErrorIs(t, CheckCompatible(Version{CurrentFormatMajor - 1, CurrentFormatMinor, "2020a", 1}), ErrFormatMismatch)
}

func TestCompareRulesVersions(t *testing.T) {
	require.Equal(t, 0, CompareRulesVersions("2016a", "2016a"))
	require.Equal(t, -1, CompareRulesVersions("2015z", "2016a"))
	require.Equal(t, 1, CompareRulesVersions("2016b", "2016a"))
	require.Equal(t, 1, CompareRulesVersions("2020a", "2019c"))
}

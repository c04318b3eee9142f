package tzbundle

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func testVersion(t *testing.T, rules string) Version {
	t.Helper()
	v, err := NewVersion(CurrentFormatMajor, CurrentFormatMinor, rules, 1)
	require.NoError(t, err)
	return v
}

func completeBuilder(t *testing.T) *Builder {
	return NewBuilder().
		SetVersion(testVersion(t, "2020a")).
		SetRulesData([]byte("rules")).
		SetCompanionData([]byte("zones"))
}

func TestBuilder_Build(t *testing.T) {
	b, err := completeBuilder(t).Build()
	require.NoError(t, err)

	entries, err := b.Entries()
	require.NoError(t, err)
	want := map[string][]byte{
		VersionEntry:   []byte("001.001|2020a|001"),
		RulesEntry:     []byte("rules"),
		CompanionEntry: []byte("zones"),
	}
	if diff := cmp.Diff(want, entries); diff != "" {
		t.Errorf("Entries() mismatch (-want +got):\n%s", diff)
	}

	v, err := b.Version()
	require.NoError(t, err)
	require.Equal(t, testVersion(t, "2020a"), v)
	require.Len(t, b.Digest(), 64)

	again, err := completeBuilder(t).Build()
	require.NoError(t, err)
	require.Equal(t, b.Digest(), again.Digest())
}

func TestBuilder_Files(t *testing.T) {
	dir := t.TempDir()
	rules := filepath.Join(dir, "tzdata")
	zonetab := filepath.Join(dir, "zone1970.tab")
	require.NoError(t, os.WriteFile(rules, []byte("rules"), 0o644))
	require.NoError(t, os.WriteFile(zonetab, []byte("zones"), 0o644))

	b, err := NewBuilder().
		SetVersion(testVersion(t, "2020a")).
		SetRulesDataFile(rules).
		SetCompanionDataFile(zonetab).
		Build()
	require.NoError(t, err)
	entries, err := b.Entries()
	require.NoError(t, err)
	require.Equal(t, []byte("rules"), entries[RulesEntry])
	require.Equal(t, []byte("zones"), entries[CompanionEntry])

	_, err = NewBuilder().
		SetVersion(testVersion(t, "2020a")).
		SetRulesDataFile(filepath.Join(dir, "missing")).
		SetCompanionDataFile(zonetab).
		Build()
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestBuilder_BuildRejectsIncomplete(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Builder)
		wantErr string
	}{
		{"no version", func(b *Builder) { b.ClearVersionForTests() }, VersionEntry},
		{"no rules", func(b *Builder) { b.ClearRulesDataForTests() }, RulesEntry},
		{"no companion", func(b *Builder) { b.ClearCompanionDataForTests() }, CompanionEntry},
		{"bad version record", func(b *Builder) { b.SetVersionBytesForTests([]byte("garbage")) }, "version record"},
		{"legacy version record", func(b *Builder) { b.SetVersionBytesForTests([]byte("001.0012020a001")) }, "legacy"},
		{"future format", func(b *Builder) { b.ReplaceFormatVersionForTests(CurrentFormatMajor+1, 0) }, "format major"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := completeBuilder(t)
			tt.modify(b)

			_, err := b.Build()
			require.ErrorContains(t, err, tt.wantErr)

			bundle, err := b.BuildUnvalidated()
			require.NoError(t, err)
			_, err = bundle.Entries()
			require.NoError(t, err)
		})
	}
}

func TestBuilder_ReportsAllProblems(t *testing.T) {
	_, err := NewBuilder().Build()
	require.ErrorIs(t, err, ErrMissingEntry)
	for _, name := range RequiredEntries {
		require.ErrorContains(t, err, name)
	}
}

func TestBuilder_ReplaceFormatVersionForTests(t *testing.T) {
	b, err := completeBuilder(t).ReplaceFormatVersionForTests(2, 7).BuildUnvalidated()
	require.NoError(t, err)
	v, err := b.Version()
	require.NoError(t, err)
	require.Equal(t, Version{FormatMajor: 2, FormatMinor: 7, RulesVersion: "2020a", Revision: 1}, v)
	require.ErrorIs(t, CheckCompatible(v), ErrFormatMismatch)
}

func TestBuilder_AddEntryForTests(t *testing.T) {
	b, err := completeBuilder(t).AddEntryForTests("extra", []byte("x")).Build()
	require.NoError(t, err)
	entries, err := b.Entries()
	require.NoError(t, err)
	require.Equal(t, []byte("x"), entries["extra"])
}

func TestBundle_VersionMissing(t *testing.T) {
	b, err := completeBuilder(t).ClearVersionForTests().BuildUnvalidated()
	require.NoError(t, err)
	_, err = b.Version()
	require.ErrorIs(t, err, ErrMissingEntry)
}

func TestBundle_ExtractTo(t *testing.T) {
	b, err := completeBuilder(t).Build()
	require.NoError(t, err)
	dir := filepath.Join(t.TempDir(), "out")
	require.NoError(t, b.ExtractTo(dir))

	got, err := os.ReadFile(filepath.Join(dir, VersionEntry))
	require.NoError(t, err)
	require.Equal(t, "001.001|2020a|001", string(got))
}

func TestMissingEntries(t *testing.T) {
	present := map[string]bool{VersionEntry: true}
	got := MissingEntries(func(name string) bool { return present[name] })
	require.Equal(t, []string{RulesEntry, CompanionEntry}, got)
}

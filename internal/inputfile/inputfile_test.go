package inputfile

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ngrash/go-tzupdate/internal/testutil"
	"github.com/ngrash/go-tzupdate/tzbundle"
	"github.com/ngrash/go-tzupdate/tzif"
)

func TestDecode(t *testing.T) {
	zone, err := tzif.FixedZone("UTC", 0).Bytes()
	require.NoError(t, err)
	v, err := tzbundle.NewVersion(1, 1, "2020a", 1)
	require.NoError(t, err)
	bundle, err := tzbundle.NewBuilder().
		SetVersion(v).
		SetRulesData(testutil.RulesData(t, "2020a")).
		SetCompanionData([]byte(testutil.ZoneTab)).
		Build()
	require.NoError(t, err)

	in, err := Decode(zone)
	require.NoError(t, err)
	require.Equal(t, KindTZif, in.Kind)
	require.NotNil(t, in.Zone)

	in, err = Decode(testutil.RulesData(t, "2020a"))
	require.NoError(t, err)
	require.Equal(t, KindRulesData, in.Kind)
	require.Equal(t, "2020a", in.Rules.RulesVersion())

	in, err = Decode(bundle.Bytes())
	require.NoError(t, err)
	require.Equal(t, KindBundle, in.Kind)
	require.Equal(t, v, *in.Version)
	require.Equal(t, "2020a", in.Rules.RulesVersion())
	require.Len(t, in.Entries, 3)
}

func TestDecode_Errors(t *testing.T) {
	for name, b := range map[string][]byte{
		"unknown":       []byte("hello"),
		"truncated zip": []byte("PK\x03\x04truncated"),
		"bad rules":     []byte("tzdata2020a\x00"),
		"bad tzif":      []byte("TZif2"),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(b)
			require.Error(t, err)
		})
	}
}

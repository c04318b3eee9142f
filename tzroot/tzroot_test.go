package tzroot

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ngrash/go-tzupdate/internal/logging"
	"github.com/ngrash/go-tzupdate/internal/testutil"
	"github.com/ngrash/go-tzupdate/tzbundle"
	"github.com/ngrash/go-tzupdate/tzinstall"
)

func install(t *testing.T, i *tzinstall.Installer, rules string) {
	t.Helper()
	v, err := tzbundle.NewVersion(tzbundle.CurrentFormatMajor, tzbundle.CurrentFormatMinor, rules, 1)
	require.NoError(t, err)
	b, err := tzbundle.NewBuilder().
		SetVersion(v).
		SetRulesData(testutil.RulesData(t, rules)).
		SetCompanionData([]byte(testutil.ZoneTab)).
		Build()
	require.NoError(t, err)
	res, err := i.Install(b.Bytes())
	require.NoError(t, err)
	require.Equal(t, tzinstall.StatusApplied, res.Status)
}

func TestLocate(t *testing.T) {
	system := testutil.WriteSystemRules(t, "2019c")
	dataDir := filepath.Join(t.TempDir(), "tz")
	i := tzinstall.New(dataDir, system, tzinstall.WithLogger(logging.Discard()))

	require.Equal(t, Location{Path: system, Source: SourceSystem, RulesVersion: "2019c"}, Locate(dataDir, system))

	install(t, i, "2020a")
	require.Equal(t, Location{Path: InstalledRulesFile(dataDir), Source: SourceInstalled, RulesVersion: "2020a"}, Locate(dataDir, system))
	active, err := i.ActiveRulesVersion()
	require.NoError(t, err)
	require.Equal(t, active, Locate(dataDir, system).RulesVersion)

	_, err = i.Uninstall()
	require.NoError(t, err)
	require.Equal(t, SourceSystem, Locate(dataDir, system).Source)
}

func TestLocate_SystemNewerThanInstalled(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "tz")
	i := tzinstall.New(dataDir, testutil.WriteSystemRules(t, "2019c"), tzinstall.WithLogger(logging.Discard()))
	install(t, i, "2020a")

	// A system upgrade brought newer rules than the installed update.
	upgraded := testutil.WriteSystemRules(t, "2021a")
	require.Equal(t, Location{Path: upgraded, Source: SourceSystem, RulesVersion: "2021a"}, Locate(dataDir, upgraded))
}

func TestLocate_UnreadableInstalled(t *testing.T) {
	system := testutil.WriteSystemRules(t, "2019c")
	dataDir := t.TempDir()
	path := InstalledRulesFile(dataDir)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("junk"), 0o644))

	require.Equal(t, SourceSystem, Locate(dataDir, system).Source)
}

// awaitLocation receives locations until one satisfies ok. A slow
// machine may observe the short gap between the two renames of an
// install as a fall back to the system rules.
func awaitLocation(t *testing.T, ch <-chan Location, ok func(Location) bool, msg string) Location {
	t.Helper()
	for {
		l := testutil.RequireReceive(t, ch, 5*time.Second, msg)
		if ok(l) {
			return l
		}
	}
}

func TestWatcher(t *testing.T) {
	system := testutil.WriteSystemRules(t, "2019c")
	dataDir := filepath.Join(t.TempDir(), "tz")
	i := tzinstall.New(dataDir, system, tzinstall.WithLogger(logging.Discard()))

	w := NewWatcher(dataDir, system, logging.Discard())
	w.Settle = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	changes := make(chan Location, 10)
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, func(l Location) { changes <- l }) }()

	const timeout = 5 * time.Second
	got := testutil.RequireReceive(t, changes, timeout, "initial location")
	require.Equal(t, SourceSystem, got.Source)

	install(t, i, "2020a")
	got = testutil.RequireReceive(t, changes, timeout, "location after install")
	require.Equal(t, Location{Path: InstalledRulesFile(dataDir), Source: SourceInstalled, RulesVersion: "2020a"}, got)

	install(t, i, "2020b")
	got = awaitLocation(t, changes, func(l Location) bool { return l.Source == SourceInstalled }, "location after update")
	require.Equal(t, "2020b", got.RulesVersion)

	_, err := i.Uninstall()
	require.NoError(t, err)
	got = testutil.RequireReceive(t, changes, timeout, "location after uninstall")
	require.Equal(t, SourceSystem, got.Source)

	cancel()
	require.NoError(t, testutil.RequireReceive(t, done, timeout, "watcher exit"))
}

func TestWatcher_SystemUpgrade(t *testing.T) {
	system := testutil.WriteSystemRules(t, "2019c")
	dataDir := filepath.Join(t.TempDir(), "tz")
	install(t, tzinstall.New(dataDir, system, tzinstall.WithLogger(logging.Discard())), "2020a")

	w := NewWatcher(dataDir, system, logging.Discard())
	w.Settle = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes := make(chan Location, 10)
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, func(l Location) { changes <- l }) }()

	const timeout = 5 * time.Second
	got := testutil.RequireReceive(t, changes, timeout, "initial location")
	require.Equal(t, SourceInstalled, got.Source)

	// Package managers replace the file by renaming a new one over it.
	tmp := system + ".new"
	require.NoError(t, os.WriteFile(tmp, testutil.RulesData(t, "2021a"), 0o644))
	require.NoError(t, os.Rename(tmp, system))

	got = testutil.RequireReceive(t, changes, timeout, "location after system upgrade")
	require.Equal(t, Location{Path: system, Source: SourceSystem, RulesVersion: "2021a"}, got)

	cancel()
	require.NoError(t, testutil.RequireReceive(t, done, timeout, "watcher exit"))
}

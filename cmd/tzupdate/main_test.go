package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/ngrash/go-tzupdate/internal/fsutil"
	"github.com/ngrash/go-tzupdate/internal/testutil"
	"github.com/ngrash/go-tzupdate/tzbundle"
)

type env struct {
	config  string
	dataDir string
	metrics string
}

func newEnv(t *testing.T, systemRules string) env {
	t.Helper()
	dir := t.TempDir()
	e := env{
		config:  filepath.Join(dir, "tzupdate.yaml"),
		dataDir: filepath.Join(dir, "data"),
		metrics: filepath.Join(dir, "tzupdate.prom"),
	}
	cfg := "data_dir: " + e.dataDir + "\n" +
		"system_rules_file: " + testutil.WriteSystemRules(t, systemRules) + "\n" +
		"log_level: error\n" +
		"metrics_textfile: " + e.metrics + "\n"
	require.NoError(t, os.WriteFile(e.config, []byte(cfg), 0o644))
	return e
}

func (e env) execute(ctx context.Context, args ...string) (string, error) {
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(append([]string{"--config", e.config}, args...))
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func writeBundle(t *testing.T, b *tzbundle.Builder) string {
	t.Helper()
	bundle, err := b.BuildUnvalidated()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "bundle.zip")
	require.NoError(t, os.WriteFile(path, bundle.Bytes(), 0o644))
	return path
}

func builder(t *testing.T, rules string) *tzbundle.Builder {
	t.Helper()
	v, err := tzbundle.NewVersion(tzbundle.CurrentFormatMajor, tzbundle.CurrentFormatMinor, rules, 1)
	require.NoError(t, err)
	return tzbundle.NewBuilder().
		SetVersion(v).
		SetRulesData(testutil.RulesData(t, rules)).
		SetCompanionData([]byte(testutil.ZoneTab))
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return ExitError
}

func TestInstallStatusUninstall(t *testing.T) {
	e := newEnv(t, "2019c")
	ctx := context.Background()

	out, err := e.execute(ctx, "install", writeBundle(t, builder(t, "2020a")))
	require.NoError(t, err)
	require.Equal(t, "applied 001.001|2020a|001\n", out)

	metrics, err := os.ReadFile(e.metrics)
	require.NoError(t, err)
	require.Contains(t, string(metrics), `tzupdate_operations_total{operation="install",status="applied"} 1`)
	require.Contains(t, string(metrics), `tzupdate_installed_info{revision="1",rules_version="2020a"} 1`)

	out, err = e.execute(ctx, "status")
	require.NoError(t, err)
	require.Contains(t, out, "System rules: 2019c")
	require.Contains(t, out, "Installed: 001.001|2020a|001")
	require.Contains(t, out, "Active: 2020a (installed, ")

	out, err = e.execute(ctx, "uninstall")
	require.NoError(t, err)
	require.Equal(t, "applied 001.001|2020a|001\n", out)

	out, err = e.execute(ctx, "uninstall")
	require.NoError(t, err)
	require.Equal(t, "noop\n", out)

	out, err = e.execute(ctx, "status")
	require.NoError(t, err)
	require.Contains(t, out, "Installed: none")
	require.Contains(t, out, "Active: 2019c (system, ")
}

func TestInstall_ExitCodes(t *testing.T) {
	e := newEnv(t, "2019c")
	ctx := context.Background()

	out, err := e.execute(ctx, "install", writeBundle(t, builder(t, "2018a")))
	require.Equal(t, ExitRejected, exitCode(err))
	require.True(t, strings.HasPrefix(out, "rejected "), out)

	_, err = e.execute(ctx, "install", writeBundle(t, builder(t, "2020a").ClearCompanionDataForTests()))
	require.Equal(t, ExitRejected, exitCode(err))

	truncated := filepath.Join(t.TempDir(), "truncated.zip")
	b, err := builder(t, "2020a").Build()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(truncated, b.Bytes()[:100], 0o644))
	_, err = e.execute(ctx, "install", truncated)
	require.Equal(t, ExitError, exitCode(err))

	_, err = e.execute(ctx, "install", filepath.Join(t.TempDir(), "missing.zip"))
	require.Equal(t, ExitError, exitCode(err))

	_, err = e.execute(ctx, "install")
	require.Error(t, err)
}

func TestFlagOverrides(t *testing.T) {
	e := newEnv(t, "2019c")
	other := filepath.Join(t.TempDir(), "other")

	_, err := e.execute(context.Background(), "--data-dir", other, "install", writeBundle(t, builder(t, "2020a")))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(other, "current", tzbundle.VersionEntry))
	require.NoError(t, err)

	_, err = e.execute(context.Background(), "--log-level", "shouting", "status")
	require.ErrorContains(t, err, "log_level")
}

func TestWatch(t *testing.T) {
	e := newEnv(t, "2019c")
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	out, err := e.execute(ctx, "watch")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "system 2019c "), out)
}

func TestInstall_NoWait(t *testing.T) {
	e := newEnv(t, "2019c")
	require.NoError(t, os.MkdirAll(e.dataDir, 0o755))
	unlock, err := fsutil.Lock(filepath.Join(e.dataDir, lockFile))
	require.NoError(t, err)
	defer unlock()

	_, err = e.execute(context.Background(), "--no-wait", "install", writeBundle(t, builder(t, "2020a")))
	require.ErrorIs(t, err, fsutil.ErrLocked)
}

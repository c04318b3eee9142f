// tzupdate installs and removes time zone rules update bundles.
//
// Exit codes: 0 when the operation applied or had nothing to do, 3 when
// the bundle was rejected, 1 on errors. A rejected bundle will be
// rejected again; an error may go away on retry.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/ngrash/go-tzupdate/internal/config"
	"github.com/ngrash/go-tzupdate/internal/fsutil"
	"github.com/ngrash/go-tzupdate/internal/logging"
	"github.com/ngrash/go-tzupdate/tzinstall"
)

const (
	ExitError    = 1
	ExitRejected = 3
)

// lockFile serializes tzupdate processes sharing a data directory.
const lockFile = ".lock"

// exitError carries a process exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }
func (e *exitError) ExitCode() int { return e.code }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(os.Stdout).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		code := ExitError
		var coder interface{ ExitCode() int }
		if errors.As(err, &coder) {
			code = coder.ExitCode()
		}
		os.Exit(code)
	}
}

type app struct {
	out io.Writer

	configPath  string
	dataDir     string
	systemRules string
	logLevel    string
	noWait      bool

	cfg      config.Config
	log      logging.Logger
	registry *prometheus.Registry
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}
	root := &cobra.Command{
		Use:               "tzupdate",
		Short:             "Install time zone rules updates",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "configuration file (default $"+config.EnvPath+")")
	flags.StringVar(&a.dataDir, "data-dir", "", "override data_dir")
	flags.StringVar(&a.systemRules, "system-rules", "", "override system_rules_file")
	flags.StringVar(&a.logLevel, "log-level", "", "override log_level")
	flags.BoolVar(&a.noWait, "no-wait", false, "fail instead of waiting for another tzupdate process")

	root.AddCommand(
		a.installCmd(),
		a.uninstallCmd(),
		a.statusCmd(),
		a.watchCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.dataDir != "" {
		cfg.DataDir = a.dataDir
	}
	if a.systemRules != "" {
		cfg.SystemRulesFile = a.systemRules
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logging.New("tzupdate", logging.Level(cfg.LogLevel)).WithField("command", cmd.Name())
	a.registry = prometheus.NewRegistry()
	return nil
}

func (a *app) installer() *tzinstall.Installer {
	return tzinstall.New(a.cfg.DataDir, a.cfg.SystemRulesFile,
		tzinstall.WithLogger(a.log),
		tzinstall.WithMetrics(tzinstall.NewMetrics(a.registry)),
	)
}

// locked runs fn while holding the data directory lock.
func (a *app) locked(fn func() error) error {
	if err := os.MkdirAll(a.cfg.DataDir, 0o755); err != nil {
		return errors.Wrap(err, "create data dir")
	}
	lock := fsutil.Lock
	if a.noWait {
		lock = fsutil.TryLock
	}
	unlock, err := lock(filepath.Join(a.cfg.DataDir, lockFile))
	if err != nil {
		return err
	}
	defer func() {
		if err := unlock(); err != nil {
			a.log.WithError(err).Warn("unable to release lock")
		}
	}()
	return fn()
}

// writeMetrics exports the metrics of this run for the node exporter
// textfile collector.
func (a *app) writeMetrics() {
	if a.cfg.MetricsTextfile == "" {
		return
	}
	if err := prometheus.WriteToTextfile(a.cfg.MetricsTextfile, a.registry); err != nil {
		a.log.WithError(err).Warn("unable to write metrics")
	}
}

// report prints res and turns a rejection into an exit code.
func (a *app) report(res tzinstall.Result) error {
	fmt.Fprintln(a.out, res)
	if res.Status == tzinstall.StatusRejected {
		return &exitError{code: ExitRejected, err: errors.Errorf("bundle rejected: %s", res.Reason)}
	}
	return nil
}

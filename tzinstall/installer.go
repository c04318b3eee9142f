// Package tzinstall installs time zone update bundles into a data
// directory.
//
// The data directory holds up to three slots:
//
//	current  the installed update, read by time zone consumers
//	working  a bundle being unpacked and checked
//	old      the previous update while it is being replaced
//
// A bundle becomes visible only through the rename of working to current,
// so a crash at any point leaves either the previous update, the new
// update or no update installed. Leftover working and old slots are
// removed by the next operation.
//
// All slots must be on the same file system as the data directory.
package tzinstall

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ngrash/go-tzupdate/internal/fsutil"
	"github.com/ngrash/go-tzupdate/internal/logging"
	"github.com/ngrash/go-tzupdate/rulesdata"
	"github.com/ngrash/go-tzupdate/tzbundle"
)

// Slot directory names below the data directory.
const (
	CurrentDir = "current"
	WorkingDir = "working"
	OldDir     = "old"
)

// Paths are the directories an Installer operates on.
type Paths struct {
	DataDir string
	Current string
	Working string
	Old     string
}

// Option configures an Installer.
type Option func(*Installer)

// WithLogger sets the logger. The default is the "tzinstall" component
// logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(i *Installer) { i.log = l }
}

// WithRulesLoader sets the loader used to validate rules data. The
// default is FileRulesLoader.
func WithRulesLoader(l RulesLoader) Option {
	return func(i *Installer) { i.loader = l }
}

// WithSystemVersion sets the accessor for the rules version of the data
// shipped with the system. The default reads the header of the system
// rules file.
func WithSystemVersion(f func() (string, error)) Option {
	return func(i *Installer) { i.systemVersion = f }
}

// WithMetrics makes the installer record its activity in m.
func WithMetrics(m *Metrics) Option {
	return func(i *Installer) { i.metrics = m }
}

// WithFS replaces the file system mutations used on the slots.
func WithFS(fs FS) Option {
	return func(i *Installer) { i.fs = fs }
}

// Installer installs and uninstalls bundles in one data directory. Its
// methods are safe for concurrent use; exclusion between processes
// sharing a data directory is up to the caller.
type Installer struct {
	mu            sync.Mutex
	paths         Paths
	log           logrus.FieldLogger
	loader        RulesLoader
	systemVersion func() (string, error)
	metrics       *Metrics
	fs            FS
}

// New returns an Installer for dataDir. systemRulesFile is the rules-data
// file shipped with the system; installed bundles must never be older.
func New(dataDir, systemRulesFile string, opts ...Option) *Installer {
	i := &Installer{
		paths: Paths{
			DataDir: dataDir,
			Current: filepath.Join(dataDir, CurrentDir),
			Working: filepath.Join(dataDir, WorkingDir),
			Old:     filepath.Join(dataDir, OldDir),
		},
		log:    logging.New("tzinstall"),
		loader: FileRulesLoader,
		systemVersion: func() (string, error) {
			return rulesdata.ReadRulesVersion(systemRulesFile)
		},
		fs: osFS{},
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Paths returns the directories the installer operates on.
func (i *Installer) Paths() Paths {
	return i.paths
}

// Install unpacks, checks and installs the bundle in content.
//
// A bundle that is well-formed but not acceptable yields a Result with
// StatusRejected and a nil error. Errors are reserved for failures that
// may go away on retry, such as a truncated download or a failed rename.
// In every case the previously installed update stays in place unless
// the result is StatusApplied.
func (i *Installer) Install(content []byte) (Result, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	start := time.Now()
	digest := tzbundle.Digest(content)
	log := i.log.WithFields(logrus.Fields{"operation": "install", "digest": digest})

	res, err := i.install(log, content)
	res.Digest = digest
	i.metrics.observe("install", start, res, err)

	switch {
	case err != nil:
		log.WithError(err).Error("install failed")
		// A failure after the swap still leaves the new update in current.
		if v, verr := i.installedVersion(); verr == nil {
			i.metrics.setInstalled(v)
		}
	case res.Status == StatusRejected:
		log.WithFields(logrus.Fields{"reason": res.Reason, "detail": res.Detail}).Warn("bundle rejected")
	default:
		log.WithField("version", res.Version.String()).Info("bundle installed")
		i.metrics.setInstalled(res.Version)
	}
	return res, err
}

func (i *Installer) install(log logrus.FieldLogger, content []byte) (Result, error) {
	i.cleanUp(log)

	if err := os.MkdirAll(i.paths.DataDir, 0o755); err != nil {
		return Result{}, errors.Wrapf(err, "create data dir %s", i.paths.DataDir)
	}
	if err := tzbundle.Extract(content, i.paths.Working); err != nil {
		i.cleanUp(log)
		return Result{}, errors.Wrap(err, "unpack bundle")
	}

	v, rej, err := i.verify(log)
	if err != nil || rej != nil {
		i.cleanUp(log)
		if err != nil {
			return Result{}, err
		}
		return *rej, nil
	}

	swapped, err := i.commit(log)
	if swapped {
		i.cleanUp(log)
	}
	if err != nil {
		return Result{Version: v}, err
	}
	return applied(v), nil
}

// verify checks the unpacked bundle in the working slot. A non-nil Result
// is a rejection.
func (i *Installer) verify(log logrus.FieldLogger) (*tzbundle.Version, *Result, error) {
	reject := func(reason Reason, v *tzbundle.Version, format string, args ...any) (*tzbundle.Version, *Result, error) {
		r := rejected(reason, v, format, args...)
		return nil, &r, nil
	}

	var statErr error
	missing := tzbundle.MissingEntries(func(name string) bool {
		ok, err := fsutil.Exists(filepath.Join(i.paths.Working, name))
		if err != nil && statErr == nil {
			statErr = err
		}
		return ok
	})
	if statErr != nil {
		return nil, nil, statErr
	}
	if len(missing) > 0 {
		return reject(ReasonMissingEntry, nil, "bundle lacks %s", strings.Join(missing, ", "))
	}

	raw, err := os.ReadFile(filepath.Join(i.paths.Working, tzbundle.VersionEntry))
	if err != nil {
		return nil, nil, errors.Wrap(err, "read version record")
	}
	v, err := tzbundle.ParseVersion(raw)
	switch {
	case errors.Is(err, tzbundle.ErrLegacyVersion):
		return reject(ReasonUnsupportedFormat, nil, "%v", err)
	case err != nil:
		return reject(ReasonBadVersion, nil, "%v", err)
	}
	if err := tzbundle.CheckCompatible(v); err != nil {
		return reject(ReasonFormatMismatch, &v, "%v", err)
	}

	active, err := i.activeRulesVersion(log)
	if err != nil {
		return nil, nil, err
	}
	if tzbundle.CompareRulesVersions(v.RulesVersion, active) < 0 {
		return reject(ReasonRulesTooOld, &v, "rules version %s is older than active %s", v.RulesVersion, active)
	}

	rules, err := i.loader.Load(filepath.Join(i.paths.Working, tzbundle.RulesEntry))
	if err != nil {
		return reject(ReasonInvalidRulesData, &v, "%v", err)
	}
	defer func() {
		if err := rules.Close(); err != nil {
			log.WithError(err).Warn("unable to close rules data")
		}
	}()
	if err := rules.Validate(); err != nil {
		return reject(ReasonInvalidRulesData, &v, "%v", err)
	}
	if got := rules.RulesVersion(); got != v.RulesVersion {
		return reject(ReasonInconsistentVersion, &v, "rules data is version %s, version record says %s", got, v.RulesVersion)
	}
	return &v, nil, nil
}

// commit promotes the working slot to current. swapped reports whether
// current holds the new update, even if the final directory sync failed.
func (i *Installer) commit(log logrus.FieldLogger) (swapped bool, err error) {
	hadCurrent, err := fsutil.Exists(i.paths.Current)
	if err != nil {
		return false, err
	}
	if hadCurrent {
		if err := i.fs.Rename(i.paths.Current, i.paths.Old); err != nil {
			return false, errors.Wrap(err, "move current update aside")
		}
	}
	if err := i.fs.Rename(i.paths.Working, i.paths.Current); err != nil {
		if hadCurrent {
			if rerr := i.fs.Rename(i.paths.Old, i.paths.Current); rerr != nil {
				log.WithError(rerr).Error("unable to restore previous update")
			} else {
				log.Warn("restored previous update")
			}
		}
		return false, errors.Wrap(err, "promote working update")
	}
	return true, errors.Wrap(i.fs.SyncDir(i.paths.DataDir), "sync data dir")
}

// Uninstall removes the installed update, reverting to the system rules.
// It returns StatusNoOp when nothing is installed.
func (i *Installer) Uninstall() (Result, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	start := time.Now()
	log := i.log.WithField("operation", "uninstall")

	res, err := i.uninstall(log)
	i.metrics.observe("uninstall", start, res, err)

	switch {
	case err != nil:
		log.WithError(err).Error("uninstall failed")
	case res.Status == StatusNoOp:
		log.Info("nothing installed")
	default:
		log.Info("update uninstalled")
		i.metrics.setInstalled(nil)
	}
	return res, err
}

func (i *Installer) uninstall(log logrus.FieldLogger) (Result, error) {
	ok, err := fsutil.Exists(i.paths.Current)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{Status: StatusNoOp}, nil
	}
	v, err := i.installedVersion()
	if err != nil {
		log.WithError(err).Warn("removing update with unreadable version record")
	}

	i.remove(log, i.paths.Old)
	if err := i.fs.Rename(i.paths.Current, i.paths.Old); err != nil {
		return Result{}, errors.Wrap(err, "move current update aside")
	}
	if err := i.fs.SyncDir(i.paths.DataDir); err != nil {
		return Result{}, errors.Wrap(err, "sync data dir")
	}
	i.remove(log, i.paths.Old)
	return applied(v), nil
}

// InstalledVersion returns the version of the installed update, or nil
// if nothing is installed.
func (i *Installer) InstalledVersion() (*tzbundle.Version, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.installedVersion()
}

// SystemRulesVersion returns the rules version shipped with the system.
func (i *Installer) SystemRulesVersion() (string, error) {
	v, err := i.systemVersion()
	return v, errors.Wrap(err, "read system rules version")
}

// ActiveRulesVersion returns the rules version consumers currently see:
// the newer of the system and the installed rules.
func (i *Installer) ActiveRulesVersion() (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.activeRulesVersion(i.log)
}

func (i *Installer) installedVersion() (*tzbundle.Version, error) {
	ok, err := fsutil.Exists(i.paths.Current)
	if err != nil || !ok {
		return nil, err
	}
	raw, err := os.ReadFile(filepath.Join(i.paths.Current, tzbundle.VersionEntry))
	if err != nil {
		return nil, errors.Wrap(err, "read installed version record")
	}
	v, err := tzbundle.ParseVersion(raw)
	if err != nil {
		return nil, errors.Wrap(err, "parse installed version record")
	}
	return &v, nil
}

func (i *Installer) activeRulesVersion(log logrus.FieldLogger) (string, error) {
	system, err := i.SystemRulesVersion()
	if err != nil {
		return "", err
	}
	installed, err := i.installedRulesVersion(log)
	if err != nil {
		return "", err
	}
	if tzbundle.CompareRulesVersions(installed, system) > 0 {
		return installed, nil
	}
	return system, nil
}

// installedRulesVersion returns "" if nothing is installed. An installed
// update whose version record cannot be read, such as one in the legacy
// layout, is judged by the header of its rules data, the same way
// tzroot.Locate judges it. If that fails too, the update is unusable and
// the system rules are the floor.
func (i *Installer) installedRulesVersion(log logrus.FieldLogger) (string, error) {
	ok, err := fsutil.Exists(i.paths.Current)
	if err != nil || !ok {
		return "", err
	}
	v, err := i.installedVersion()
	if err == nil {
		return v.RulesVersion, nil
	}
	rv, herr := rulesdata.ReadRulesVersion(InstalledRulesFile(i.paths.DataDir))
	if herr != nil {
		log.WithError(err).WithField("header_error", herr.Error()).Warn("installed update is unreadable, ignoring it")
		return "", nil
	}
	log.WithError(err).WithField("rules_version", rv).Warn("using rules data version of installed update")
	return rv, nil
}

// InstalledRulesFile returns the path of the rules data of the update
// installed in dataDir.
func InstalledRulesFile(dataDir string) string {
	return filepath.Join(dataDir, CurrentDir, tzbundle.RulesEntry)
}

// cleanUp removes the working and old slots. Failures are logged: a stale
// slot is removed again by the next operation.
func (i *Installer) cleanUp(log logrus.FieldLogger) {
	i.remove(log, i.paths.Old)
	i.remove(log, i.paths.Working)
}

func (i *Installer) remove(log logrus.FieldLogger, path string) {
	if err := i.fs.RemoveAll(path); err != nil {
		log.WithError(err).WithField("path", path).Warn("unable to remove directory")
	}
}

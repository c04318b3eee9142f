package tzroot

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ngrash/go-tzupdate/tzinstall"
)

// DefaultSettle is how long a Watcher waits for the watched files to
// quiet down before resolving the location again. An install renames
// the current slot twice in quick succession.
const DefaultSettle = 100 * time.Millisecond

// Watcher reports changes of the active rules-data file.
type Watcher struct {
	dataDir         string
	systemRulesFile string
	log             logrus.FieldLogger

	// Settle is the quiet period after the last relevant event.
	Settle time.Duration
}

// NewWatcher returns a Watcher for the given data directory and system
// rules file.
func NewWatcher(dataDir, systemRulesFile string, log logrus.FieldLogger) *Watcher {
	return &Watcher{
		dataDir:         dataDir,
		systemRulesFile: systemRulesFile,
		log:             log.WithField("data_dir", dataDir),
		Settle:          DefaultSettle,
	}
}

// Run calls fn with the current location, then again each time the
// location changes, until ctx is done. fn runs on the calling goroutine.
//
// Run watches the data directory and the directory of the system rules
// file, so a system upgrade that replaces the system rules is noticed
// too. The system directory must exist.
func (w *Watcher) Run(ctx context.Context, fn func(Location)) error {
	if err := os.MkdirAll(w.dataDir, 0o755); err != nil {
		return errors.Wrapf(err, "create data dir %s", w.dataDir)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create watcher")
	}
	defer fw.Close()
	systemDir := filepath.Dir(w.systemRulesFile)
	for _, dir := range []string{w.dataDir, systemDir} {
		if err := fw.Add(dir); err != nil {
			return errors.Wrapf(err, "watch %s", dir)
		}
	}

	last := Locate(w.dataDir, w.systemRulesFile)
	w.log.WithFields(logrus.Fields{"path": last.Path, "source": last.Source, "rules_version": last.RulesVersion}).Info("watching rules data")
	fn(last)

	var settle <-chan time.Time
	for {
		select {
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if w.relevant(ev.Name) {
				settle = time.After(w.Settle)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Warn("watcher error")
		case <-settle:
			settle = nil
			loc := Locate(w.dataDir, w.systemRulesFile)
			if loc == last {
				continue
			}
			last = loc
			w.log.WithFields(logrus.Fields{"path": loc.Path, "source": loc.Source, "rules_version": loc.RulesVersion}).Info("rules data changed")
			fn(loc)
		case <-ctx.Done():
			return nil
		}
	}
}

func (w *Watcher) relevant(name string) bool {
	name = filepath.Clean(name)
	return name == filepath.Join(w.dataDir, tzinstall.CurrentDir) ||
		name == filepath.Clean(w.systemRulesFile)
}

// Package logging hands out component loggers that share one root
// logrus.Logger, so a single level or output change applies everywhere.
package logging

import (
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

// Setter configures the root logger.
type Setter func(*logrus.Logger) error

var root = struct {
	logger *logrus.Logger
	mutex  *sync.Mutex
}{
	logger: logrus.New(),
	mutex:  &sync.Mutex{},
}

// Logger is the logging interface used throughout the module.
type Logger interface {
	logrus.FieldLogger
}

// New returns a logger tagged with the given component name after
// applying setters to the root logger.
func New(component string, setters ...Setter) Logger {
	for _, setter := range setters {
		if err := Set(setter); err != nil {
			root.logger.WithError(err).Warn("unable to apply logger setting")
		}
	}
	return root.logger.WithField("component", component)
}

// Set applies setter to the root logger.
func Set(setter Setter) error {
	root.mutex.Lock()
	defer root.mutex.Unlock()
	return setter(root.logger)
}

// Level sets the root level. Unparseable levels fall back to info.
func Level(lvl string) Setter {
	l, err := logrus.ParseLevel(lvl)
	if err != nil {
		root.logger.WithError(err).Errorf("unable to parse provided level %q", lvl)
		l = logrus.InfoLevel
	}
	return func(r *logrus.Logger) error {
		r.SetLevel(l)
		return nil
	}
}

// Output redirects the root logger.
func Output(w io.Writer) Setter {
	return func(r *logrus.Logger) error {
		r.SetOutput(w)
		return nil
	}
}

// Discard returns a logger that drops everything. Tests use it.
func Discard() Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

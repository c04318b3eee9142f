// Package config loads the YAML configuration shared by the tzupdate
// command-line tools.
package config

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// EnvPath names the environment variable consulted for the configuration
// file when no path is given explicitly.
const EnvPath = "TZUPDATE_CONFIG"

// Config is the tool configuration.
type Config struct {
	// DataDir holds the current, working and old slots.
	DataDir string `yaml:"data_dir"`
	// SystemRulesFile is the rules-data file shipped with the system.
	SystemRulesFile string `yaml:"system_rules_file"`
	// LogLevel is a logrus level name.
	LogLevel string `yaml:"log_level"`
	// MetricsTextfile, if set, receives the metrics of each run in the
	// Prometheus text format.
	MetricsTextfile string `yaml:"metrics_textfile"`
}

// Default returns the configuration used for keys missing from the file.
func Default() Config {
	return Config{
		DataDir:         "/var/lib/tzupdate",
		SystemRulesFile: "/usr/share/zoneinfo/tzdata",
		LogLevel:        "info",
	}
}

// Load reads the configuration file at path, or at $TZUPDATE_CONFIG if
// path is empty. Without either, Default is returned.
func Load(path string) (Config, error) {
	if path == "" {
		path = os.Getenv(EnvPath)
	}
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "read config")
	}
	c, err := Parse(b)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config %s", path)
	}
	return c, nil
}

// Parse decodes a YAML document over Default and validates the result.
// Unknown keys are errors.
func Parse(b []byte) (Config, error) {
	c := Default()
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && err != io.EOF {
		return Config{}, errors.Wrap(err, "decode")
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("data_dir must not be empty")
	}
	if c.SystemRulesFile == "" {
		return errors.New("system_rules_file must not be empty")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "log_level")
	}
	return nil
}

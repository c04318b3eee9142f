// tzbundle builds a time zone update bundle from a properties file.
//
// The properties file is YAML:
//
//	rules_version: 2020a          # optional when iana_archive is set
//	revision: 1
//	rules_data: tzdata            # rules-data file
//	companion_data: zone1970.tab  # optional when iana_archive is set
//	iana_archive: tzdata2020a.tar.gz
//
// Relative paths are resolved against the directory of the properties
// file.
package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/ngrash/go-tzupdate/internal/fsutil"
	"github.com/ngrash/go-tzupdate/internal/logging"
	"github.com/ngrash/go-tzupdate/rulesdata"
	"github.com/ngrash/go-tzupdate/tzbundle"
	"github.com/ngrash/go-tzupdate/tzdb/ianadist"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// properties describe the bundle to build.
type properties struct {
	RulesVersion  string `yaml:"rules_version"`
	Revision      int    `yaml:"revision"`
	RulesData     string `yaml:"rules_data"`
	CompanionData string `yaml:"companion_data"`
	IANAArchive   string `yaml:"iana_archive"`
}

func readProperties(path string) (properties, error) {
	var p properties
	b, err := os.ReadFile(path)
	if err != nil {
		return p, errors.Wrap(err, "read properties")
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && err != io.EOF {
		return p, errors.Wrapf(err, "decode %s", path)
	}
	base := filepath.Dir(path)
	for _, f := range []*string{&p.RulesData, &p.CompanionData, &p.IANAArchive} {
		if *f != "" && !filepath.IsAbs(*f) {
			*f = filepath.Join(base, *f)
		}
	}
	return p, nil
}

func run(args []string) error {
	var (
		propsPath string
		output    string
		logLevel  string
	)
	fs := pflag.NewFlagSet("tzbundle", pflag.ContinueOnError)
	fs.StringVarP(&propsPath, "properties", "p", "", "bundle properties file (YAML)")
	fs.StringVarP(&output, "output", "o", "", "bundle file to write")
	fs.StringVar(&logLevel, "log-level", "info", "log level")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if propsPath == "" || output == "" {
		return errors.New("--properties and --output are required")
	}
	log := logging.New("tzbundle", logging.Level(logLevel))

	props, err := readProperties(propsPath)
	if err != nil {
		return err
	}
	b, err := build(props)
	if err != nil {
		return err
	}
	if err := fsutil.WriteFile(output, b.Bytes(), 0o644); err != nil {
		return err
	}
	v, _ := b.Version()
	log.WithField("output", output).
		WithField("version", v.String()).
		WithField("digest", b.Digest()).
		Info("bundle written")
	return nil
}

// build assembles the bundle and checks the rules data the way the
// installer will, so a bad bundle fails here and not on devices.
func build(p properties) (*tzbundle.Bundle, error) {
	var companion []byte
	if p.IANAArchive != "" {
		release, err := ianadist.ReadArchiveFile(p.IANAArchive)
		if err != nil {
			return nil, errors.Wrap(err, "read IANA archive")
		}
		switch {
		case p.RulesVersion == "":
			p.RulesVersion = release.Version
		case p.RulesVersion != release.Version:
			return nil, errors.Errorf("rules_version %s does not match IANA release %s", p.RulesVersion, release.Version)
		}
		companion = release.ZoneTab
	}
	if p.RulesData == "" {
		return nil, errors.New("rules_data is required")
	}

	v, err := tzbundle.NewVersion(tzbundle.CurrentFormatMajor, tzbundle.CurrentFormatMinor, p.RulesVersion, p.Revision)
	if err != nil {
		return nil, err
	}

	rules, err := os.ReadFile(p.RulesData)
	if err != nil {
		return nil, errors.Wrap(err, "read rules data")
	}
	r, err := rulesdata.Parse(rules)
	if err != nil {
		return nil, errors.Wrap(err, "rules data")
	}
	if err := r.Validate(); err != nil {
		return nil, errors.Wrap(err, "rules data")
	}
	if r.RulesVersion() != v.RulesVersion {
		return nil, errors.Errorf("rules data is version %s, want %s", r.RulesVersion(), v.RulesVersion)
	}

	builder := tzbundle.NewBuilder().SetVersion(v).SetRulesData(rules)
	if p.CompanionData != "" {
		builder.SetCompanionDataFile(p.CompanionData)
	} else {
		builder.SetCompanionData(companion)
	}
	return builder.Build()
}

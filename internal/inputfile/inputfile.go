// Package inputfile recognizes the files the inspection tools accept: an
// update bundle, a rules-data file or a single TZif zone.
package inputfile

import (
	"bytes"
	"os"

	"github.com/pkg/errors"

	"github.com/ngrash/go-tzupdate/rulesdata"
	"github.com/ngrash/go-tzupdate/tzbundle"
	"github.com/ngrash/go-tzupdate/tzif"
)

// Kind is the detected file type.
type Kind int

const (
	KindBundle Kind = iota + 1
	KindRulesData
	KindTZif
)

func (k Kind) String() string {
	switch k {
	case KindBundle:
		return "bundle"
	case KindRulesData:
		return "rules data"
	case KindTZif:
		return "TZif"
	default:
		return "unknown"
	}
}

var zipMagic = []byte("PK\x03\x04")

// Input is a decoded input file. Rules is set for bundles and rules-data
// files, Bundle and Version for bundles only and Zone for TZif files only.
type Input struct {
	Path    string
	Kind    Kind
	Bundle  *tzbundle.Bundle
	Version *tzbundle.Version
	Entries map[string][]byte
	Rules   *rulesdata.Reader
	Zone    *tzif.Data
}

// Load reads and decodes the file at path.
func Load(path string) (*Input, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read input")
	}
	in, err := Decode(b)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	in.Path = path
	return in, nil
}

// Decode detects the type of b by its leading magic bytes and decodes it.
func Decode(b []byte) (*Input, error) {
	switch {
	case bytes.HasPrefix(b, zipMagic):
		return decodeBundle(b)
	case bytes.HasPrefix(b, rulesdata.Magic[:]):
		r, err := rulesdata.Parse(b)
		if err != nil {
			return nil, err
		}
		return &Input{Kind: KindRulesData, Rules: r}, nil
	case bytes.HasPrefix(b, tzif.Magic[:]):
		d, err := tzif.Decode(b)
		if err != nil {
			return nil, err
		}
		return &Input{Kind: KindTZif, Zone: &d}, nil
	default:
		return nil, errors.New("not a bundle, rules-data or TZif file")
	}
}

func decodeBundle(b []byte) (*Input, error) {
	in := &Input{Kind: KindBundle, Bundle: tzbundle.NewBundle(b)}
	entries, err := in.Bundle.Entries()
	if err != nil {
		return nil, err
	}
	in.Entries = entries
	if raw, ok := entries[tzbundle.VersionEntry]; ok {
		v, err := tzbundle.ParseVersion(raw)
		if err != nil {
			return nil, errors.Wrap(err, "version record")
		}
		in.Version = &v
	}
	if raw, ok := entries[tzbundle.RulesEntry]; ok {
		r, err := rulesdata.Parse(raw)
		if err != nil {
			return nil, errors.Wrap(err, "rules data")
		}
		in.Rules = r
	}
	return in, nil
}

// Package tzroot tells time zone consumers which rules-data file to read:
// the installed update if there is a usable one, otherwise the file
// shipped with the system.
package tzroot

import (
	"fmt"

	"github.com/ngrash/go-tzupdate/rulesdata"
	"github.com/ngrash/go-tzupdate/tzbundle"
	"github.com/ngrash/go-tzupdate/tzinstall"
)

// Source says where a Location points.
type Source int

const (
	SourceSystem Source = iota
	SourceInstalled
)

func (s Source) String() string {
	switch s {
	case SourceSystem:
		return "system"
	case SourceInstalled:
		return "installed"
	default:
		return fmt.Sprintf("Source(%d)", int(s))
	}
}

// Location is the rules-data file consumers should read.
type Location struct {
	Path   string
	Source Source
	// RulesVersion is empty if the file header could not be read.
	RulesVersion string
}

// InstalledRulesFile returns the path of the rules data of the update
// installed in dataDir.
func InstalledRulesFile(dataDir string) string {
	return tzinstall.InstalledRulesFile(dataDir)
}

// Locate resolves the active rules-data file. The installed update wins
// unless it is missing, unreadable or older than the system rules, which
// happens after a system upgrade.
//
// The installed version comes from the rules-data header. The installer
// reads the version record instead and only falls back to the header;
// Install rejects a bundle whose record and header disagree, so both give
// the same answer as Installer.ActiveRulesVersion.
func Locate(dataDir, systemRulesFile string) Location {
	system := Location{Path: systemRulesFile, Source: SourceSystem}
	system.RulesVersion, _ = rulesdata.ReadRulesVersion(systemRulesFile)

	path := InstalledRulesFile(dataDir)
	v, err := rulesdata.ReadRulesVersion(path)
	if err != nil || tzbundle.CompareRulesVersions(v, system.RulesVersion) < 0 {
		return system
	}
	return Location{Path: path, Source: SourceInstalled, RulesVersion: v}
}

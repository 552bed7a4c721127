// SPDX-License-Identifier: MIT
//
// Package build carries the name, version and commit of the binary. Release
// builds inject them with linker flags:
//
//	go build -ldflags "-X sdrfront/pkg/build.buildName=sdrfront \
//	  -X sdrfront/pkg/build.buildVersion=0.3.0 ..."
//
// Development builds set none of them and fall back to the module build info
// recorded by the Go toolchain.
package build

import (
	"fmt"
	"runtime/debug"
)

const (
	defaultName        = "sdrfront"
	defaultDescription = "Audio front end and waterfall display for SDR receivers"
	unknown            = "unknown"
)

type ldFlags struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// String formats the flags for `--version` output.
func (f *ldFlags) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", f.Name, f.Version, f.Commit, f.Time)
}

// Package-level variables for build information, populated by -ldflags.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = &ldFlags{
		Name:        defaultName,
		Description: defaultDescription,
		Time:        unknown,
		Commit:      unknown,
		Version:     unknown,
	}
)

// readBuildInfo is swapped out in tests.
var readBuildInfo = debug.ReadBuildInfo

// Initialize copies the ldflags variables into the build flags. Either all
// of them are set (release build) or none are (development build, filled
// from the toolchain's build info). A partial set is rejected because it
// means the release script is broken.
func Initialize() error {
	set := map[string]string{
		"BuildName":    buildName,
		"BuildTime":    buildTime,
		"BuildCommit":  buildCommit,
		"BuildVersion": buildVersion,
	}
	var missing []string
	for _, key := range []string{"BuildName", "BuildTime", "BuildCommit", "BuildVersion"} {
		if set[key] == "" {
			missing = append(missing, key)
		}
	}

	switch len(missing) {
	case 0:
		buildFlags.Name = buildName
		buildFlags.Time = buildTime
		buildFlags.Commit = buildCommit
		buildFlags.Version = buildVersion
		return nil
	case len(set):
		fillFromBuildInfo()
		return nil
	default:
		return fmt.Errorf("%s is required", missing[0])
	}
}

func fillFromBuildInfo() {
	info, ok := readBuildInfo()
	if !ok {
		return
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		buildFlags.Version = v
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			buildFlags.Commit = s.Value
		case "vcs.time":
			buildFlags.Time = s.Value
		}
	}
}

// GetBuildFlags returns the current build information. Initialize should
// be called first.
func GetBuildFlags() *ldFlags {
	return buildFlags
}

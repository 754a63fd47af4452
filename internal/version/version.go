// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package version reports the apledger build. Release builds set the
// variables below with -ldflags; other builds fall back to the build info
// the Go toolchain embeds (module version, vcs revision and time).
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set with -ldflags "-X github.com/aplane-algo/apledger/internal/version.Version=1.0.0".
var (
	Version   string
	GitCommit string
	BuildTime string
)

const unknown = "unknown"

// Info is the resolved build description.
type Info struct {
	Version string
	Commit  string
	Built   string
}

// Get resolves the build description, preferring ldflags values.
func Get() Info {
	info := Info{Version: Version, Commit: GitCommit, Built: BuildTime}
	if bi, ok := debug.ReadBuildInfo(); ok {
		info = info.fill(bi)
	}
	if info.Version == "" {
		info.Version = "dev"
	}
	if info.Commit == "" {
		info.Commit = unknown
	}
	if info.Built == "" {
		info.Built = unknown
	}
	return info
}

func (i Info) fill(bi *debug.BuildInfo) Info {
	if i.Version == "" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		i.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if i.Commit == "" {
				i.Commit = s.Value
				if len(i.Commit) > 12 {
					i.Commit = i.Commit[:12]
				}
			}
		case "vcs.time":
			if i.Built == "" {
				i.Built = s.Value
			}
		}
	}
	return i
}

func (i Info) String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s, %s/%s)",
		i.Version, i.Commit, i.Built, runtime.GOOS, runtime.GOARCH)
}

// Short is the version, plus the commit when one is known.
func (i Info) Short() string {
	if i.Commit == unknown {
		return i.Version
	}
	return i.Version + "+" + i.Commit
}

// String returns the --version line.
func String() string { return Get().String() }

// Short returns the version shown in the shell banner.
func Short() string { return Get().Short() }

// Package version resolves the build's version string: an explicit -ldflags
// override wins, otherwise the VCS revision recorded in the build info is
// used.
package version

import "runtime/debug"

// Version can be injected at build time:
//
//	go build -ldflags "-X github.com/cgcardona/Stori-sub010/version.Version=$(git describe --dirty)"
var Version string

// Hash is the short VCS revision the binary was built from, with a -dirty
// suffix when the working tree had local modifications. Empty when the build
// info carries no revision.
var Hash = func() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	var revision string
	var modified bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			modified = s.Value == "true"
		}
	}
	if len(revision) < 7 {
		return ""
	}
	hash := revision[:7]
	if modified {
		hash += "-dirty"
	}
	return hash
}()

// VersionOrHash is what the cmd tools print for -v.
var VersionOrHash = func() string {
	if Version != "" {
		return Version
	}
	return Hash
}()

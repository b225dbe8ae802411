// Package version reports build information. Version, Commit and BuildTime
// are set at link time:
//
//	go build -ldflags "-X github.com/kbukum/birdkit/version.Version=1.0.0"
//
// Missing values are filled from the module build info when available.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

var (
	Version   = "dev"
	Commit    = ""
	BuildTime = ""
)

// Info is the resolved build information.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
	GoVersion string `json:"go_version"`
	Dirty     bool   `json:"dirty,omitempty"`
}

// Get resolves build information from the link-time variables and the
// embedded VCS settings.
func Get() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		info.fill(bi.Settings)
	}
	return info
}

func (i *Info) fill(settings []debug.BuildSetting) {
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			if i.Commit == "" {
				i.Commit = s.Value
			}
		case "vcs.modified":
			i.Dirty = s.Value == "true"
		case "vcs.time":
			if i.BuildTime == "" {
				i.BuildTime = s.Value
			}
		}
	}
	if len(i.Commit) > 7 {
		i.Commit = i.Commit[:7]
	}
}

// IsRelease reports whether the build carries a clean tagged version.
func (i Info) IsRelease() bool {
	return i.Version != "dev" && !i.Dirty && !strings.Contains(i.Version, "dirty")
}

// Short returns the version with the commit appended for non-release builds.
func (i Info) Short() string {
	if i.Commit == "" || i.IsRelease() {
		return i.Version
	}
	if i.Dirty {
		return fmt.Sprintf("%s-%s-dirty", i.Version, i.Commit)
	}
	return fmt.Sprintf("%s-%s", i.Version, i.Commit)
}

// String is the one-line form printed by `birdctl version`.
func (i Info) String() string {
	var b strings.Builder
	b.WriteString(i.Short())
	if i.BuildTime != "" {
		b.WriteString(" (built " + i.BuildTime + ")")
	}
	b.WriteString(" " + i.GoVersion)
	return b.String()
}

// UserAgent returns "product/version" for the current build.
func UserAgent(product string) string {
	return product + "/" + Get().Short()
}

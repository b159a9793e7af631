package buildinfo

import (
	"runtime/debug"
	"sync"
)

// Build-time variables (set via ldflags).
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Info contains build information.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	Modified  bool   `json:"modified,omitempty"`
}

var embedded = sync.OnceValue(func() Info {
	info := Info{GoVersion: "unknown"}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	info.GoVersion = bi.GoVersion
	if v := bi.Main.Version; v != "" && v != "(devel)" {
		info.Version = v
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			info.Commit = s.Value
		case "vcs.time":
			info.BuildTime = s.Value
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
	return info
})

// Get returns the build information.
func Get() Info {
	return merge(Info{Version: Version, Commit: Commit, BuildTime: BuildTime}, embedded())
}

func merge(set, fallback Info) Info {
	out := set
	if (out.Version == "" || out.Version == "dev") && fallback.Version != "" {
		out.Version = fallback.Version
	}
	if (out.Commit == "" || out.Commit == "unknown") && fallback.Commit != "" {
		out.Commit = fallback.Commit
		out.Modified = fallback.Modified
	}
	if (out.BuildTime == "" || out.BuildTime == "unknown") && fallback.BuildTime != "" {
		out.BuildTime = fallback.BuildTime
	}
	out.GoVersion = fallback.GoVersion
	return out
}

// String returns a formatted version string.
func String() string {
	info := Get()
	s := info.Version + " (" + info.Commit
	if info.Modified {
		s += "-dirty"
	}
	return s + ") built at " + info.BuildTime + " with " + info.GoVersion
}

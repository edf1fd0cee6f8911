// Package build describes the running binary. Info is either injected at
// link time as JSON or read from the module build information.
package build

import (
	"encoding/json"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/amp-labs/fsm/logger"
)

// Info contains build metadata.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"` //nolint:tagliatelle
	BuildTime string `json:"build_time"` //nolint:tagliatelle
	GoVersion string `json:"go_version"` //nolint:tagliatelle
	Modified  bool   `json:"modified"`
}

// Parse deserializes link-time JSON into Info. It returns (nil, false)
// for empty input, "{}" or malformed JSON.
func Parse(js string) (*Info, bool) {
	if js == "" || js == "{}" {
		return nil, false
	}

	var info Info

	if err := json.Unmarshal([]byte(js), &info); err != nil {
		logger.Get().Warn("failed to parse build info", "data", js, "error", err)

		return nil, false
	}

	return &info, true
}

// Current returns the link-time info when js parses, otherwise what the Go
// toolchain recorded in the binary.
func Current(js string) Info {
	if info, ok := Parse(js); ok {
		return *info
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return Info{Version: "unknown"}
	}

	return fromBuildInfo(bi)
}

func fromBuildInfo(bi *debug.BuildInfo) Info {
	info := Info{
		Version:   strings.TrimPrefix(bi.Main.Version, "v"),
		GoVersion: bi.GoVersion,
	}

	if info.Version == "" || info.Version == "(devel)" {
		info.Version = "dev"
	}

	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			info.GitCommit = s.Value
		case "vcs.time":
			info.BuildTime = s.Value
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}

	return info
}

func (i Info) String() string {
	var sb strings.Builder

	sb.WriteString(i.Version)

	if i.GitCommit != "" {
		commit := i.GitCommit
		if len(commit) > 12 { //nolint:mnd
			commit = commit[:12]
		}

		fmt.Fprintf(&sb, " (%s", commit)

		if i.Modified {
			sb.WriteString(", modified")
		}

		sb.WriteString(")")
	}

	if i.BuildTime != "" {
		fmt.Fprintf(&sb, " built %s", i.BuildTime)
	}

	if i.GoVersion != "" {
		fmt.Fprintf(&sb, " %s", i.GoVersion)
	}

	return sb.String()
}

// Package tracker records project visits and serves aggregate statistics.
// It owns the SQLite visit store, the time-scoped aggregation queries, and
// the HTTP handlers for the track and stats endpoints.
package tracker

import (
	"errors"
	"strings"
)

// Project identifies one of the tracked projects. The set is closed and
// known at build time; the canonical wire form is upper-case.
type Project string

const (
	ProjectDwall Project = "DWALL"
	ProjectLsar  Project = "LSAR"
	ProjectUp2b  Project = "UP2B"
	ProjectFluxy Project = "FLUXY"
)

// ErrUnknownProject is returned when an identifier is not in the registry.
var ErrUnknownProject = errors.New("unknown project")

// ProjectInfo holds the static registry metadata for a project.
type ProjectInfo struct {
	Repository  string
	Icon        string
	Description string
}

var registry = map[Project]ProjectInfo{
	ProjectDwall: {
		Repository:  "https://github.com/dwall-rs/dwall",
		Icon:        "https://raw.githubusercontent.com/dwall-rs/dwall/main/src-tauri/icons/icon.png",
		Description: "Dynamic desktop wallpaper that follows the sun",
	},
	ProjectLsar: {
		Repository:  "https://github.com/alley-rs/lsar",
		Icon:        "https://raw.githubusercontent.com/alley-rs/lsar/main/src-tauri/icons/icon.png",
		Description: "Live stream address resolver",
	},
	ProjectUp2b: {
		Repository:  "https://github.com/up2b/up2b",
		Icon:        "https://raw.githubusercontent.com/up2b/up2b/main/src-tauri/icons/icon.png",
		Description: "Image hosting upload client",
	},
	ProjectFluxy: {
		Repository:  "https://github.com/alley-rs/fluxy",
		Icon:        "https://raw.githubusercontent.com/alley-rs/fluxy/main/src-tauri/icons/icon.png",
		Description: "LAN file transfer tool",
	},
}

// ParseProject resolves an identifier to a known Project. Matching is
// case-insensitive; unknown identifiers return ErrUnknownProject so callers
// can reject them at the HTTP boundary before any query runs.
func ParseProject(s string) (Project, error) {
	p := Project(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := registry[p]; !ok {
		return "", ErrUnknownProject
	}
	return p, nil
}

// Info returns the registry metadata for a known project. Lookup never
// fails for a value produced by ParseProject.
func (p Project) Info() ProjectInfo {
	return registry[p]
}

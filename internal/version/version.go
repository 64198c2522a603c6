// Package version exposes the build identity shown in the startup banner
// and served at /api/v1/version.
package version

import "fmt"

// Overridden at build time via -ldflags.
var (
	Name      = "Nightjar"
	Version   = "0.1.0"
	BuildTime = ""
	GitCommit = ""
)

// Info is the version payload served over the HTTP API.
type Info struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	BuildTime string `json:"buildTime,omitempty"`
	GitCommit string `json:"gitCommit,omitempty"`
}

// GetInfo returns the current build identity.
func GetInfo() Info {
	return Info{
		Name:      Name,
		Version:   Version,
		BuildTime: BuildTime,
		GitCommit: GitCommit,
	}
}

// String renders a one-line banner form, e.g.
// "Nightjar v0.1.0 (abc1234) built 2026-08-26".
func (i Info) String() string {
	s := fmt.Sprintf("%s v%s", i.Name, i.Version)
	if i.GitCommit != "" {
		s += fmt.Sprintf(" (%s)", i.GitCommit[:min(7, len(i.GitCommit))])
	}
	if i.BuildTime != "" {
		s += fmt.Sprintf(" built %s", i.BuildTime)
	}
	return s
}

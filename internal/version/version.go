// Package version holds build metadata set with -ldflags:
//
//	go build -ldflags "-X git.home.luguber.info/inful/jekyllpress/internal/version.Version=v1.0.0"
package version

import "fmt"

// Version is the release version.
var Version = "unknown"

// Build metadata.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String formats the version line printed by --version.
func String() string {
	return fmt.Sprintf("jekyllpress %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}

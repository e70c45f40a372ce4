// Package version holds build metadata. Version is also written to project
// files as fileVersion.
package version

import "fmt"

// Overridden at build time with -ldflags "-X image-annotator/internal/version.Version=...".
var (
	Version   = "1.2.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String formats the build metadata for --version output.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildTime)
}

// Package version holds build information for the imgkit binaries.
package version

import "fmt"

// Set with -ldflags "-X imgkit/internal/version.Version=..." at build time.
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String describes the build in one line.
func String() string {
	return fmt.Sprintf("%s (built %s, commit %s)", Version, BuildTime, GitCommit)
}

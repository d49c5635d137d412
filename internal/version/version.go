// Package version reports the build identity shown in About and logs.
package version

import "fmt"

// Set with -ldflags "-X quality-master/internal/version.Version=..."
var (
	Version   = "0.3.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String formats the build identity for log lines.
func String() string {
	return fmt.Sprintf("v%s (%s, built %s)", Version, GitCommit, BuildTime)
}

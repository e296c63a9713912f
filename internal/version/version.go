package version

import "fmt"

var (
	// Version is the semantic version of the binary. Overridden at build time.
	Version = "dev"
	// Commit is the git commit hash. Overridden at build time.
	Commit = "unknown"
	// BuildDate is the build timestamp. Overridden at build time.
	BuildDate = "unknown"
)

// String returns the full version line printed by the version command.
func String() string {
	return fmt.Sprintf("metricwatcher %s (commit %s, built %s)", Version, Commit, BuildDate)
}

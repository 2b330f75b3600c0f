// Package version holds build information injected with ldflags, for example
// -ldflags "-X github.com/jmylchreest/veneer/internal/version.Version=x.y.z".
package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the semantic version of the build.
	Version = "dev"
	// Commit is the git commit hash of the build.
	Commit = "unknown"
	// Date is the build date in RFC3339 format.
	Date = "unknown"
)

// String returns the version line printed by "veneer version".
func String() string {
	platform := runtime.GOOS + "/" + runtime.GOARCH
	if Commit != "unknown" && Date != "unknown" {
		return fmt.Sprintf("veneer version %s (commit: %s, built: %s, %s, %s)",
			Version, shortCommit(Commit), Date, runtime.Version(), platform)
	}
	return fmt.Sprintf("veneer version %s (%s, %s)", Version, runtime.Version(), platform)
}

// Short returns the bare version.
func Short() string {
	return Version
}

func shortCommit(c string) string {
	if len(c) > 8 {
		return c[:8]
	}
	return c
}

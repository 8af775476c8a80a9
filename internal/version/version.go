// Package version holds build metadata, overridden at link time:
//
//	go build -ldflags "-X github.com/MrSnakeDoc/shelfwatch/internal/version.Version=v0.1.0"
package version

import (
	"fmt"
	"runtime"
)

var (
	Version   = "dev"             // ex: v0.1.0
	Commit    = "none"            // ex: abcd123
	BuildDate = "unknown"         // ex: 2026-03-10T18:42:00Z
	GoVersion = runtime.Version() // go version
)

// String is the one-line build description logged at startup.
func String() string {
	return fmt.Sprintf("shelfwatch %s (commit=%s, built=%s, go=%s)", Version, Commit, BuildDate, GoVersion)
}

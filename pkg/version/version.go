// Package version holds build metadata, set at link time:
//
//	go build -ldflags "-X github.com/Dicklesworthstone/treenav/pkg/version.Version=v1.2.3"
package version

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String formats the build metadata for display.
func String() string {
	return Version + " (commit: " + Commit + ", date: " + Date + ")"
}

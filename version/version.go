// Package version holds build metadata. The values are overridden at link
// time, e.g. -ldflags "-X github.com/proxyd/proxyd/version.Version=v1.0.0".
package version

var (
	Version = "dev"
	Commit  = "unknown"
	Build   = "unknown"
)

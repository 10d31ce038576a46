// Package version holds build metadata injected with -ldflags.
package version

var (
	Version   = "dev"
	GitCommit = "none"
	BuildDate = "unknown"
)

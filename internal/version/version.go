// Package version holds routedex build metadata. The values are stamped by
// the release pipeline via -ldflags; a plain go build reports "dev".
package version

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

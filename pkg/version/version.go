// Package version carries build metadata stamped via -ldflags.
package version

// Build metadata, overridden at link time.
var (
	// Version is the semantic version of the binary.
	Version = "dev"
	// Commit is the VCS revision the binary was built from.
	Commit = "none"
	// Date is the build timestamp.
	Date = "unknown"
)

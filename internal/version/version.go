// Package version exposes build metadata injected at link time.
package version

// Build metadata. Overridden via -ldflags at release time.
//
//nolint:gochecknoglobals // Set by the linker, must be package-level variables.
var (
	// Version is the semantic version of the build.
	Version = "1.0.0"
	// Commit is the VCS commit the binary was built from.
	Commit = "none"
	// BuildTime is the timestamp of the build.
	BuildTime = "unknown"
)

// Short returns just the semantic version.
func Short() string {
	return Version
}

// Full returns the version together with commit and build time.
func Full() string {
	return "version: " + Version + ", commit: " + Commit + ", built at: " + BuildTime
}

// Package version carries the build identity stamped in at link time via
// -ldflags, surfaced by the version subcommand and the /api/version endpoint.
package version

var (
	// Version is the release version of the terrain-report binary.
	Version = "dev"
	// GitSHA is the git commit the binary was built from.
	GitSHA = "unknown"
	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)

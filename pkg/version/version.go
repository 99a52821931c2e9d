// Package version holds build-time version information, overridable via -ldflags.
package version

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Get returns the version string sent to the hcloud API as the application identifier.
func Get() string {
	return version
}

// String returns a multi-line human-readable version summary.
func String() string {
	return "robotlb " + version + "\n  commit: " + commit + "\n  built:  " + date
}

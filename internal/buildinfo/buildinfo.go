// Package buildinfo exposes the version and commit of the cepr build,
// set at link time.
package buildinfo

// Version is set at link-time with -ldflags.
var Version = "v0.1.0"

// Commit is set at link-time with -ldflags.
// Default is "unknown" so tests and "go run ." still work.
var Commit = "unknown"

// UserAgent is the User-Agent sent to CEP providers unless configured.
func UserAgent() string { return "cepr/" + Version }

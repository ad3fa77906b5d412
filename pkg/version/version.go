// Package version holds the build version, overridden via -ldflags on release
// builds.
package version

var Version = "0.1.0-dev"

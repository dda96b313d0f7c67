// Package version exposes the build version string.
package version

// Version is the storyreel build version.
// Overridden at build time via -ldflags "-X github.com/IsPHao/storyreel/pkg/version.Version=...".
var Version = "dev"

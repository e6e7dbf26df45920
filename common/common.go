// Package common holds identifiers shared across the engine's binaries and
// servers.
package common

// PackageName is used as the metrics namespace and in log output.
const PackageName = "orim"

// Version is overridden at build time via -ldflags.
var Version = "dev"

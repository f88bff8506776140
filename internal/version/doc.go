// Package version exposes build metadata of catpoint binaries.
//
// Variables Version, Commit, and BuildTime are injected at build time via
// Go ldflags. Short and Full render them for CLI output and startup logs.
package version

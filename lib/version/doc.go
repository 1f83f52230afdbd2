// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version provides build version information for the
// gamemaster binaries.
//
// Four package-level variables are injected at build time via
// -ldflags -X:
//
//   - [GitCommit]: short git SHA of the build
//   - [GitDirty]: "true" if there were uncommitted changes
//   - [BuildTime]: UTC timestamp of the build
//   - [Version]: semantic version string, set manually for releases
//
// They default to "unknown" and "0.1.0-dev" in development builds.
// When GitCommit is not injected, [Commit] falls back to the VCS
// revision the Go toolchain stamps into the binary.
//
// [Print] writes "<binary> <Info>" to standard output for --version.
package version

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds binary entrypoint helpers: reporting the error
// returned by run() before the structured logger exists, or after it
// has been torn down, and choosing the exit code.
package process

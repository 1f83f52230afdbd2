// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ExitCoder is an error that carries its own process exit code.
type ExitCoder interface {
	ExitCode() int
}

// Report writes "error: err" to w and returns the exit code for err:
// the error's own code when it implements [ExitCoder], 1 otherwise.
// An ExitCoder is not printed, since it has already reported itself.
func Report(w io.Writer, err error) int {
	var coder ExitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	fmt.Fprintf(w, "error: %v\n", err)
	return 1
}

// Fatal reports err on stderr and exits. Use it in main() for errors
// from run().
func Fatal(err error) {
	os.Exit(Report(os.Stderr, err))
}

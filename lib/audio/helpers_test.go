// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package audio

import (
	"context"
	"testing"
	"time"

	"github.com/bureau-foundation/gamemaster/lib/testutil"
)

func contextWithCancel() (context.Context, context.CancelFunc) {
	return context.WithCancel(context.Background())
}

func waitFor(t *testing.T, condition func() bool) {
	t.Helper()
	testutil.RequireEventually(t, condition, 5*time.Second, "audio engine condition")
}

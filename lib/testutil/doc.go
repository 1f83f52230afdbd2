// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for gamemaster
// packages.
//
// [RequireReceive], [RequireClosed], [RequireNoReceive], and
// [RequireEventually] wrap the timeout safety valve (select with a
// wall-clock fallback) so tests never call time.After directly. They
// are the only place in the test suite that waits on real time; every
// production timer is driven through lib/clock instead.
//
// [WebsocketURL] converts an httptest server address into the ws://
// URL a transport session dials.
//
// All helpers call t.Fatalf on failure.
package testutil

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package command routes inbound operator commands to the screens of a
// game client.
//
// A [Router] holds at most one [Handler] per screen id, in the order
// the ids were first registered. [Router.Dispatch] calls every handler
// in that order with the same action and payload; handlers ignore
// actions they do not care about. Fanning out to every screen, not
// only the visible one, lets background handlers such as a global
// reset always run.
//
// Registering an id that is already present replaces its handler in
// place without moving it in the order. Handlers may register and
// unregister ids, including their own, while a dispatch is in flight:
// the fan-out works from the registry as it stood when the dispatch
// began, so the change takes effect from the next dispatch on.
//
// A panicking handler is logged and the fan-out continues with the
// next one.
package command

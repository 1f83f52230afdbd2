// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the game client configuration.
//
// Values are layered, later layers winning:
//
//  1. built-in defaults ([Default]), matching the installed room
//  2. the YAML file named by --config or GAMEMASTER_CONFIG, if any
//  3. the section of that file matching [Config].Environment
//     (development, staging, production)
//  4. GAMEMASTER_* environment variables
//
// Unknown YAML keys are rejected so typos fail loudly. After layering,
// ${VAR} and ${VAR:-default} patterns in the console URL and the
// actions file path are expanded, and [Config.Validate] runs.
//
// The operator action list normally comes from the game itself. A
// room can replace it with a JSONC file ([LoadActions]) named by
// game.actions_file.
package config

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds the per-session generation parameters.
//
// There is exactly one session per process. Its parameters are changed
// from the settings page and read once per message, when the request is
// built; a request already in flight never sees later changes.
//
// # Key Types
//
//   - Params: Token limit, temperature and pending prefix with clamping setters
//   - Request: Immutable snapshot handed to the background task
//   - QuickAction: Built-in prompt prefixes
//
// # Usage
//
//	params := session.FromConfig(cfg)
//	params.SetPrefix(session.QuickActions[0].Prefix)
//	req := params.BuildRequest("black holes")
//	// req.Prompt == "Explain simply like I'm 5: black holes"
package session

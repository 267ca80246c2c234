// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the WinChi UI shell as a Bubble Tea model.
//
// The shell has two pages, Chat and Settings, listed in a sidebar. Sending
// a message starts exactly one background task that pulls fragments from
// the loaded model into a stream.Bridge; a tick drains the bridge into the
// transcript every ui.tick_interval.
//
// # Key Types
//
//   - Model: Bubble Tea model holding the generation state machine
//   - State: Idle, Generating or Stopping
//   - Transcript: in-memory chat log
//   - KeyMap: keyboard bindings with help text
//
// # Usage
//
//	m := chat.New(chat.Options{Engine: engine, Config: cfg, ModelPath: path})
//	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
//	if m, ok := final.(chat.Model); ok {
//	    m.Close()
//	}
//
// # Keys
//
//   - Enter: send, Esc: stop the running reply
//   - F1, F2, F3: quick actions prefixing the next message
//   - Tab: switch between Chat and Settings
//   - ←/→ on Settings: adjust the focused value, shift for larger steps
package chat

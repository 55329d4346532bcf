// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across cola.
//
// # Key Functions
//
// String Utilities:
//   - Truncate: display-width aware truncation with ellipsis
//   - PadRight: pads to a display width for column layout
//   - StripControl: removes terminal escape sequences from untrusted text
//
// Time Utilities:
//   - FormatTimestamp: renders times in the configured fixed UTC offset
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing with fsync
//   - ExpandHome: resolves a leading ~ in user-supplied paths
//
// # Usage
//
//	label := util.Truncate(thread.Title, 24)
//	stamp := util.FormatTimestamp(time.Now(), 8)
//	err := util.AtomicWriteFile(path, data, 0600)
package util

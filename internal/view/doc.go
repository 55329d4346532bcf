// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package view holds the in-memory message tree the TUI draws and the
// Screen that presents session state on top of it.
//
// A Node lives in exactly one Container at a time. Append re-parents; it
// never copies. The Tree has two containers: Messages (drawn) and
// Background (kept alive, never drawn), which is where the answers of
// threads that are not on screen keep growing.
package view

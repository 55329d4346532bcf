// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli is the cola command line.
//
// The application is built with urfave/cli. Without a subcommand it starts
// the terminal UI; the remaining commands are non-interactive wrappers over
// the backend client, plus a line-oriented chat REPL that drives the same
// session core as the TUI.
//
// # Commands
//
//   - tui: full-screen client (default)
//   - ask: one question, answer streamed to stdout
//   - chat: line REPL
//   - threads list|delete
//   - docs list|segments|delete
//   - upload [--watch]
//   - export
//   - mock-server: local fake backend
//   - config show|init|path
//   - version
//
// List commands accept the global --json flag and print a JSONResponse
// envelope instead of a table.
package cli

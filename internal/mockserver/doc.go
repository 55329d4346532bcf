// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package mockserver is an in-memory knowledge-assistant backend.
//
// It serves every endpoint the client uses with the same JSON envelopes and
// event-stream framing, and is used by tests and by `cola mock-server` for
// offline demos.
//
// # Fault injection
//
// Markers inside a question change how /ask behaves:
//
//	[[fail]]       an error frame after the first words
//	[[drop]]       the connection closes without the done marker
//	[[malformed]]  one unparseable frame in the middle of the answer
//	[[http500]]    the request is refused before streaming starts
//	[[slow]]       words are sent ten times slower
package mockserver

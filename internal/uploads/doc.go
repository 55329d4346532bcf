// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package uploads sends local documents to the backend.
//
// # Key Types
//
//   - Ledger: SQLite record of what was uploaded where, keyed by content hash
//   - Uploader: size check, dedupe, rate limit, upload, record
//   - Watcher: fsnotify watch of a drop folder with per-file debounce
//
// A file is uploaded at most once per thread. Re-uploading the same bytes
// under a new name is still skipped.
package uploads

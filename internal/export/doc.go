// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes thread transcripts to files.
//
// # Formats
//
//   - Markdown: YAML frontmatter, one section per message
//   - HTML: standalone page, assistant markdown rendered and sanitized,
//     code highlighted with embedded CSS
//   - JSON: the transcript as fetched
//
// # Usage
//
//	t, err := export.Fetch(ctx, client, threadID)
//	path, err := export.ToFile(t, export.NewHTMLExporter(opts), opts)
package export

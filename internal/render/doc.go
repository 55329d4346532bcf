// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render turns answer markdown into terminal text or sanitized HTML.
//
// Server text is untrusted. Terminal output has escape sequences stripped
// before glamour sees it; HTML output always passes through bluemonday after
// goldmark, with fenced code highlighted by chroma.
//
// # Usage
//
//	term := render.NewTerminal("dark", 100)
//	body := term.Render(accumulated)
//
//	page, err := render.HTML(markdown)
package render

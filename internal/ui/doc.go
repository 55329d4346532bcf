// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui is the bubbletea front end.
//
// The session core runs inside Update: every continuation produced by
// background work comes back as a message and runs there, so the core needs
// no locks. The view tree and list state live in a view.Screen; View only
// reads them.
//
// # Layout
//
//	+-- threads --+------------ title ------------+
//	|             |                               |
//	+-- docs -----+          messages             |
//	|  segments   |                               |
//	|             +-------------------------------+
//	|             |  input                        |
//	+-------------+-------------------------------+
//	 status bar
//
// Below 80 columns the sidebar is hidden.
package ui

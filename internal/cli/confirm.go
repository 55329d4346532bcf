// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// =============================================================================
// CONFIRMATION
// =============================================================================

// ErrNotConfirmed is returned when the user declines a destructive action.
var ErrNotConfirmed = errors.New("cancelled")

// ConfirmationOptions controls how confirm asks.
type ConfirmationOptions struct {
	// Yes skips the prompt (--yes).
	Yes bool
	// JSONMode refuses to prompt; --yes is required.
	JSONMode bool
	// Interactive reports whether in is a terminal.
	Interactive bool
}

// confirm asks "action? [y/N]" on out and reads the answer from in.
func confirm(in io.Reader, out io.Writer, action string, opts ConfirmationOptions) error {
	if opts.Yes {
		return nil
	}
	if opts.JSONMode {
		return &UsageError{Message: action + " requires --yes in --json mode"}
	}
	if !opts.Interactive {
		return &TTYRequiredError{Operation: "confirm " + action + " (pass --yes)"}
	}

	fmt.Fprintf(out, "%s %s ", WarningStyle.Render(action+"?"), DimStyle.Render("[y/N]"))
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		return ErrNotConfirmed
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return nil
	}
	return ErrNotConfirmed
}

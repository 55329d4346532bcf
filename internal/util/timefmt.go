// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"fmt"
	"time"
)

// TimestampLayout is the display layout used for message and thread times.
const TimestampLayout = "2006-01-02 15:04:05"

// Zone returns a fixed zone for the given whole-hour UTC offset.
func Zone(offsetHours int) *time.Location {
	name := fmt.Sprintf("UTC%+d", offsetHours)
	if offsetHours == 0 {
		name = "UTC"
	}
	return time.FixedZone(name, offsetHours*3600)
}

// FormatTimestamp formats t in the fixed UTC offset.
func FormatTimestamp(t time.Time, offsetHours int) string {
	return t.In(Zone(offsetHours)).Format(TimestampLayout)
}

// ParseTimestamp accepts RFC 3339 or the display layout (interpreted in the
// given offset). The empty string yields the zero time.
func ParseTimestamp(s string, offsetHours int) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(TimestampLayout, s, Zone(offsetHours))
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized timestamp %q: %w", s, err)
	}
	return t, nil
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		width int
		want  string
	}{
		{"fits", "hello", 10, "hello"},
		{"exact", "hello", 5, "hello"},
		{"cut", "hello world", 8, "hello w…"},
		{"zero", "hello", 0, ""},
		{"one", "hello", 1, "…"},
		{"wide runes", "对话#12", 4, "对…"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Truncate(tt.in, tt.width))
		})
	}
}

func TestPadRight(t *testing.T) {
	require.Equal(t, "ab   ", PadRight("ab", 5))
	require.Equal(t, "abcd…", PadRight("abcdefgh", 5))
}

func TestFirstLine(t *testing.T) {
	require.Equal(t, "second", FirstLine("\n  \n second \nthird"))
	require.Equal(t, "", FirstLine(" \n "))
}

func TestStripControl(t *testing.T) {
	in := "plain \x1b[31mred\x1b[0m\r\n\ttab\x07bell \x1b]0;title\x07done"
	require.Equal(t, "plain red\n\ttabbell done", StripControl(in))
	require.Equal(t, "对话 ok", StripControl("对话 ok"))
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2024, 3, 1, 20, 30, 0, 0, time.UTC)
	require.Equal(t, "2024-03-02 04:30:00", FormatTimestamp(ts, 8))
	require.Equal(t, "2024-03-01 20:30:00", FormatTimestamp(ts, 0))
}

func TestParseTimestamp(t *testing.T) {
	got, err := ParseTimestamp("2024-03-02 04:30:00", 8)
	require.NoError(t, err)
	require.True(t, got.Equal(time.Date(2024, 3, 1, 20, 30, 0, 0, time.UTC)))

	got, err = ParseTimestamp("2024-03-01T20:30:00Z", 8)
	require.NoError(t, err)
	require.Equal(t, 20, got.Hour())

	got, err = ParseTimestamp("", 8)
	require.NoError(t, err)
	require.True(t, got.IsZero())

	_, err = ParseTimestamp("yesterday", 8)
	require.Error(t, err)
}

func TestAtomicWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.txt")

	require.NoError(t, AtomicWriteFile(path, []byte("first"), 0600))
	require.NoError(t, AtomicWriteFile(path, []byte("second"), 0600))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "second", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// =============================================================================
// ATOMIC WRITE TESTS
// =============================================================================

func TestAtomicWriteFile_Basic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.txt")
	data := []byte("hello, world")

	if err := AtomicWriteFile(path, data, 0600); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("content = %q, want %q", got, data)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("perm = %o, want 600", info.Mode().Perm())
	}
}

func TestAtomicWriteFile_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "test.txt")
	if err := AtomicWriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("file not created: %v", err)
	}
}

func TestAtomicWriteFile_OverwritesAndLeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.txt")

	for _, content := range []string{"first", "second"} {
		if err := AtomicWriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("AtomicWriteFile failed: %v", err)
		}
	}

	got, _ := os.ReadFile(path)
	if string(got) != "second" {
		t.Errorf("content = %q, want %q", got, "second")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the target file, found %d entries", len(entries))
	}
}

// =============================================================================
// STRING TESTS
// =============================================================================

func TestTruncateRunes(t *testing.T) {
	testCases := []struct {
		input    string
		max      int
		expected string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello world", 8, "hello..."},
		{"hello", 3, "hel"},
		{"hello", 0, ""},
		{"日本語のテキスト", 5, "日本..."},
		{"héllo wörld", 7, "héll..."},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			if got := TruncateRunes(tc.input, tc.max); got != tc.expected {
				t.Errorf("TruncateRunes(%q, %d) = %q, want %q", tc.input, tc.max, got, tc.expected)
			}
		})
	}
}

func TestStringWidth(t *testing.T) {
	testCases := []struct {
		input    string
		expected int
	}{
		{"hello", 5},
		{"", 0},
		{"日本語", 6},
		{"hello世界", 9},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			if got := StringWidth(tc.input); got != tc.expected {
				t.Errorf("StringWidth(%q) = %d, want %d", tc.input, got, tc.expected)
			}
		})
	}
}

func TestTruncateWidth(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		max      int
		expected string
	}{
		{"fits", "hello", 10, "hello"},
		{"exact", "hello", 5, "hello"},
		{"ascii", "hello world", 8, "hello..."},
		{"cjk", "日本語テキスト", 7, "日本..."},
		{"tiny", "hello", 2, "he"},
		{"zero", "hello", 0, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := TruncateWidth(tc.input, tc.max)
			if got != tc.expected {
				t.Errorf("TruncateWidth(%q, %d) = %q, want %q", tc.input, tc.max, got, tc.expected)
			}
			if StringWidth(got) > tc.max {
				t.Errorf("TruncateWidth(%q, %d) is %d columns wide", tc.input, tc.max, StringWidth(got))
			}
		})
	}
}

func TestPadRight(t *testing.T) {
	got := PadRight("日本", 6)
	if StringWidth(got) != 6 || !strings.HasPrefix(got, "日本") {
		t.Errorf("PadRight = %q", got)
	}
}

func TestConvert(t *testing.T) {
	if IntToString(42) != "42" {
		t.Error("IntToString(42)")
	}
	if FloatToString(0.7) != "0.7" || FloatToString(1) != "1" {
		t.Errorf("FloatToString: %q %q", FloatToString(0.7), FloatToString(1))
	}
}

package tui

import (
	"strings"
	"testing"
)

func TestEditRune(t *testing.T) {
	tests := []struct {
		name  string
		start string
		key   string
		limit int
		want  string
	}{
		{"append to empty", "", "a", 0, "a"},
		{"append digit", "AB1", "2", 7, "AB12"},
		{"space key name", "Volvo", "space", 0, "Volvo "},
		{"literal space", "Volvo", " ", 0, "Volvo "},
		{"backspace", "hello", "backspace", 0, "hell"},
		{"backspace on empty", "", "backspace", 0, ""},
		{"backspace removes whole rune", "blåbær", "backspace", 0, "blåbæ"},
		{"backspace removes emoji", "ok\U0001f697", "backspace", 0, "ok"},
		{"at limit rejects", "AB12345", "6", 7, "AB12345"},
		{"at limit backspace works", "AB12345", "backspace", 7, "AB1234"},
		{"limit counts runes", "æøå", "x", 4, "æøåx"},
		{"zero limit is unbounded", strings.Repeat("a", 50), "b", 0, strings.Repeat("a", 50) + "b"},
		{"multi-rune input ignored", "hi", "there", 0, "hi"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := editRune(tc.start, tc.key, tc.limit); got != tc.want {
				t.Errorf("editRune(%q, %q, %d) = %q, want %q", tc.start, tc.key, tc.limit, got, tc.want)
			}
		})
	}
}

func TestEditRuneIgnoresNamedKeys(t *testing.T) {
	for _, key := range []string{"enter", "esc", "up", "down", "tab", "shift+tab", "ctrl+c", "ctrl+s", "f1", "alt+enter"} {
		t.Run(key, func(t *testing.T) {
			if got := editRune("hello", key, maxInputLen); got != "hello" {
				t.Errorf("editRune(%q) = %q, want unchanged", key, got)
			}
		})
	}
}

func TestTruncateToHeight(t *testing.T) {
	input := "line1\nline2\nline3\nline4\nline5\n"
	tests := []struct {
		name     string
		maxLines int
		want     string
	}{
		{"limits lines", 3, "line1\nline2\nline3\n"},
		{"within limit", 10, input},
		{"zero returns all", 0, input},
		{"negative returns all", -1, input},
		{"exact limit", 5, input},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := truncateToHeight(input, tc.maxLines); got != tc.want {
				t.Errorf("truncateToHeight(%d) = %q, want %q", tc.maxLines, got, tc.want)
			}
		})
	}
}

func TestFieldDisplay(t *testing.T) {
	tests := []struct {
		name string
		f    field
		want string
	}{
		{"plain", field{value: "admin"}, "admin"},
		{"masked", field{value: "s3cret", masked: true}, "••••••"},
		{"masked counts runes", field{value: "pæss", masked: true}, "••••"},
		{"upper", field{value: "ab12345", upper: true}, "AB12345"},
		{"empty", field{masked: true}, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.f.display(); got != tc.want {
				t.Errorf("display() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestFieldRender(t *testing.T) {
	f := field{label: "password", placeholder: "your password", masked: true}
	if got := f.render(false, 0); !strings.Contains(got, "your password") || !strings.Contains(got, "password:") {
		t.Errorf("empty field should show label and placeholder, got %q", got)
	}

	f.value = "hunter2"
	got := f.render(true, 0)
	if strings.Contains(got, "hunter2") {
		t.Error("masked field leaked its value")
	}
	if !strings.Contains(got, "> ") || !strings.Contains(got, "█") {
		t.Errorf("focused field should show prompt and cursor, got %q", got)
	}
	if strings.Contains(f.render(true, 4), "█") {
		t.Error("cursor should blink off on alternate frames")
	}
	if strings.Contains(f.render(false, 0), "█") {
		t.Error("unfocused field should not draw a cursor")
	}
}

func TestTruncStr(t *testing.T) {
	tests := []struct {
		name   string
		s      string
		maxLen int
		want   string
	}{
		{"under limit", "Saab", 10, "Saab"},
		{"at limit", "Volvo", 5, "Volvo"},
		{"over limit", "Volvo Amazon", 5, "Volv…"},
		{"empty", "", 5, ""},
		{"single char over", "ab", 1, "…"},
		{"multi-byte at boundary", "Citroën DS", 7, "Citroë…"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := truncStr(tc.s, tc.maxLen); got != tc.want {
				t.Errorf("truncStr(%q, %d) = %q, want %q", tc.s, tc.maxLen, got, tc.want)
			}
		})
	}
}

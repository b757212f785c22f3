package tui

import (
	"strings"
	"unicode/utf8"
)

// maxInputLen caps free-text form fields.
const maxInputLen = 2000

// editRune applies a keystroke to an inline text field: backspace removes
// the last rune, a single printable rune is appended while the text holds
// fewer than limit runes, and anything else leaves the text unchanged.
func editRune(text, key string, limit int) string {
	switch key {
	case "backspace":
		if text == "" {
			return text
		}
		runes := []rune(text)
		return string(runes[:len(runes)-1])
	case "space":
		key = " "
	}
	if utf8.RuneCountInString(key) != 1 {
		return text
	}
	if limit > 0 && utf8.RuneCountInString(text) >= limit {
		return text
	}
	return text + key
}

// truncateToHeight limits output to maxLines newline-delimited lines.
// Returns the original string if it fits or maxLines is <= 0.
func truncateToHeight(s string, maxLines int) string {
	if maxLines <= 0 {
		return s
	}
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			n++
			if n >= maxLines {
				return s[:i+1]
			}
		}
	}
	return s
}

// field is one labelled input line in a form.
type field struct {
	label       string
	value       string
	placeholder string
	limit       int
	masked      bool
	upper       bool
}

// display returns the value as it should appear on screen.
func (f field) display() string {
	switch {
	case f.masked:
		return strings.Repeat("•", utf8.RuneCountInString(f.value))
	case f.upper:
		return strings.ToUpper(f.value)
	}
	return f.value
}

// render draws the field with a blinking cursor when focused.
func (f field) render(focused bool, frame int) string {
	marker := "  "
	label := metaStyle.Render(f.label)
	if focused {
		marker = inputPromptStyle.Render("> ")
		label = selectedStyle.Render(f.label)
	}

	value := f.display()
	if value == "" {
		value = inputPlaceholderStyle.Render(f.placeholder)
	} else {
		value = normalStyle.Render(value)
	}
	if focused && (frame/4)%2 == 0 {
		value += accentStyle.Render("█")
	}
	return marker + label + ": " + value
}

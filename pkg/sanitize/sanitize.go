package sanitize

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	htmlTagRegex      = regexp.MustCompile(`<[^>]*>`)
	filenameUnsafeRex = regexp.MustCompile(`["\\/<>:|?*]`)
)

// Text cleans free-form user input: HTML tags and control characters are
// removed, surrounding whitespace is trimmed and the result is cut to maxLen
// runes. Newlines and tabs survive. maxLen <= 0 disables the limit.
func Text(input string, maxLen int) string {
	input = htmlTagRegex.ReplaceAllString(input, "")
	input = StripControlCharacters(input)
	input = strings.TrimSpace(input)

	if maxLen > 0 {
		if runes := []rune(input); len(runes) > maxLen {
			input = strings.TrimSpace(string(runes[:maxLen]))
		}
	}
	return input
}

// Filename makes a stored object name safe to hand back as a download name
func Filename(filename string) string {
	filename = strings.TrimSpace(filename)
	// Remove path traversal attempts
	filename = strings.ReplaceAll(filename, "../", "")
	filename = strings.ReplaceAll(filename, "..\\", "")
	filename = StripControlCharacters(filename)
	filename = filenameUnsafeRex.ReplaceAllString(filename, "_")
	if filename == "" || filename == "." || filename == ".." {
		return "recording"
	}
	return filename
}

// StripControlCharacters removes control characters except newline and tab
func StripControlCharacters(input string) string {
	var result strings.Builder
	for _, r := range input {
		if r == '\n' || r == '\t' || !unicode.IsControl(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

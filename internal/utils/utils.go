// internal/utils/utils.go
package utils

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

var invalidFileChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// CleanFileName replaces characters that are invalid in file names.
func CleanFileName(name string) string {
	cleaned := invalidFileChars.ReplaceAllString(name, "_")
	cleaned = strings.Trim(strings.TrimSpace(cleaned), ".")
	cleaned = TruncateString(cleaned, 200)

	if cleaned == "" {
		cleaned = "output"
	}
	return cleaned
}

// ExportFileName builds a timestamped file name such as
// recipes_20240501_123000.xlsx.
func ExportFileName(prefix, ext string, now time.Time) string {
	return fmt.Sprintf("%s_%s.%s", CleanFileName(prefix), now.Format("20060102_150405"), strings.TrimPrefix(ext, "."))
}

// TruncateString cuts s to at most maxLen runes.
func TruncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen])
}

// FormatDuration renders d with a unit suited to its size.
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
}

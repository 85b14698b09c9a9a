package utils

// Truncate caps s at max runes, appending an ellipsis when it was cut.
// Counting bytes would split multibyte characters, and message content
// is arbitrary UTF-8.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

/*
2021 © Postgres.ai
*/

// Package text provides text helpers.
package text

// CutText cuts the text if it exceeds the specified size in runes and appends the separator.
// Reports whether the text has been cut.
func CutText(text string, size int, separator string) (string, bool) {
	runes := []rune(text)

	if len(runes) <= size {
		return text, false
	}

	size -= len([]rune(separator))
	if size < 0 {
		size = 0
	}

	return string(runes[:size]) + separator, true
}

package assistant

import "strings"

// WordWrap reflows text into lines no wider than width, measuring words
// with measure. Whitespace runs (newlines included) separate words and are
// dropped. A word wider than width gets a line of its own and overflows.
func WordWrap(text string, width int, measure func(string) int) string {
	spaceWidth := measure(" ")
	remaining := width

	var lines []string
	for _, word := range strings.Fields(text) {
		wordWidth := measure(word)
		if wordWidth+spaceWidth > remaining {
			lines = append(lines, word)
			remaining = width - wordWidth
			continue
		}
		if len(lines) == 0 {
			lines = append(lines, word)
		} else {
			lines[len(lines)-1] += " " + word
		}
		remaining -= wordWidth + spaceWidth
	}
	return strings.Join(lines, "\n")
}

package utils

import (
	"strings"
	"unicode"
)

// SplitText splits a long string into chunks of at most 'chunkSize' runes.
// Consecutive chunks share roughly 'overlap' runes to preserve context at boundaries.
// A chunk end is moved back to the nearest whitespace when one exists in the
// second half of the window, so words are not cut in half.
func SplitText(text string, chunkSize int, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if chunkSize <= 0 {
		return []string{text}
	}

	runes := []rune(text)
	totalLen := len(runes)
	if totalLen <= chunkSize {
		return []string{text}
	}

	if overlap < 0 || overlap >= chunkSize {
		overlap = 0
	}

	var chunks []string
	for start := 0; start < totalLen; {
		end := start + chunkSize
		if end >= totalLen {
			end = totalLen
		} else if cut := lastSpace(runes, start+chunkSize/2, end); cut > start {
			end = cut
		}

		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == totalLen {
			break
		}

		next := end - overlap
		if next <= start {
			next = end
		}
		// start the next chunk on a word boundary too
		for next < end && next > 0 && !unicode.IsSpace(runes[next-1]) {
			next++
		}
		start = next
	}

	return chunks
}

// lastSpace returns the index of the last whitespace rune in runes[from:to], or -1.
func lastSpace(runes []rune, from, to int) int {
	for i := to; i > from; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i - 1
		}
	}
	return -1
}

package parser

import (
	"strings"
	"unicode/utf8"
)

// splitIntoChunks splits text on blank-line paragraph boundaries and greedily
// packs paragraphs into chunks of at most chunkSize code points. A paragraph
// is never split, even when it alone exceeds the target.
func splitIntoChunks(text string, chunkSize int) []string {
	paragraphs := strings.Split(text, "\n\n")

	var (
		chunks  []string
		current []string
		length  int
	)
	for _, para := range paragraphs {
		n := utf8.RuneCountInString(para)
		if length+n > chunkSize && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, "\n\n"))
			current = []string{para}
			length = n
			continue
		}
		current = append(current, para)
		length += n
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, "\n\n"))
	}
	return chunks
}

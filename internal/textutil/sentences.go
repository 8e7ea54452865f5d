package textutil

import (
	"strings"
	"unicode"
)

// SplitSentences breaks text into trimmed sentences. A sentence ends at '.',
// '!' or '?' followed by whitespace or end of text; blank lines also end one.
func SplitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	flush := func() {
		if s := strings.Join(strings.Fields(current.String()), " "); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '\n' && i+1 < len(runes) && runes[i+1] == '\n' {
			flush()
			continue
		}
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if i+1 == len(runes) || unicode.IsSpace(runes[i+1]) {
				flush()
			}
		}
	}
	flush()
	return sentences
}

// Chunk groups sentences into pieces of at most size runes. Sentences longer
// than size are split on word boundaries; a single word longer than size is
// kept whole. A non-positive size returns the normalized text as one chunk.
func Chunk(text string, size int) []string {
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return nil
	}
	if size <= 0 {
		return []string{strings.Join(sentences, " ")}
	}

	var chunks []string
	var current []string
	length := 0
	add := func(piece string) {
		n := len([]rune(piece))
		if length > 0 && length+1+n > size {
			chunks = append(chunks, strings.Join(current, " "))
			current, length = nil, 0
		}
		if length > 0 {
			length++
		}
		current = append(current, piece)
		length += n
	}
	for _, sentence := range sentences {
		if len([]rune(sentence)) <= size {
			add(sentence)
			continue
		}
		for _, word := range strings.Fields(sentence) {
			add(word)
		}
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}

// WordCount returns the number of whitespace-separated words in text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

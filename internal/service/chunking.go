package service

import "strings"

// DefaultMaxChunkLength bounds the size of individual knowledge chunks.
const DefaultMaxChunkLength = 1000

// ChunkText splits text into sentence-respecting chunks of at most maxLength
// characters. Sentences are packed greedily in order; a sentence that would
// overflow the running chunk flushes it, and a single sentence longer than
// maxLength is hard-truncated into its own chunk. The result is never empty:
// input with no sentences yields one chunk built from the truncated-or-empty
// text, which keeps the chunk count 1:1 invertible for the job runner.
func ChunkText(text string, maxLength int) []string {
	if maxLength <= 0 {
		maxLength = DefaultMaxChunkLength
	}

	sentences := splitSentences(text)
	if len(sentences) == 0 {
		clean := strings.TrimSpace(text)
		if len(clean) > maxLength {
			clean = clean[:maxLength]
		}
		return []string{clean}
	}

	chunks := make([]string, 0, 4)
	current := ""

	for _, sentence := range sentences {
		if len(sentence) > maxLength {
			if current != "" {
				chunks = append(chunks, current)
				current = ""
			}
			chunks = append(chunks, sentence[:maxLength])
			continue
		}

		if current == "" {
			current = sentence
			continue
		}

		candidate := current + ". " + sentence
		if len(candidate) <= maxLength {
			current = candidate
		} else {
			chunks = append(chunks, current)
			current = sentence
		}
	}

	if current != "" {
		chunks = append(chunks, current)
	}

	return chunks
}

// splitSentences breaks text into trimmed sentence-like units on
// period/exclamation/question boundaries, dropping empties.
func splitSentences(text string) []string {
	raw := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})

	sentences := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

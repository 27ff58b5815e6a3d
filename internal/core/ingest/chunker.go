package ingest

import "strings"

const (
	DefaultChunkTarget  = 500
	DefaultChunkOverlap = 100
)

// ChunkWords splits text into overlapping word windows of target words, each
// window after the first starting overlap words before the previous window's
// end. Text at or under the target comes back as a single whitespace-normalized
// chunk. The final window always ends at the last word, even when shorter than
// the target.
func ChunkWords(text string, target, overlap int) []string {
	if target <= 0 {
		target = DefaultChunkTarget
	}
	if overlap < 0 || overlap >= target {
		overlap = DefaultChunkOverlap
		if overlap >= target {
			overlap = target / 5
		}
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if len(words) <= target {
		return []string{strings.Join(words, " ")}
	}

	var chunks []string
	start := 0
	for start < len(words) {
		end := min(start+target, len(words))
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end >= len(words) {
			break
		}
		start = end - overlap
	}
	return chunks
}

// WordCount is the token count recorded per chunk.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

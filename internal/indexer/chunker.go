// Package indexer provides document chunking and index building.
package indexer

import (
	"fmt"
	"strings"

	"github.com/Kailramiya/AI4Chat-ai-assistant/pkg/utils"
)

// boundaryFloor is the fraction of the chunk size a sentence boundary must
// lie beyond for the window to shrink to it. A chunk never shrinks by more
// than 30%.
const boundaryFloor = 0.7

// Chunker splits normalized text into overlapping character windows,
// preferring to cut at sentence boundaries near the window's right edge.
type Chunker struct {
	chunkSize int
	overlap   int
}

// NewChunker creates a chunker. Sizes are in characters. Requires
// 0 < overlap < chunkSize, otherwise the window could not advance.
func NewChunker(chunkSize, overlap int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if overlap <= 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap must satisfy 0 < overlap < chunk size, got %d/%d", overlap, chunkSize)
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}, nil
}

// Chunk splits text into an ordered sequence of chunk strings. Whitespace
// runs are collapsed first, so offsets are defined over the normalized text.
// Empty input yields an empty sequence; text shorter than the chunk size
// yields exactly one chunk equal to the whole normalized text.
func (c *Chunker) Chunk(text string) []string {
	runes := []rune(utils.NormalizeWhitespace(text))
	if len(runes) == 0 {
		return nil
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + c.chunkSize
		if end > len(runes) {
			end = len(runes)
		}

		// When the window does not reach the end of the text, prefer the
		// last sentence boundary in the window, but only past the floor.
		// The cut must also leave the next start beyond the current one,
		// or a large overlap could walk the window backward.
		if end < len(runes) {
			if cut := lastSentenceBoundary(runes[start:end]); float64(cut) > boundaryFloor*float64(c.chunkSize) && cut+1 > c.overlap {
				end = start + cut + 1
			}
		}

		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end >= len(runes) {
			break
		}
		start = end - c.overlap
	}
	return chunks
}

// lastSentenceBoundary returns the offset of the period in the last ". "
// occurrence within window, or -1 if there is none.
func lastSentenceBoundary(window []rune) int {
	for i := len(window) - 2; i >= 0; i-- {
		if window[i] == '.' && window[i+1] == ' ' {
			return i
		}
	}
	return -1
}

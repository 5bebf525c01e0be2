package chunker

import (
	"strings"
)

const (
	DefaultChunkSize   = 500
	DefaultOverlap     = 50
	DefaultTerminators = "。．！？.!?"
)

// BoundaryChunker splits text into windows of roughly chunkSize characters,
// preferring to cut just after a sentence terminator, then at a newline.
// Sizes are counted in runes.
type BoundaryChunker struct {
	chunkSize   int
	overlap     int
	terminators map[rune]struct{}
}

func NewBoundaryChunker(chunkSize, overlap int, terminators string) *BoundaryChunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if terminators == "" {
		terminators = DefaultTerminators
	}
	set := make(map[rune]struct{}, len(terminators))
	for _, r := range terminators {
		set[r] = struct{}{}
	}
	return &BoundaryChunker{chunkSize: chunkSize, overlap: overlap, terminators: set}
}

// Split returns the ordered, non-empty chunks of text.
func (c *BoundaryChunker) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	runes := []rune(text)
	var chunks []string
	for _, w := range c.windows(runes) {
		if piece := strings.TrimSpace(string(runes[w[0]:w[1]])); piece != "" {
			chunks = append(chunks, piece)
		}
	}
	return chunks
}

// windows returns the [start, end) rune spans scanned by Split, in order.
func (c *BoundaryChunker) windows(runes []rune) [][2]int {
	n := len(runes)
	var spans [][2]int
	start := 0
	for start < n {
		end := start + c.chunkSize
		if end < n {
			if i := c.lastTerminator(runes, start, end); i > start {
				end = i + 1
			} else if i := lastNewline(runes, start, end); i > start {
				end = i
			}
		} else {
			end = n
		}
		spans = append(spans, [2]int{start, end})
		// Overlap must never move the window backwards, otherwise a boundary
		// found close to start would repeat the same window forever.
		next := end - c.overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return spans
}

func (c *BoundaryChunker) lastTerminator(runes []rune, start, end int) int {
	for i := end - 1; i >= start; i-- {
		if _, ok := c.terminators[runes[i]]; ok {
			return i
		}
	}
	return -1
}

func lastNewline(runes []rune, start, end int) int {
	for i := end - 1; i >= start; i-- {
		if runes[i] == '\n' {
			return i
		}
	}
	return -1
}

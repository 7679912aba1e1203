// Package chunker splits extracted page text into bounded, overlapping
// windows suitable for embedding.
package chunker

import "strings"

// Options configures the chunker.
type Options struct {
	// Size is the window length in characters.
	Size int

	// Overlap is the number of characters shared between consecutive windows.
	Overlap int
}

// Chunker produces fixed-size overlapping text windows.
type Chunker struct {
	opts Options
}

// New creates a chunker, applying defaults for zero values.
func New(opts Options) *Chunker {
	if opts.Size <= 0 {
		opts.Size = 1200
	}
	if opts.Overlap < 0 {
		opts.Overlap = 0
	}
	return &Chunker{opts: opts}
}

// Chunk splits text into consecutive windows of at most Size characters,
// each advancing by Size-Overlap, and stops once remainingBudget windows
// have been produced or the text is exhausted. Whitespace-only windows are
// dropped (they still consume no budget). The final window is truncated at
// the end of the text rather than padded.
//
// The advance step is clamped to at least one character. Overlap values at
// or above Size would otherwise produce a zero or negative step and loop
// forever on the final short tail.
func (c *Chunker) Chunk(text string, remainingBudget int) []string {
	if remainingBudget <= 0 || len(text) == 0 {
		return nil
	}

	step := c.opts.Size - c.opts.Overlap
	if step < 1 {
		step = 1
	}

	var windows []string
	for start := 0; start < len(text) && len(windows) < remainingBudget; start += step {
		end := start + c.opts.Size
		if end > len(text) {
			end = len(text)
		}

		window := strings.TrimSpace(text[start:end])
		if window != "" {
			windows = append(windows, window)
		}

		if end == len(text) {
			break
		}
	}

	return windows
}

// Truncate caps text at maxLen characters. Indexing budgets page text
// before chunking so a single huge page cannot dominate memory.
func Truncate(text string, maxLen int) string {
	if maxLen <= 0 || len(text) <= maxLen {
		return text
	}
	return text[:maxLen]
}

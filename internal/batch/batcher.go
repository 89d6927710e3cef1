// Package batch packs textual lines into token-budget-bounded batches.
package batch

import "unicode/utf8"

const (
	// charsPerToken is a cheap length heuristic, not a tokenizer. Callers
	// must treat the batch ceiling as soft and keep a safety margin.
	charsPerToken = 3

	// minLineTokens floors the estimate so separator overhead and very
	// short lines still count.
	minLineTokens = 4
)

// EstimateTokens estimates the token cost of one line.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)/charsPerToken + 1
	if n < minLineTokens {
		return minLineTokens
	}

	return n
}

// Pack greedily partitions lines into ordered batches whose estimated cost
// stays under maxTokens. The partition is deterministic, preserves input
// order, never drops a line and never emits an empty batch; a single line
// exceeding the ceiling still forms its own batch.
func Pack(lines []string, maxTokens int) [][]string {
	if len(lines) == 0 {
		return nil
	}

	var (
		batches [][]string
		current []string
		cost    int
	)

	for _, line := range lines {
		lineCost := EstimateTokens(line)

		if len(current) > 0 && cost+lineCost > maxTokens {
			batches = append(batches, current)
			current = nil
			cost = 0
		}

		current = append(current, line)
		cost += lineCost
	}

	if len(current) > 0 {
		batches = append(batches, current)
	}

	return batches
}

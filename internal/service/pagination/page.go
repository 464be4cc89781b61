// Package pagination projects fixed-size pages over an ordered block list.
package pagination

import "ai-script-editor-service/internal/models"

// DefaultPageSize is the number of blocks shown per editor page.
const DefaultPageSize = 10

// TotalPages returns ceil(n/size), never less than 1.
func TotalPages(n, size int) int {
	if size <= 0 {
		size = DefaultPageSize
	}
	pages := (n + size - 1) / size
	if pages < 1 {
		return 1
	}
	return pages
}

// Bounds returns the half-open index range [start, end) of page index
// (1-based) within a list of n items. Out-of-range pages yield an empty range.
func Bounds(n, size, index int) (start, end int) {
	if size <= 0 {
		size = DefaultPageSize
	}
	if index < 1 {
		return 0, 0
	}
	start = (index - 1) * size
	if start >= n {
		return n, n
	}
	end = start + size
	if end > n {
		end = n
	}
	return start, end
}

// Page returns the blocks visible on page index (1-based).
// The result aliases the input slice.
func Page(blocks []models.Block, size, index int) []models.Block {
	start, end := Bounds(len(blocks), size, index)
	return blocks[start:end]
}

// PageOf returns the 1-based page holding the item at position i.
func PageOf(i, size int) int {
	if size <= 0 {
		size = DefaultPageSize
	}
	if i < 0 {
		return 1
	}
	return i/size + 1
}

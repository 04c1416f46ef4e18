// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

// ChunkLines joins lines into blocks no longer than maxLen characters each,
// splitting only at line boundaries. A single line longer than maxLen
// becomes its own block rather than being cut mid-line. Empty input yields
// no blocks.
func ChunkLines(lines []string, maxLen int) []string {
	var (
		blocks []string
		cur    string
	)
	for _, line := range lines {
		switch {
		case cur == "":
			cur = line
		case len(cur)+1+len(line) <= maxLen:
			cur += "\n" + line
		default:
			blocks = append(blocks, cur)
			cur = line
		}
	}
	if cur != "" {
		blocks = append(blocks, cur)
	}
	return blocks
}

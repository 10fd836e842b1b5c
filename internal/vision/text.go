package vision

import "strings"

// JoinText flattens blocks into one string. Every component value is
// followed by a single space and every block by a newline. No blocks yields
// the empty string.
func JoinText(blocks []TextBlock) string {
	if len(blocks) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, b := range blocks {
		for _, c := range b.Components {
			sb.WriteString(c.Value)
			sb.WriteByte(' ')
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

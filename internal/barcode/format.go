package barcode

import "strings"

// GroupLength is the digit group size used for product barcode numbers.
const GroupLength = 6

// FormatNumber splits a base-10 integer into groups of six characters
// counted from the right, e.g. "123456789" becomes "123 456789". Anything
// that is not an integer, and anything six characters or shorter, is
// returned unchanged. A leading sign is accepted and grouped like a digit.
func FormatNumber(raw string) string {
	if !isInteger(raw) || len(raw) <= GroupLength {
		return raw
	}

	var sb strings.Builder
	sb.Grow(len(raw) + len(raw)/GroupLength)
	head := len(raw) % GroupLength
	if head > 0 {
		sb.WriteString(raw[:head])
	}
	for i := head; i < len(raw); i += GroupLength {
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(raw[i : i+GroupLength])
	}
	return sb.String()
}

func isInteger(s string) bool {
	if s != "" && (s[0] == '+' || s[0] == '-') {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Summary renders a barcode the way it is shown to the user:
//
//	<formatted number>
//	(<symbology>, <value type>)
func Summary(raw string, sym Symbology, vt ValueType) string {
	return FormatNumber(raw) + "\n(" + sym.String() + ", " + vt.String() + ")"
}

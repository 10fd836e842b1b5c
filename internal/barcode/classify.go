package barcode

import (
	"regexp"
	"strings"
)

var (
	urlRe   = regexp.MustCompile(`(?i)^(https?://|www\.)\S+$`)
	emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phoneRe = regexp.MustCompile(`^\+?[0-9][0-9 ()./-]{5,}$`)
)

// Classify derives the semantic value type of a decoded payload.
func Classify(sym Symbology, raw string) ValueType {
	s := strings.TrimSpace(raw)
	upper := strings.ToUpper(s)

	switch {
	case s == "":
		return ValueTypeText
	case strings.HasPrefix(upper, "BEGIN:VCARD"), strings.HasPrefix(upper, "MECARD:"):
		return ValueTypeContactInfo
	case strings.HasPrefix(upper, "BEGIN:VEVENT"), strings.HasPrefix(upper, "BEGIN:VCALENDAR"):
		return ValueTypeCalendarEvent
	case strings.HasPrefix(upper, "MAILTO:"), strings.HasPrefix(upper, "MATMSG:"):
		return ValueTypeEmail
	case strings.HasPrefix(upper, "TEL:"):
		return ValueTypePhone
	case strings.HasPrefix(upper, "SMS:"), strings.HasPrefix(upper, "SMSTO:"):
		return ValueTypeSMS
	case strings.HasPrefix(upper, "GEO:"):
		return ValueTypeGeo
	case strings.HasPrefix(upper, "WIFI:"):
		return ValueTypeWiFi
	// PDF417 only arrives from injected backends; gozxing cannot read it.
	case sym == SymbologyPDF417 && strings.HasPrefix(s, "@") && strings.Contains(upper, "ANSI "):
		return ValueTypeDriverLicense
	}

	if isProductSymbology(sym) && isInteger(s) && s[0] != '+' && s[0] != '-' {
		if sym == SymbologyEAN13 && (strings.HasPrefix(s, "978") || strings.HasPrefix(s, "979")) {
			return ValueTypeISBN
		}
		return ValueTypeProduct
	}

	switch {
	case urlRe.MatchString(s):
		return ValueTypeURL
	case emailRe.MatchString(s):
		return ValueTypeEmail
	case phoneRe.MatchString(s) && (s[0] == '+' || !isInteger(s)):
		return ValueTypePhone
	}
	return ValueTypeText
}

func isProductSymbology(sym Symbology) bool {
	switch sym {
	case SymbologyEAN8, SymbologyEAN13, SymbologyUPCA, SymbologyUPCE:
		return true
	default:
		return false
	}
}

package xmlparse

import (
	"strconv"
	"strings"
	"time"
)

// parseDecimal accepts the comma-decimal values the regulator XML uses
// ("1234,56"), with "." read as a thousands separator when both appear.
func parseDecimal(s string) float64 {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

var xmlTimeFormats = []string{
	"02/01/2006 15:04:05",
	"02/01/2006",
	time.RFC3339,
}

func parseXMLTime(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range xmlTimeFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// cnpj8 extracts the 8-digit CNPJ root: the first 8 digits of raw once every
// non-digit is dropped, so "12.345.678/0001-99" and "12345678000199" both
// give "12345678". A value with fewer than 8 digits is returned whole.
func cnpj8(raw string) string {
	digits := make([]rune, 0, len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}
	s := string(digits)
	if len(s) >= 8 {
		return s[:8]
	}
	return s
}

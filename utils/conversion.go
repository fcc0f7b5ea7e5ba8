package utils

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode"
)

var phonePattern = regexp.MustCompile(`^\+[1-9]\d{6,14}$`)

// ValidPhone reports whether phone is in international format, e.g. +51987654321.
func ValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

// NormalizeDocument upper-cases a document number and keeps only letters and digits.
func NormalizeDocument(number string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(number)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DigitsOnly strips everything that is not an ASCII digit.
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormatPrice renders a price with two decimals, the way prices travel on the wire.
func FormatPrice(amount float64) string {
	return fmt.Sprintf("%.2f", math.Round(amount*100)/100)
}

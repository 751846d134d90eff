// Package rut validates and formats Chilean national identification
// numbers (RUT) using the modulo-11 check digit algorithm.
package rut

import "strings"

// Clean strips dots, dashes and surrounding whitespace and upper-cases
// the check digit, e.g. "12.345.678-k" -> "12345678K".
func Clean(rut string) string {
	rut = strings.ReplaceAll(rut, ".", "")
	rut = strings.ReplaceAll(rut, "-", "")
	return strings.ToUpper(strings.TrimSpace(rut))
}

// Format renders a clean or dirty RUT as "12.345.678-9".
func Format(rut string) string {
	clean := Clean(rut)
	if len(clean) < 2 {
		return clean
	}
	body := clean[:len(clean)-1]
	dv := clean[len(clean)-1:]

	var b strings.Builder
	for i, r := range body {
		if i > 0 && (len(body)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return b.String() + "-" + dv
}

// CheckDigit computes the expected check digit for the numeric body.
// Digits are weighted 2..7 cycling from right to left; remainder 11 maps
// to '0' and 10 to 'K'.
func CheckDigit(body string) byte {
	sum := 0
	mult := 2
	for i := len(body) - 1; i >= 0; i-- {
		sum += int(body[i]-'0') * mult
		if mult == 7 {
			mult = 2
		} else {
			mult++
		}
	}
	dv := 11 - sum%11
	switch dv {
	case 11:
		return '0'
	case 10:
		return 'K'
	}
	return byte('0' + dv)
}

// Valid reports whether rut carries a correct check digit. The input may
// be formatted or clean; the check digit is case-insensitive.
func Valid(rut string) bool {
	clean := Clean(rut)
	if len(clean) < 2 {
		return false
	}
	body := clean[:len(clean)-1]
	dv := clean[len(clean)-1]

	for i := 0; i < len(body); i++ {
		if body[i] < '0' || body[i] > '9' {
			return false
		}
	}
	if dv != 'K' && (dv < '0' || dv > '9') {
		return false
	}
	return dv == CheckDigit(body)
}

// ValidSplit validates a RUT supplied as separate body and check digit,
// the shape admin forms submit.
func ValidSplit(body, dv string) bool {
	if body == "" || dv == "" {
		return false
	}
	return Valid(body + "-" + dv)
}

// Body returns the numeric part of a RUT without the check digit.
func Body(rut string) string {
	clean := Clean(rut)
	if len(clean) < 2 {
		return clean
	}
	return clean[:len(clean)-1]
}

// Combine builds a formatted RUT from a raw body and check digit,
// stripping any non-digit characters from the body first.
func Combine(body, dv string) string {
	var digits strings.Builder
	for _, r := range body {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 || dv == "" {
		return ""
	}
	return Format(digits.String() + strings.ToUpper(dv))
}

package identifiers

import (
	"strings"
)

const booklandPrefix = "978"

// normalizeISBN drops hyphens and spaces and upper-cases a trailing x
func normalizeISBN(value string) string {
	value = strings.Map(func(r rune) rune {
		if r == '-' || r == ' ' {
			return -1
		}
		return r
	}, value)
	return strings.ToUpper(value)
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// isbn10CheckDigit computes the check character for the first nine digits
func isbn10CheckDigit(first9 string) byte {
	sum := 0
	for i := 0; i < 9; i++ {
		sum += (10 - i) * int(first9[i]-'0')
	}
	check := (11 - sum%11) % 11
	if check == 10 {
		return 'X'
	}
	return byte('0' + check)
}

// isbn13CheckDigit computes the check digit for the first twelve digits
func isbn13CheckDigit(first12 string) byte {
	sum := 0
	for i := 0; i < 12; i++ {
		weight := 1
		if i%2 == 1 {
			weight = 3
		}
		sum += weight * int(first12[i]-'0')
	}
	return byte('0' + (10-sum%10)%10)
}

func isISBN10Shape(v string) bool {
	if len(v) != 10 || !allDigits(v[:9]) {
		return false
	}
	last := v[9]
	return last == 'X' || (last >= '0' && last <= '9')
}

// ISBN13To10 converts a 978-prefixed ISBN-13 to ISBN-10 with a recomputed
// check digit. 979-prefixed or malformed values cannot be converted.
func ISBN13To10(isbn13 string) (string, bool) {
	v := normalizeISBN(isbn13)
	if len(v) != 13 || !allDigits(v) || !strings.HasPrefix(v, booklandPrefix) {
		return "", false
	}
	body := v[3:12]
	return body + string(isbn10CheckDigit(body)), true
}

// ISBN10To13 converts an ISBN-10 to its 978-prefixed ISBN-13
func ISBN10To13(isbn10 string) (string, bool) {
	v := normalizeISBN(isbn10)
	if !isISBN10Shape(v) {
		return "", false
	}
	first12 := booklandPrefix + v[:9]
	return first12 + string(isbn13CheckDigit(first12)), true
}

// CheckISBN10 reports whether the value carries a valid ISBN-10 check digit
func CheckISBN10(isbn10 string) bool {
	v := normalizeISBN(isbn10)
	if !isISBN10Shape(v) {
		return false
	}
	return isbn10CheckDigit(v[:9]) == v[9]
}

// CheckISBN13 reports whether the value carries a valid ISBN-13 check digit
func CheckISBN13(isbn13 string) bool {
	v := normalizeISBN(isbn13)
	if len(v) != 13 || !allDigits(v) {
		return false
	}
	return isbn13CheckDigit(v[:12]) == v[12]
}

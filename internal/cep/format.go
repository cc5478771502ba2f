package cep

import "strings"

// Length is the number of digits in a CEP
const Length = 8

// Digits strips everything but ASCII digits
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Format masks a partially typed code as 00000-000, dropping extra digits
func Format(s string) string {
	d := Digits(s)
	if len(d) > Length {
		d = d[:Length]
	}
	if len(d) > 5 {
		return d[:5] + "-" + d[5:]
	}
	return d
}

// Package core holds the domain types and the report pivot.
//
// Money is carried as integer pence everywhere so that sums stay exact;
// values only become decimal strings at the template boundary.
package core

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Money is a fixed-point GBP amount with 2 fractional digits.
type Money struct {
	Pence int64
}

// Add returns the sum of two amounts.
func (m Money) Add(o Money) Money {
	return Money{Pence: m.Pence + o.Pence}
}

// Mul scales an amount by an integer quantity.
func (m Money) Mul(qty int) Money {
	return Money{Pence: m.Pence * int64(qty)}
}

// String renders the amount as a plain decimal, e.g. "12.50".
func (m Money) String() string {
	pence := m.Pence
	neg := pence < 0
	if neg {
		pence = -pence
	}
	s := strconv.FormatInt(pence/100, 10) + "." + fmt.Sprintf("%02d", pence%100)
	if neg {
		return "-" + s
	}
	return s
}

// GBP renders the amount with a pound sign, e.g. "£12.50".
func (m Money) GBP() string {
	if m.Pence < 0 {
		return "-£" + Money{Pence: -m.Pence}.String()
	}
	return "£" + m.String()
}

// ParseDecimalToPence converts a decimal string to pence with half-up
// rounding on the third decimal place. Dot and comma separators are both
// accepted. Only positive amounts are valid.
//
//	ParseDecimalToPence("12.34") -> 1234
//	ParseDecimalToPence("12,345") -> 1235 (rounds up)
func ParseDecimalToPence(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidPrice
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidPrice
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidPrice
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidPrice
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidPrice
	}
	const maxSafe = (1<<63 - 1) / 100
	if iv > maxSafe {
		return 0, ErrInvalidPrice
	}
	var frac int64
	if len(fracPart) > 0 {
		frac = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			frac += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				frac++
			}
		}
	}
	pence := iv*100 + frac
	if pence <= 0 {
		return 0, ErrInvalidPrice
	}
	return pence, nil
}

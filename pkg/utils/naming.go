// Package utils holds small string helpers shared by the instruction codec.
package utils

import (
	"strings"
	"unicode"
)

// ToPascalCase converts "swap_on_raydium" or "swapOnRaydium" to "SwapOnRaydium".
func ToPascalCase(s string) string {
	var b strings.Builder
	for _, word := range SplitWords(s) {
		runes := []rune(strings.ToLower(word))
		runes[0] = unicode.ToUpper(runes[0])
		b.WriteString(string(runes))
	}
	return b.String()
}

// ToSnakeCase converts "SwapOnRaydium" or "swapOnRaydium" to "swap_on_raydium".
func ToSnakeCase(s string) string {
	words := SplitWords(s)
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return strings.Join(words, "_")
}

// SplitWords breaks an identifier on separators and lower-to-upper case
// transitions. Runs of capitals stay together, so "AToB" yields "A", "To", "B"
// only when a lowercase letter follows.
func SplitWords(s string) []string {
	var (
		words   []string
		current []rune
	)
	flush := func() {
		if len(current) > 0 {
			words = append(words, string(current))
			current = current[:0]
		}
	}

	runes := []rune(s)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == ' ':
			flush()
			continue
		case unicode.IsUpper(r) && i > 0:
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		current = append(current, r)
	}
	flush()

	return words
}

package utils

import (
	"fmt"
	"math"
	"strings"
)

func RoundWithTwoDecimalPlace(f float64) float64 {
	if f == 0 {
		return 0
	}

	return math.Round(f*100) / 100
}

// IsFinite informa se o valor pode entrar em uma soma sem corromper o total.
func IsFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// FormatBRL formata um valor em reais para logs e para o balão da vitrine.
func FormatBRL(f float64) string {
	if !IsFinite(f) {
		return "R$ --"
	}

	negative := f < 0
	f = RoundWithTwoDecimalPlace(math.Abs(f))

	whole := int64(f)
	cents := int64(math.Round((f - float64(whole)) * 100))

	digits := fmt.Sprintf("%d", whole)
	var groups []string
	for len(digits) > 3 {
		groups = append([]string{digits[len(digits)-3:]}, groups...)
		digits = digits[:len(digits)-3]
	}
	groups = append([]string{digits}, groups...)

	out := fmt.Sprintf("R$ %s,%02d", strings.Join(groups, "."), cents)
	if negative {
		out = "-" + out
	}
	return out
}

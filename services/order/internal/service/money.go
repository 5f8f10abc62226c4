package service

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Money turns NaN and infinities into zero.
func Money(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func Round2(v float64) float64 {
	return math.Round(Money(v)*100) / 100
}

func nonNegative(v float64) float64 {
	v = Round2(v)
	if v < 0 {
		return 0
	}
	return v
}

var moneyPrinter = message.NewPrinter(language.English)

// FormatMoney renders an amount for people, e.g. "NGN 2,150.00".
func FormatMoney(amount float64, currency string) string {
	return moneyPrinter.Sprintf("%s %v", currency, number.Decimal(Round2(amount), number.Scale(2)))
}

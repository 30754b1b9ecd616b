package templates

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// RoundDistance rounds to whole units above 20 and to one decimal otherwise.
func RoundDistance(v float64) float64 {
	if v > 20 {
		return math.Round(v)
	}
	return math.Round(v*10) / 10
}

// Formatter renders distances for a page language.
type Formatter struct {
	printer *message.Printer
}

// NewFormatter builds a formatter for a BCP 47 tag such as the host page's
// <html lang>. Unknown or empty tags fall back to English.
func NewFormatter(lang string) *Formatter {
	tag, err := language.Parse(lang)
	if err != nil || lang == "" {
		tag = language.English
	}
	return &Formatter{printer: message.NewPrinter(tag)}
}

// Distance returns the rounded, locale-formatted distance.
func (f *Formatter) Distance(v float64) string {
	r := RoundDistance(v)
	if r == math.Trunc(r) {
		return f.printer.Sprint(number.Decimal(r, number.MaxFractionDigits(0)))
	}
	return f.printer.Sprint(number.Decimal(r, number.MaxFractionDigits(1)))
}

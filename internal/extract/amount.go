package extract

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// optional currency marker, integer part, optional 1-2 digit fraction
	currencyToken = regexp.MustCompile(`(?i)(?:rs\.?|₹)?\s*(\d+(?:\.\d{1,2})?)`)
	// plain two-decimal figures used when no total line is labelled
	twoDecimalToken = regexp.MustCompile(`\d+\.\d{2}`)

	anchoredCeiling = decimal.NewFromInt(100000)
	fallbackFloor   = decimal.NewFromInt(5)
	fallbackCeiling = decimal.NewFromInt(10000)
)

// AmountOf returns the most probable receipt total. Lines carrying a total
// anchor (and the line right after each) are searched first; the whole corpus
// is searched for two-decimal figures only when that finds nothing.
func AmountOf(c Corpus, kw Keywords) decimal.NullDecimal {
	best := decimal.Zero

	for i := 0; i < c.Len(); i++ {
		if !containsAny(strings.ToLower(c.Line(i)), kw.AmountAnchors) {
			continue
		}
		for j := i; j <= i+1 && j < c.Len(); j++ {
			for _, m := range currencyToken.FindAllStringSubmatch(c.Line(j), -1) {
				v, err := decimal.NewFromString(m[1])
				if err != nil {
					continue
				}
				if v.GreaterThan(best) && v.LessThan(anchoredCeiling) {
					best = v
				}
			}
		}
	}

	if best.IsZero() {
		for i := 0; i < c.Len(); i++ {
			for _, tok := range twoDecimalToken.FindAllString(c.Line(i), -1) {
				v, err := decimal.NewFromString(tok)
				if err != nil {
					continue
				}
				if v.GreaterThan(fallbackFloor) && v.LessThan(fallbackCeiling) && v.GreaterThan(best) {
					best = v
				}
			}
		}
	}

	if !best.IsPositive() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(best)
}

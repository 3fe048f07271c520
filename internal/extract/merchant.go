package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	merchantScanLines = 7
	merchantMinLen    = 3
	merchantMaxLen    = 50
	shoutMinLen       = 5
	shoutMaxLen       = 60
)

var (
	numericOnly = regexp.MustCompile(`^[0-9\-/.\s:,]+$`)
	spaceRun    = regexp.MustCompile(`\s+`)
)

// MerchantOf returns the cleaned business name near the top of the receipt,
// or "" when none qualifies. The first qualifying line wins.
func MerchantOf(c Corpus, kw Keywords) string {
	n := min(c.Len(), merchantScanLines)
	for i := 0; i < n; i++ {
		line := strings.TrimSpace(c.Line(i))
		if skipMerchantLine(line, kw) {
			continue
		}
		lower := strings.ToLower(line)
		if containsAny(lower, kw.MerchantBusiness) || isShouted(line) {
			return cleanMerchant(line)
		}
	}

	if kw.FallbackAnchor == "" {
		return ""
	}
	for i := 0; i < c.Len(); i++ {
		if !strings.Contains(strings.ToLower(c.Line(i)), kw.FallbackAnchor) {
			continue
		}
		if i < c.Len()-1 {
			return cleanMerchant(c.Line(i + 1))
		}
		break
	}
	return ""
}

func skipMerchantLine(line string, kw Keywords) bool {
	if utf8.RuneCountInString(line) < merchantMinLen {
		return true
	}
	lower := strings.ToLower(line)
	if containsAny(lower, kw.MerchantSkip) {
		return true
	}
	if numericOnly.MatchString(line) {
		return true
	}
	for _, exact := range kw.MerchantExact {
		if lower == exact {
			return true
		}
	}
	return false
}

// isShouted matches lines printed entirely in capitals, the usual look of a
// store name header.
func isShouted(line string) bool {
	n := utf8.RuneCountInString(line)
	return line == strings.ToUpper(line) && n > shoutMinLen && n < shoutMaxLen
}

func cleanMerchant(s string) string {
	s = strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
	if utf8.RuneCountInString(s) > merchantMaxLen {
		r := []rune(s)
		s = string(r[:merchantMaxLen]) + "..."
	}
	return s
}

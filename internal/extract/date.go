package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// day, month, then a 4- or 2-digit year
var dateToken = regexp.MustCompile(`\d{1,2}[/-]\d{1,2}[/-](?:\d{4}|\d{2})`)

// DateOf returns the receipt date as YYYY-MM-DD. Lines labelled with the date
// keyword are tried first, then every line. Tokens are read day-first. A
// missing or impossible date yields the UTC calendar date of now.
func DateOf(c Corpus, kw Keywords, now time.Time) string {
	raw := ""
	for i := 0; i < c.Len() && raw == ""; i++ {
		line := c.Line(i)
		if strings.Contains(strings.ToLower(line), kw.DateLabel) {
			raw = dateToken.FindString(line)
		}
	}
	for i := 0; i < c.Len() && raw == ""; i++ {
		raw = dateToken.FindString(c.Line(i))
	}

	today := now.UTC().Format(DateLayout)
	if raw == "" {
		return today
	}
	d, err := parseDayFirst(raw)
	if err != nil {
		return today
	}
	return d.Format(DateLayout)
}

func parseDayFirst(raw string) (time.Time, error) {
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == '/' || r == '-' })
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("date %q: want 3 parts", raw)
	}
	year := parts[2]
	if len(year) == 2 {
		year = "20" + year
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return time.Time{}, err
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, err
	}
	d, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, err
	}

	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow (Feb 31 -> Mar 2); reject anything it moved.
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return time.Time{}, fmt.Errorf("date %q: not a calendar date", raw)
	}
	return t, nil
}

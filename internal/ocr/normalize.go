package ocr

import (
	"regexp"
	"strings"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reTabs       = regexp.MustCompile(`\t+`)
	reMultiSpace = regexp.MustCompile(` {2,}`)
	reBoxNoise   = regexp.MustCompile(`^[_\-=~*]{3,}$`)
)

// textToLines splits tesseract output into non-blank lines, dropping ruler
// rows made only of dashes or underscores.
func textToLines(s string) []Line {
	s = reCRLF.ReplaceAllString(s, "\n")
	s = strings.ReplaceAll(s, "\f", "\n")
	var out []Line
	for _, raw := range strings.Split(s, "\n") {
		ln := reTabs.ReplaceAllString(raw, " ")
		ln = strings.TrimSpace(reMultiSpace.ReplaceAllString(ln, " "))
		if ln == "" || reBoxNoise.MatchString(ln) {
			continue
		}
		out = append(out, Line{Text: ln})
	}
	return out
}

package extract

import "strings"

// Corpus is the ordered OCR text of one receipt, top of the receipt first.
// It is immutable once built.
type Corpus struct {
	lines  []string
	joined string
}

// NewCorpus copies lines and precomputes the lower-cased full-text view.
func NewCorpus(lines []string) Corpus {
	cp := make([]string, len(lines))
	copy(cp, lines)
	return Corpus{
		lines:  cp,
		joined: strings.ToLower(strings.Join(cp, " ")),
	}
}

// Lines returns a copy of the corpus lines.
func (c Corpus) Lines() []string {
	out := make([]string, len(c.lines))
	copy(out, c.lines)
	return out
}

// Line returns the i-th line.
func (c Corpus) Line(i int) string { return c.lines[i] }

// Len is the number of lines.
func (c Corpus) Len() int { return len(c.lines) }

// Joined is all lines joined with single spaces, lower-cased.
func (c Corpus) Joined() string { return c.joined }

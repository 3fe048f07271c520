package extract

import (
	"strings"

	"github.com/joseph-ayodele/expense-scanner/constants"
)

// Classify returns the first category, in table order, with a keyword found in
// the merchant or anywhere in the corpus. It falls back to Other.
func Classify(merchant string, c Corpus, kw Keywords) constants.Category {
	m := strings.ToLower(merchant)
	text := c.Joined()
	for _, ck := range kw.Categories {
		for _, w := range ck.Words {
			if strings.Contains(m, w) || strings.Contains(text, w) {
				return ck.Category
			}
		}
	}
	return constants.Other
}

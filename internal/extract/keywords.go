package extract

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/expense-scanner/constants"
)

// CategoryKeywords binds a category to the substrings that select it.
type CategoryKeywords struct {
	Category constants.Category `yaml:"category"`
	Words    []string           `yaml:"words"`
}

// Keywords holds every tunable word list used by the extractors.
// Categories are evaluated in slice order; the first match wins.
type Keywords struct {
	MerchantSkip     []string           `yaml:"merchant_skip"`
	MerchantBusiness []string           `yaml:"merchant_business"`
	MerchantExact    []string           `yaml:"merchant_exact"`
	FallbackAnchor   string             `yaml:"fallback_anchor"`
	AmountAnchors    []string           `yaml:"amount_anchors"`
	DateLabel        string             `yaml:"date_label"`
	Categories       []CategoryKeywords `yaml:"categories"`
}

// DefaultKeywords returns a fresh copy of the built-in tables.
func DefaultKeywords() Keywords {
	return Keywords{
		MerchantSkip: []string{
			"gst", "invoice", "bill", "receipt", "tax", "invoice#", "receipt#",
			"user", "customer", "mobile", "address", "phone",
		},
		MerchantBusiness: []string{
			"grocery", "store", "shop", "mart", "market", "restaurant", "cafe", "hotel",
		},
		MerchantExact:  []string{"invoice", "gst invoice"},
		FallbackAnchor: "gst invoice",
		AmountAnchors: []string{
			"net amount", "total amount", "grand total", "amount payable", "total",
		},
		DateLabel: "date",
		Categories: []CategoryKeywords{
			{Category: constants.Food, Words: []string{
				"grocery", "restaurant", "cafe", "coffee", "starbucks", "pizza", "burger",
				"food", "kitchen", "dining", "hotel", "dhaba", "snacks", "sweets", "bakery",
			}},
			{Category: constants.Transport, Words: []string{
				"uber", "ola", "taxi", "auto", "gas", "fuel", "petrol", "diesel", "parking", "transport",
			}},
			{Category: constants.Shopping, Words: []string{
				"mall", "mart", "store", "shop", "bazaar", "market", "clothing", "fashion",
			}},
			{Category: constants.Entertainment, Words: []string{
				"cinema", "movie", "pvr", "inox", "theatre", "theater", "game",
			}},
			{Category: constants.Medical, Words: []string{
				"pharmacy", "medical", "hospital", "clinic", "doctor", "chemist",
			}},
		},
	}
}

// LoadKeywords reads a YAML keyword file. Sections left out of the file keep
// their defaults.
func LoadKeywords(path string) (Keywords, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Keywords{}, fmt.Errorf("read keywords: %w", err)
	}
	return ParseKeywords(data)
}

// ParseKeywords decodes YAML keyword tables over the defaults.
func ParseKeywords(data []byte) (Keywords, error) {
	var file Keywords
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Keywords{}, fmt.Errorf("parse keywords: %w", err)
	}

	kw := DefaultKeywords()
	if file.MerchantSkip != nil {
		kw.MerchantSkip = lowerAll(file.MerchantSkip)
	}
	if file.MerchantBusiness != nil {
		kw.MerchantBusiness = lowerAll(file.MerchantBusiness)
	}
	if file.MerchantExact != nil {
		kw.MerchantExact = lowerAll(file.MerchantExact)
	}
	if file.FallbackAnchor != "" {
		kw.FallbackAnchor = strings.ToLower(file.FallbackAnchor)
	}
	if file.AmountAnchors != nil {
		kw.AmountAnchors = lowerAll(file.AmountAnchors)
	}
	if file.DateLabel != "" {
		kw.DateLabel = strings.ToLower(file.DateLabel)
	}
	if file.Categories != nil {
		cats := make([]CategoryKeywords, 0, len(file.Categories))
		seen := map[constants.Category]bool{}
		for _, ck := range file.Categories {
			cat, ok := constants.Canonicalize(string(ck.Category))
			if !ok {
				return Keywords{}, fmt.Errorf("parse keywords: unknown category %q", ck.Category)
			}
			if seen[cat] {
				return Keywords{}, fmt.Errorf("parse keywords: category %q listed twice", cat)
			}
			seen[cat] = true
			cats = append(cats, CategoryKeywords{Category: cat, Words: lowerAll(ck.Words)})
		}
		kw.Categories = cats
	}
	if err := kw.Validate(); err != nil {
		return Keywords{}, err
	}
	return kw, nil
}

// Validate rejects tables that would make an extractor match everything.
func (k Keywords) Validate() error {
	check := func(section string, words []string) error {
		for _, w := range words {
			if strings.TrimSpace(w) == "" {
				return fmt.Errorf("keywords: empty word in %s", section)
			}
		}
		return nil
	}
	if err := check("merchant_skip", k.MerchantSkip); err != nil {
		return err
	}
	if err := check("merchant_business", k.MerchantBusiness); err != nil {
		return err
	}
	if err := check("amount_anchors", k.AmountAnchors); err != nil {
		return err
	}
	if strings.TrimSpace(k.DateLabel) == "" {
		return errors.New("keywords: date_label is required")
	}
	for _, ck := range k.Categories {
		if err := check(string(ck.Category), ck.Words); err != nil {
			return err
		}
	}
	return nil
}

// Normalize returns a copy with every word trimmed and lower-cased. Blank
// words are dropped and a blank date label falls back to the default.
func (k Keywords) Normalize() Keywords {
	out := Keywords{
		MerchantSkip:     wordList(k.MerchantSkip),
		MerchantBusiness: wordList(k.MerchantBusiness),
		MerchantExact:    wordList(k.MerchantExact),
		FallbackAnchor:   strings.ToLower(strings.TrimSpace(k.FallbackAnchor)),
		AmountAnchors:    wordList(k.AmountAnchors),
		DateLabel:        strings.ToLower(strings.TrimSpace(k.DateLabel)),
		Categories:       make([]CategoryKeywords, 0, len(k.Categories)),
	}
	if out.DateLabel == "" {
		out.DateLabel = DefaultKeywords().DateLabel
	}
	for _, ck := range k.Categories {
		out.Categories = append(out.Categories, CategoryKeywords{Category: ck.Category, Words: wordList(ck.Words)})
	}
	return out
}

func wordList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, w := range lowerAll(in) {
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(strings.TrimSpace(s))
	}
	return out
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

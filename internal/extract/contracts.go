package extract

import (
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/expense-scanner/constants"
)

// DateLayout is the normalized form of every Draft date.
const DateLayout = "2006-01-02"

// Draft is the structured best-effort reading of one receipt.
type Draft struct {
	// Merchant is empty when no candidate line was found.
	Merchant string `json:"merchant"`
	// Amount is invalid (null) when no qualifying token was found.
	Amount   decimal.NullDecimal `json:"amount"`
	Date     string              `json:"date"`
	Category constants.Category  `json:"category"`
}

// HasMerchant reports whether a merchant was recovered.
func (d Draft) HasMerchant() bool { return d.Merchant != "" }

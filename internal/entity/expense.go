package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/expense-scanner/constants"
)

// Expense represents an expense row for data transfer between layers.
type Expense struct {
	ID          uuid.UUID          `json:"id"`
	UserID      uuid.UUID          `json:"user_id"`
	Category    constants.Category `json:"category"`
	Amount      decimal.Decimal    `json:"amount"`
	Currency    string             `json:"currency"`
	ExpenseDate time.Time          `json:"expense_date"`
	Notes       *string            `json:"notes,omitempty"`
	ReceiptURL  *string            `json:"receipt_url,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

// DefaultCurrency is used when a new expense does not name one.
const DefaultCurrency = "INR"

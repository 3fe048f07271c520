package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/expense-scanner/constants"
	"github.com/joseph-ayodele/expense-scanner/internal/entity"
	"github.com/joseph-ayodele/expense-scanner/internal/expenses"
	"github.com/joseph-ayodele/expense-scanner/internal/repository"
)

const (
	maxBodyBytes = 1 << 20
	xlsxMIME     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type XLSXExporter interface {
	ExportXLSX(ctx context.Context, f repository.ExpenseFilter) ([]byte, error)
}

// ExpensesHandler serves /api/expenses.
type ExpensesHandler struct {
	svc    *expenses.Service
	export XLSXExporter
	logger *slog.Logger
}

func NewExpensesHandler(svc *expenses.Service, export XLSXExporter, logger *slog.Logger) *ExpensesHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExpensesHandler{svc: svc, export: export, logger: logger}
}

func (h *ExpensesHandler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/export", h.exportXLSX)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.remove)
}

type expenseView struct {
	ID          string             `json:"id"`
	UserID      string             `json:"user_id"`
	Category    constants.Category `json:"category"`
	Amount      string             `json:"amount"`
	Currency    string             `json:"currency"`
	ExpenseDate string             `json:"expense_date"`
	Notes       *string            `json:"notes"`
	ReceiptURL  *string            `json:"receipt_url"`
	CreatedAt   time.Time          `json:"created_at"`
}

func newExpenseView(e *entity.Expense) expenseView {
	return expenseView{
		ID:          e.ID.String(),
		UserID:      e.UserID.String(),
		Category:    e.Category,
		Amount:      e.Amount.StringFixed(2),
		Currency:    e.Currency,
		ExpenseDate: e.ExpenseDate.Format(time.DateOnly),
		Notes:       e.Notes,
		ReceiptURL:  e.ReceiptURL,
		CreatedAt:   e.CreatedAt,
	}
}

type messageWithExpense struct {
	Message string      `json:"message"`
	Expense expenseView `json:"expense"`
}

type createBody struct {
	UserID      string           `json:"user_id"`
	Category    string           `json:"category"`
	Amount      *decimal.Decimal `json:"amount"`
	Currency    string           `json:"currency"`
	ExpenseDate string           `json:"expense_date"`
	Notes       *string          `json:"notes"`
	ReceiptURL  *string          `json:"receipt_url"`
}

type updateBody struct {
	UserID      *string          `json:"user_id"`
	Category    *string          `json:"category"`
	Amount      *decimal.Decimal `json:"amount"`
	Currency    *string          `json:"currency"`
	ExpenseDate *string          `json:"expense_date"`
	Notes       *string          `json:"notes"`
	ReceiptURL  *string          `json:"receipt_url"`
}

func (h *ExpensesHandler) list(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.List(r.Context(), listRequest(r))
	if err != nil {
		writeError(w, r, err, "Failed to fetch expenses")
		return
	}
	views := make([]expenseView, 0, len(out))
	for _, e := range out {
		views = append(views, newExpenseView(e))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *ExpensesHandler) create(w http.ResponseWriter, r *http.Request) {
	raw, ok := readBody(w, r)
	if !ok {
		return
	}
	if err := validateBody(createSchema, raw); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"message": "Missing required fields: user_id, category, amount, expense_date",
			"error":   err.Error(),
		})
		return
	}
	var body createBody
	if err := json.Unmarshal(raw, &body); err != nil {
		writeMessage(w, http.StatusBadRequest, "amount must be a decimal number")
		return
	}

	e, err := h.svc.Create(r.Context(), expenses.CreateRequest{
		UserID:      body.UserID,
		Category:    body.Category,
		Amount:      body.Amount,
		Currency:    body.Currency,
		ExpenseDate: body.ExpenseDate,
		Notes:       body.Notes,
		ReceiptURL:  body.ReceiptURL,
	})
	if err != nil {
		writeError(w, r, err, "Failed to create expense")
		return
	}
	writeJSON(w, http.StatusCreated, messageWithExpense{
		Message: "Expense created successfully",
		Expense: newExpenseView(e),
	})
}

func (h *ExpensesHandler) get(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err, "Failed to fetch expense")
		return
	}
	writeJSON(w, http.StatusOK, newExpenseView(e))
}

func (h *ExpensesHandler) update(w http.ResponseWriter, r *http.Request) {
	raw, ok := readBody(w, r)
	if !ok {
		return
	}
	if err := validateBody(updateSchema, raw); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"message": "Provide at least one valid field to update",
			"error":   err.Error(),
		})
		return
	}
	var body updateBody
	if err := json.Unmarshal(raw, &body); err != nil {
		writeMessage(w, http.StatusBadRequest, "amount must be a decimal number")
		return
	}

	e, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), expenses.UpdateRequest{
		UserID:      body.UserID,
		Category:    body.Category,
		Amount:      body.Amount,
		Currency:    body.Currency,
		ExpenseDate: body.ExpenseDate,
		Notes:       body.Notes,
		ReceiptURL:  body.ReceiptURL,
	})
	if err != nil {
		writeError(w, r, err, "Failed to update expense")
		return
	}
	writeJSON(w, http.StatusOK, messageWithExpense{
		Message: "Expense updated successfully",
		Expense: newExpenseView(e),
	})
}

func (h *ExpensesHandler) remove(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err, "Failed to delete expense")
		return
	}
	writeJSON(w, http.StatusOK, messageWithExpense{
		Message: "Expense deleted successfully",
		Expense: newExpenseView(e),
	})
}

func (h *ExpensesHandler) exportXLSX(w http.ResponseWriter, r *http.Request) {
	f, err := h.svc.Filter(listRequest(r))
	if err != nil {
		writeError(w, r, err, "Failed to export expenses")
		return
	}
	data, err := h.export.ExportXLSX(r.Context(), f)
	if err != nil {
		writeError(w, r, err, "Failed to export expenses")
		return
	}
	w.Header().Set("Content-Type", xlsxMIME)
	w.Header().Set("Content-Disposition", `attachment; filename="expenses.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func listRequest(r *http.Request) expenses.ListRequest {
	q := r.URL.Query()
	return expenses.ListRequest{
		UserID:   q.Get("user_id"),
		Category: q.Get("category"),
		From:     q.Get("from"),
		To:       q.Get("to"),
	}
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeMessage(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return nil, false
	}
	return raw, true
}

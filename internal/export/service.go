package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/expense-scanner/internal/entity"
	"github.com/joseph-ayodele/expense-scanner/internal/repository"
)

const SheetName = "Expenses"

var headers = []string{
	"Expense Date",
	"Category",
	"Amount",
	"Currency",
	"Notes",
	"Receipt",
	"Expense ID",
}

// Service produces XLSX bytes for expense exports.
type Service struct {
	repo   repository.ExpenseRepository
	now    func() time.Time
	logger *slog.Logger
}

func NewService(repo repository.ExpenseRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, now: time.Now, logger: logger}
}

// ExportXLSX returns a workbook of the expenses matching f.
// A From without a To runs through today (UTC).
func (s *Service) ExportXLSX(ctx context.Context, f repository.ExpenseFilter) ([]byte, error) {
	start := time.Now()
	if f.From != nil && f.To == nil {
		today := s.now().UTC()
		t := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
		f.To = &t
	}

	rows, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}

	buf, err := Workbook(rows)
	if err != nil {
		return nil, err
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf, nil
}

// Workbook renders rows onto a single Expenses sheet.
func Workbook(rows []*entity.Expense) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	// rename the default sheet so the workbook has only one
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, err
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(SheetName, cell, h)
	}

	for i, e := range rows {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(SheetName, cell, v)
		}

		write(1, e.ExpenseDate.Format(time.DateOnly))
		write(2, string(e.Category))
		write(3, e.Amount.InexactFloat64())
		write(4, e.Currency)
		if e.Notes != nil {
			write(5, truncate(*e.Notes, 140))
		}
		if e.ReceiptURL != nil {
			write(6, *e.ReceiptURL)
		}
		write(7, e.ID.String())
	}

	_ = f.SetColWidth(SheetName, "A", "A", 14) // date
	_ = f.SetColWidth(SheetName, "B", "B", 16) // category
	_ = f.SetColWidth(SheetName, "C", "D", 12) // amount, currency
	_ = f.SetColWidth(SheetName, "E", "E", 48) // notes
	_ = f.SetColWidth(SheetName, "F", "G", 40) // receipt, id

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

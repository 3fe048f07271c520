package expenses

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/expense-scanner/constants"
	"github.com/joseph-ayodele/expense-scanner/internal/common"
	"github.com/joseph-ayodele/expense-scanner/internal/entity"
	"github.com/joseph-ayodele/expense-scanner/internal/repository"
)

const maxNotesLength = 1000

// Service handles expense business logic.
type Service struct {
	repo   repository.ExpenseRepository
	policy *bluemonday.Policy
	logger *slog.Logger
}

func NewService(repo repository.ExpenseRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		policy: bluemonday.StrictPolicy(),
		logger: logger,
	}
}

// CreateRequest carries user input for a new expense. Dates are YYYY-MM-DD.
type CreateRequest struct {
	UserID      string
	Category    string
	Amount      *decimal.Decimal
	Currency    string
	ExpenseDate string
	Notes       *string
	ReceiptURL  *string
}

// UpdateRequest carries a partial update; nil fields are untouched.
type UpdateRequest struct {
	UserID      *string
	Category    *string
	Amount      *decimal.Decimal
	Currency    *string
	ExpenseDate *string
	Notes       *string
	ReceiptURL  *string
}

type ListRequest struct {
	UserID   string
	Category string
	From     string
	To       string
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*entity.Expense, error) {
	cur := strings.ToUpper(strings.TrimSpace(req.Currency))
	v := common.NewValidator()
	v.Field("user_id", req.UserID, common.Required, common.UUID)
	v.Field("category", req.Category, common.Required)
	v.Field("amount", req.Amount, common.Required, common.PositiveAmount)
	v.Field("expense_date", req.ExpenseDate, common.Required, common.DateOnly)
	if cur != "" {
		v.Field("currency", cur, common.CurrencyCode)
	}
	notes := s.cleanNotes(req.Notes)
	v.Field("notes", notes, common.MaxLength(maxNotesLength))
	cat := s.category(v, req.Category)
	if err := v.Err(); err != nil {
		return nil, err
	}

	e := &entity.Expense{
		UserID:      uuid.MustParse(req.UserID),
		Category:    cat,
		Amount:      req.Amount.Round(2),
		Currency:    cur,
		ExpenseDate: mustDate(req.ExpenseDate),
		Notes:       notes,
		ReceiptURL:  trimmedOrNil(req.ReceiptURL),
	}
	created, err := s.repo.Create(ctx, e)
	if err != nil {
		return nil, err
	}
	s.logger.Info("expense created", "expense_id", created.ID, "user_id", created.UserID)
	return created, nil
}

func (s *Service) Get(ctx context.Context, id string) (*entity.Expense, error) {
	eid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, eid)
}

func (s *Service) List(ctx context.Context, req ListRequest) ([]*entity.Expense, error) {
	filter, err := s.Filter(req)
	if err != nil {
		return nil, err
	}
	out, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("expenses listed", "count", len(out))
	return out, nil
}

func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (*entity.Expense, error) {
	eid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var upd repository.ExpenseUpdate
	v := common.NewValidator()
	if req.UserID != nil {
		v.Field("user_id", *req.UserID, common.UUID)
		if uid, err := uuid.Parse(*req.UserID); err == nil {
			upd.UserID = &uid
		}
	}
	if req.Category != nil {
		cat := s.category(v, *req.Category)
		upd.Category = &cat
	}
	if req.Amount != nil {
		v.Field("amount", req.Amount, common.PositiveAmount)
		amt := req.Amount.Round(2)
		upd.Amount = &amt
	}
	if req.Currency != nil {
		cur := strings.ToUpper(strings.TrimSpace(*req.Currency))
		v.Field("currency", cur, common.CurrencyCode)
		upd.Currency = &cur
	}
	if req.ExpenseDate != nil {
		v.Field("expense_date", *req.ExpenseDate, common.DateOnly)
		if d, err := time.Parse(time.DateOnly, *req.ExpenseDate); err == nil {
			upd.ExpenseDate = &d
		}
	}
	if req.Notes != nil {
		notes := s.policy.Sanitize(strings.TrimSpace(*req.Notes))
		v.Field("notes", notes, common.MaxLength(maxNotesLength))
		upd.Notes = &notes
	}
	if req.ReceiptURL != nil {
		u := strings.TrimSpace(*req.ReceiptURL)
		upd.ReceiptURL = &u
	}
	if upd.Empty() && !v.HasErrors() {
		v.Fail("body", "must contain at least one field to update")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, eid, upd)
	if err != nil {
		return nil, err
	}
	s.logger.Info("expense updated", "expense_id", eid)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) (*entity.Expense, error) {
	eid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	removed, err := s.repo.Delete(ctx, eid)
	if err != nil {
		return nil, err
	}
	s.logger.Info("expense deleted", "expense_id", eid)
	return removed, nil
}

// Filter validates list or export query parameters.
func (s *Service) Filter(req ListRequest) (repository.ExpenseFilter, error) {
	var f repository.ExpenseFilter
	v := common.NewValidator()
	if uid := strings.TrimSpace(req.UserID); uid != "" {
		v.Field("user_id", uid, common.UUID)
		if id, err := uuid.Parse(uid); err == nil {
			f.UserID = &id
		}
	}
	if req.Category != "" {
		cat := s.category(v, req.Category)
		f.Category = &cat
	}
	if req.From != "" {
		v.Field("from", req.From, common.DateOnly)
		if d, err := time.Parse(time.DateOnly, req.From); err == nil {
			f.From = &d
		}
	}
	if req.To != "" {
		v.Field("to", req.To, common.DateOnly)
		if d, err := time.Parse(time.DateOnly, req.To); err == nil {
			f.To = &d
		}
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		v.Fail("from", "must not be after to")
	}
	return f, v.Err()
}

// category canonicalizes name, recording a failure when it maps to no category.
func (s *Service) category(v *common.Validator, name string) constants.Category {
	if strings.TrimSpace(name) == "" {
		return constants.Other
	}
	cat, ok := constants.Canonicalize(name)
	if !ok {
		v.Fail("category", "must be one of "+strings.Join(constants.AsStringSlice(), ", "))
	}
	return cat
}

func (s *Service) cleanNotes(notes *string) *string {
	if notes == nil {
		return nil
	}
	clean := strings.TrimSpace(s.policy.Sanitize(*notes))
	if clean == "" {
		return nil
	}
	return &clean
}

func parseID(id string) (uuid.UUID, error) {
	eid, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return uuid.Nil, common.NewAppError("VALIDATION_ERROR", "id must be a valid UUID", common.ErrValidation)
	}
	return eid, nil
}

func mustDate(s string) time.Time {
	d, _ := time.Parse(time.DateOnly, s)
	return d
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/expense-scanner/constants"
	"github.com/joseph-ayodele/expense-scanner/internal/common"
	"github.com/joseph-ayodele/expense-scanner/internal/entity"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var _ = Describe("ExpenseRepository", func() {
	var (
		ctx  context.Context
		db   *DB
		repo ExpenseRepository
		user uuid.UUID
	)

	BeforeEach(func() {
		ctx = context.Background()
		db = openTestDB()
		repo = NewExpenseRepository(db, discardLogger)
		user = uuid.New()
	})

	newExpense := func(cat constants.Category, amount string, date time.Time) *entity.Expense {
		return &entity.Expense{
			UserID:      user,
			Category:    cat,
			Amount:      decimal.RequireFromString(amount),
			ExpenseDate: date,
		}
	}

	When("creating an expense", func() {
		It("assigns an id, default currency and creation time", func() {
			notes := "lunch"
			e := newExpense(constants.Food, "45.10", day(2024, time.August, 5))
			e.Notes = &notes

			created, err := repo.Create(ctx, e)
			Expect(err).NotTo(HaveOccurred())
			Expect(created.ID).NotTo(Equal(uuid.Nil))
			Expect(created.UserID).To(Equal(user))
			Expect(created.Currency).To(Equal(entity.DefaultCurrency))
			Expect(created.Amount.StringFixed(2)).To(Equal("45.10"))
			Expect(created.ExpenseDate).To(Equal(day(2024, time.August, 5)))
			Expect(created.CreatedAt).NotTo(BeZero())
			Expect(created.Notes).To(HaveValue(Equal("lunch")))
			Expect(created.ReceiptURL).To(BeNil())
		})

		It("can be read back by id", func() {
			created, err := repo.Create(ctx, newExpense(constants.Transport, "12.00", day(2024, time.July, 1)))
			Expect(err).NotTo(HaveOccurred())

			got, err := repo.GetByID(ctx, created.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Category).To(Equal(constants.Transport))
		})
	})

	It("reports a missing expense as not found", func() {
		_, err := repo.GetByID(ctx, uuid.New())
		Expect(err).To(MatchError(common.ErrNotFound))
	})

	When("listing expenses", func() {
		BeforeEach(func() {
			for _, e := range []*entity.Expense{
				newExpense(constants.Food, "10.00", day(2024, time.January, 10)),
				newExpense(constants.Food, "20.00", day(2024, time.February, 10)),
				newExpense(constants.Medical, "30.00", day(2024, time.March, 10)),
			} {
				_, err := repo.Create(ctx, e)
				Expect(err).NotTo(HaveOccurred())
			}
			other := newExpense(constants.Food, "99.00", day(2024, time.March, 1))
			other.UserID = uuid.New()
			_, err := repo.Create(ctx, other)
			Expect(err).NotTo(HaveOccurred())
		})

		It("orders by expense date, newest first", func() {
			all, err := repo.List(ctx, ExpenseFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(4))
			Expect(all[0].ExpenseDate).To(Equal(day(2024, time.March, 10)))
			Expect(all[3].ExpenseDate).To(Equal(day(2024, time.January, 10)))
		})

		It("filters by user, category and inclusive date range", func() {
			food := constants.Food
			from, to := day(2024, time.February, 10), day(2024, time.March, 10)

			got, err := repo.List(ctx, ExpenseFilter{UserID: &user, Category: &food, From: &from, To: &to})
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(1))
			Expect(got[0].Amount.StringFixed(2)).To(Equal("20.00"))
		})

		It("honors the limit", func() {
			got, err := repo.List(ctx, ExpenseFilter{UserID: &user, Limit: 2})
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(2))
		})

		It("counts every row", func() {
			Expect(repo.Count(ctx)).To(Equal(4))
		})
	})

	When("updating an expense", func() {
		var existing *entity.Expense

		BeforeEach(func() {
			var err error
			existing, err = repo.Create(ctx, newExpense(constants.Other, "5.00", day(2024, time.May, 2)))
			Expect(err).NotTo(HaveOccurred())
		})

		It("changes only the given fields", func() {
			amount := decimal.RequireFromString("7.25")
			cat := constants.Shopping

			updated, err := repo.Update(ctx, existing.ID, ExpenseUpdate{Amount: &amount, Category: &cat})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Amount.StringFixed(2)).To(Equal("7.25"))
			Expect(updated.Category).To(Equal(constants.Shopping))
			Expect(updated.ExpenseDate).To(Equal(existing.ExpenseDate))
			Expect(updated.Currency).To(Equal(existing.Currency))
		})

		It("rejects an empty update", func() {
			_, err := repo.Update(ctx, existing.ID, ExpenseUpdate{})
			Expect(err).To(MatchError(common.ErrValidation))
		})

		It("reports an unknown id as not found", func() {
			cur := "USD"
			_, err := repo.Update(ctx, uuid.New(), ExpenseUpdate{Currency: &cur})
			Expect(err).To(MatchError(common.ErrNotFound))
		})
	})

	When("deleting an expense", func() {
		It("returns the removed row and forgets it", func() {
			created, err := repo.Create(ctx, newExpense(constants.Entertainment, "15.00", day(2024, time.June, 9)))
			Expect(err).NotTo(HaveOccurred())

			removed, err := repo.Delete(ctx, created.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(removed.ID).To(Equal(created.ID))

			_, err = repo.GetByID(ctx, created.ID)
			Expect(err).To(MatchError(common.ErrNotFound))
			Expect(repo.Count(ctx)).To(Equal(0))
		})

		It("reports an unknown id as not found", func() {
			_, err := repo.Delete(ctx, uuid.New())
			Expect(err).To(MatchError(common.ErrNotFound))
		})
	})
})

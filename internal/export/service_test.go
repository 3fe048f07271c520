package export

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/expense-scanner/constants"
	"github.com/joseph-ayodele/expense-scanner/internal/entity"
	"github.com/joseph-ayodele/expense-scanner/internal/repository"
)

func readSheet(data []byte) [][]string {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	Expect(err).NotTo(HaveOccurred())
	defer func() { _ = f.Close() }()
	Expect(f.GetSheetList()).To(Equal([]string{SheetName}))
	rows, err := f.GetRows(SheetName)
	Expect(err).NotTo(HaveOccurred())
	return rows
}

var _ = Describe("Workbook", func() {
	It("writes a header and one row per expense", func() {
		notes := strings.Repeat("n", 200)
		data, err := Workbook([]*entity.Expense{{
			ID:          uuid.New(),
			Category:    constants.Food,
			Amount:      decimal.RequireFromString("45.10"),
			Currency:    "INR",
			ExpenseDate: time.Date(2024, 8, 5, 0, 0, 0, 0, time.UTC),
			Notes:       &notes,
		}})
		Expect(err).NotTo(HaveOccurred())

		rows := readSheet(data)
		Expect(rows).To(HaveLen(2))
		Expect(rows[0]).To(Equal(headers))
		Expect(rows[1][0]).To(Equal("2024-08-05"))
		Expect(rows[1][1]).To(Equal("Food"))
		Expect(rows[1][2]).To(Equal("45.1"))
		Expect([]rune(rows[1][4])).To(HaveLen(140))
	})

	It("writes only the header for no expenses", func() {
		data, err := Workbook(nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(readSheet(data)).To(HaveLen(1))
	})
})

var _ = Describe("Service", func() {
	var (
		ctx  context.Context
		repo repository.ExpenseRepository
		svc  *Service
		user uuid.UUID
	)

	BeforeEach(func() {
		ctx = context.Background()
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		db, err := repository.Open(ctx, repository.Config{
			Driver: repository.DriverSQLite,
			DSN:    filepath.Join(GinkgoT().TempDir(), "export.db"),
		}, logger)
		Expect(err).NotTo(HaveOccurred())
		Expect(db.Migrate()).To(Succeed())
		DeferCleanup(db.Close)

		repo = repository.NewExpenseRepository(db, logger)
		svc = NewService(repo, logger)
		svc.now = func() time.Time { return time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC) }
		user = uuid.New()

		for _, d := range []time.Time{
			time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		} {
			_, err := repo.Create(ctx, &entity.Expense{
				UserID:      user,
				Category:    constants.Shopping,
				Amount:      decimal.RequireFromString("10.00"),
				ExpenseDate: d,
			})
			Expect(err).NotTo(HaveOccurred())
		}
	})

	It("exports every expense of the user", func() {
		data, err := svc.ExportXLSX(ctx, repository.ExpenseFilter{UserID: &user})
		Expect(err).NotTo(HaveOccurred())
		Expect(readSheet(data)).To(HaveLen(4))
	})

	It("closes an open-ended window at today", func() {
		from := time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)
		data, err := svc.ExportXLSX(ctx, repository.ExpenseFilter{UserID: &user, From: &from})
		Expect(err).NotTo(HaveOccurred())

		rows := readSheet(data)
		Expect(rows).To(HaveLen(2))
		Expect(rows[1][0]).To(Equal("2024-06-01"))
	})
})

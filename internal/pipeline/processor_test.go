package pipeline

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/joseph-ayodele/expense-scanner/constants"
	"github.com/joseph-ayodele/expense-scanner/internal/extract"
	"github.com/joseph-ayodele/expense-scanner/internal/ocr"
)

var _ = Describe("Processor", func() {
	var (
		reader *stubReader
		proc   *Processor
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		reader = &stubReader{lines: []string{
			"GST INVOICE",
			"FRESH GROCERY MART",
			"Date: 05/08/2024",
			"Item A  100.00",
			"Net Amount: Rs. 245.50",
			"Thank you",
		}}
		clock := func() time.Time { return time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC) }
		proc = NewProcessor(reader, extract.NewExtractor(extract.WithClock(clock)), nil)
	})

	Describe("Process", func() {
		It("returns the draft and the raw lines", func() {
			res, err := proc.Process(ctx, ocr.Image{URL: "https://x/r.jpg"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Lines).To(HaveLen(6))
			Expect(res.Draft.Merchant).To(Equal("FRESH GROCERY MART"))
			Expect(res.Draft.Amount.Decimal.Equal(decimal.RequireFromString("245.5"))).To(BeTrue())
			Expect(res.Draft.Date).To(Equal("2024-08-05"))
			Expect(res.Draft.Category).To(Equal(constants.Food))
		})

		It("does not extract when OCR fails", func() {
			reader.err = fmt.Errorf("op: %w", ocr.ErrExtractionUnavailable)
			_, err := proc.Process(ctx, ocr.Image{URL: "https://x/r.jpg"})
			Expect(err).To(MatchError(ocr.ErrExtractionUnavailable))
		})
	})

	Describe("ProcessRef", func() {
		It("decodes data URLs before reading", func() {
			ref := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("img-bytes"))
			_, err := proc.ProcessRef(ctx, ref)
			Expect(err).NotTo(HaveOccurred())
			Expect(reader.got).To(HaveLen(1))
			Expect(reader.got[0].Data).To(Equal([]byte("img-bytes")))
			Expect(reader.got[0].ContentType).To(Equal("image/png"))
			Expect(reader.got[0].URL).To(BeEmpty())
		})

		It("passes http URLs through", func() {
			_, err := proc.ProcessRef(ctx, "https://files.example/r.jpg")
			Expect(err).NotTo(HaveOccurred())
			Expect(reader.got[0].URL).To(Equal("https://files.example/r.jpg"))
		})

		DescribeTable("rejects bad references",
			func(ref string) {
				_, err := proc.ProcessRef(ctx, ref)
				Expect(err).To(MatchError(ErrBadImageRef))
				Expect(reader.got).To(BeEmpty())
			},
			Entry("ftp", "ftp://x/r.jpg"),
			Entry("relative", "receipt.jpg"),
			Entry("no payload", "data:image/png;base64"),
			Entry("bad base64", "data:image/png;base64,@@@"),
		)
	})

	Describe("ProcessFile", func() {
		It("reads the file and tags its content type", func() {
			path := filepath.Join(GinkgoT().TempDir(), "scan.PDF")
			Expect(os.WriteFile(path, []byte("%PDF-1.4"), 0o600)).To(Succeed())

			_, err := proc.ProcessFile(ctx, path)
			Expect(err).NotTo(HaveOccurred())
			Expect(reader.got[0].ContentType).To(Equal("application/pdf"))
			Expect(reader.got[0].Data).To(Equal([]byte("%PDF-1.4")))
		})

		It("fails for a missing file", func() {
			_, err := proc.ProcessFile(ctx, filepath.Join(GinkgoT().TempDir(), "missing.jpg"))
			Expect(err).To(MatchError(ContainSubstring("read file")))
		})
	})
})

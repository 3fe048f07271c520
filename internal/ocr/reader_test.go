package ocr

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/joseph-ayodele/expense-scanner/constants"
)

var _ = Describe("Reader", func() {
	var (
		engine *scriptedEngine
		reader *Reader
		ctx    context.Context
		img    Image
		lines  []string
		err    error
	)

	BeforeEach(func() {
		engine = &scriptedEngine{}
		ctx = context.Background()
		img = Image{Data: []byte("png"), ContentType: "image/png"}
		reader = NewReader(engine, discard, WithPollInterval(time.Millisecond))
	})

	JustBeforeEach(func() {
		lines, err = reader.Read(ctx, img)
	})

	When("the operation succeeds after running", func() {
		BeforeEach(func() {
			engine.results = []ReadResult{
				{Status: constants.ReadNotStarted},
				{Status: constants.ReadRunning},
				{Status: constants.ReadSucceeded, Pages: []Page{
					{Number: 1, Lines: []Line{{Text: "FRESH MART"}, {Text: "Total 10.00"}}},
					{Number: 2, Lines: []Line{{Text: "Thank you"}}},
				}},
			}
		})

		It("flattens pages then lines", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(lines).To(Equal([]string{"FRESH MART", "Total 10.00", "Thank you"}))
		})

		It("polls until terminal", func() {
			Expect(engine.polls).To(Equal(3))
		})

		It("submits the image unchanged", func() {
			Expect(engine.submitted).To(HaveLen(1))
			Expect(engine.submitted[0].ContentType).To(Equal("image/png"))
		})
	})

	When("the operation is done by the first check", func() {
		BeforeEach(func() {
			engine.results = []ReadResult{{Status: constants.ReadSucceeded, Pages: []Page{{Number: 1, Lines: []Line{{Text: "DONE"}}}}}}
			reader = NewReader(engine, discard, WithPollInterval(time.Hour))
		})

		It("returns without waiting an interval", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(lines).To(Equal([]string{"DONE"}))
			Expect(engine.polls).To(Equal(1))
		})
	})

	When("the operation fails", func() {
		BeforeEach(func() {
			engine.results = []ReadResult{{Status: constants.ReadRunning}, {Status: constants.ReadFailed}}
		})

		It("reports extraction unavailable", func() {
			Expect(err).To(MatchError(ErrExtractionUnavailable))
			Expect(lines).To(BeNil())
		})
	})

	When("submission fails", func() {
		BeforeEach(func() {
			engine.submitErr = errors.New("quota")
		})

		It("returns the error without polling", func() {
			Expect(err).To(MatchError(ContainSubstring("quota")))
			Expect(engine.polls).To(BeZero())
		})
	})

	When("polling errors", func() {
		BeforeEach(func() {
			engine.resultErr = ErrOperationNotFound
		})

		It("wraps it", func() {
			Expect(err).To(MatchError(ErrOperationNotFound))
		})
	})

	When("a poll cap is configured", func() {
		BeforeEach(func() {
			engine.results = []ReadResult{{Status: constants.ReadRunning}}
			reader = NewReader(engine, discard, WithPollInterval(time.Millisecond), WithMaxPolls(3))
		})

		It("stops after the cap", func() {
			Expect(err).To(MatchError(ErrPollLimit))
			Expect(engine.polls).To(Equal(3))
		})
	})

	When("the context ends while the operation runs", func() {
		BeforeEach(func() {
			engine.results = []ReadResult{{Status: constants.ReadRunning}}
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(context.Background(), 20*time.Millisecond)
			DeferCleanup(cancel)
		})

		It("returns the context error", func() {
			Expect(err).To(MatchError(context.DeadlineExceeded))
		})
	})

	When("the image is empty", func() {
		BeforeEach(func() {
			img = Image{}
		})

		It("refuses it", func() {
			Expect(err).To(MatchError(ErrEmptyImage))
			Expect(engine.submitted).To(BeEmpty())
		})
	})
})

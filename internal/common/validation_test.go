package common

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var _ = Describe("Validator", func() {
	It("collects every failure", func() {
		v := NewValidator().
			Field("user_id", "nope", Required, UUID).
			Field("category", "", Required).
			Field("notes", strings.Repeat("x", 11), MaxLength(10))
		Expect(v.Errors()).To(HaveLen(3))
		Expect(v.ErrorMessage()).To(ContainSubstring("user_id must be a valid UUID"))
		Expect(v.Err()).To(MatchError(ErrValidation))
	})

	It("returns nil when clean", func() {
		v := NewValidator().Field("currency", "INR", CurrencyCode)
		Expect(v.Err()).To(BeNil())
	})

	DescribeTable("PositiveAmount",
		func(in string, ok bool) {
			err := PositiveAmount("amount", decimal.RequireFromString(in))
			if ok {
				Expect(err).To(BeNil())
			} else {
				Expect(err).NotTo(BeNil())
			}
		},
		Entry("typical", "245.50", true),
		Entry("zero", "0", false),
		Entry("negative", "-1", false),
		Entry("three places", "1.005", false),
		Entry("too large", "100000000", false),
	)

	DescribeTable("DateOnly",
		func(in string, ok bool) {
			Expect(DateOnly("expense_date", in) == nil).To(Equal(ok))
		},
		Entry("valid", "2024-08-05", true),
		Entry("impossible", "2024-02-31", false),
		Entry("day first", "05/08/2024", false),
	)
})

var _ = Describe("ToStatus", func() {
	It("maps sentinels to gRPC codes", func() {
		Expect(status.Code(ToStatus(NotFound("expense")))).To(Equal(codes.NotFound))
		Expect(status.Code(ToStatus(NewValidator().Fail("lines", "is required").Err()))).To(Equal(codes.InvalidArgument))
		Expect(status.Code(ToStatus(errors.New("boom")))).To(Equal(codes.Internal))
		Expect(ToStatus(nil)).To(BeNil())
	})

	It("hides raw causes from clients", func() {
		Expect(PublicMessage(errors.New("pq: password leaked"))).To(Equal("internal error"))
		Expect(PublicMessage(NotFound("expense"))).To(Equal("expense not found"))
	})
})

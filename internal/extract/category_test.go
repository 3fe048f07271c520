package extract

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/joseph-ayodele/expense-scanner/constants"
)

var _ = Describe("Classify", func() {
	DescribeTable("priority order",
		func(merchant string, lines []string, want constants.Category) {
			Expect(Classify(merchant, NewCorpus(lines), DefaultKeywords())).To(Equal(want))
		},
		Entry("food beats transport", "", []string{"cafe near uber stand"}, constants.Food),
		Entry("transport", "", []string{"Indian Oil", "Petrol 20L"}, constants.Transport),
		Entry("shopping", "", []string{"Phoenix Mall"}, constants.Shopping),
		Entry("entertainment", "", []string{"PVR Cinemas"}, constants.Entertainment),
		Entry("medical", "", []string{"Apollo Pharmacy"}, constants.Medical),
		Entry("merchant alone", "Dr Rao Clinic", []string{}, constants.Medical),
		Entry("case insensitive", "", []string{"STARBUCKS"}, constants.Food),
		Entry("nothing matches", "", []string{"Acme Widgets"}, constants.Other),
		Entry("empty", "", []string{}, constants.Other),
	)

	It("follows a reordered table", func() {
		kw := DefaultKeywords()
		kw.Categories[0], kw.Categories[1] = kw.Categories[1], kw.Categories[0]
		Expect(Classify("", NewCorpus([]string{"cafe near uber stand"}), kw)).To(Equal(constants.Transport))
	})
})

package catalog

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ParseLocation", func() {
	DescribeTable("valid locations",
		func(input string, expected Location) {
			loc, err := ParseLocation(input)
			Expect(err).NotTo(HaveOccurred())
			Expect(loc).To(Equal(expected))
		},
		Entry("tuple", "(1, 2, 3)", Location{X: 1, Y: 2, Theta: 3}),
		Entry("list", "[-2.5, 0, 1.57]", Location{X: -2.5, Theta: 1.57}),
		Entry("bare", " 0.1,0.2 ,0.3 ", Location{X: 0.1, Y: 0.2, Theta: 0.3}),
	)

	DescribeTable("invalid locations",
		func(input string) {
			_, err := ParseLocation(input)
			Expect(err).To(HaveOccurred())
		},
		Entry("two components", "(1, 2)"),
		Entry("four components", "(1, 2, 3, 4)"),
		Entry("word", "(1, two, 3)"),
		Entry("empty component", "(1, , 3)"),
		Entry("not a number", "(NaN, 1, 2)"),
		Entry("empty", ""),
	)
})

var _ = Describe("ParseRecord", func() {
	It("should reject a missing Z as malformed, not zero", func() {
		_, err := ParseRecord(Row{Line: 4, Name: "Eggs", X: "1", Y: "2"})
		Expect(err).To(MatchError(ErrMalformedRecord))
	})

	It("should prefer X/Y/Z over Location", func() {
		record, err := ParseRecord(Row{Name: "Eggs", X: "1", Y: "2", Z: "3", Location: "(9, 9, 9)"})
		Expect(err).NotTo(HaveOccurred())
		Expect(record.Location).To(Equal(Location{X: 1, Y: 2, Theta: 3}))
	})

	It("should normalize allergens", func() {
		record, err := ParseRecord(Row{Name: "Cake", X: "0", Y: "0", Z: "0", Allergens: "Milk, EGG"})
		Expect(err).NotTo(HaveOccurred())
		Expect(record.Allergens).To(Equal([]string{"milk", "egg"}))
	})
})

package safety

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("CheckList", func() {
	var (
		allergy   string
		allergens string
		verdict   Verdict
	)

	JustBeforeEach(func() {
		verdict = CheckList(allergy, allergens)
	})

	When("the allergy is listed with different case", func() {
		BeforeEach(func() {
			allergy = "peanut"
			allergens = "Peanut, Milk"
		})

		It("should be unsafe", func() {
			Expect(verdict.Safe).To(BeFalse())
		})

		It("should name the allergen", func() {
			Expect(verdict.Message).To(ContainSubstring("peanut"))
			Expect(verdict.Allergen).To(Equal("peanut"))
		})
	})

	When("the allergy is empty", func() {
		BeforeEach(func() {
			allergy = ""
			allergens = "Peanut"
		})

		It("should be safe", func() {
			Expect(verdict.Safe).To(BeTrue())
			Expect(verdict.Allergen).To(BeEmpty())
		})
	})

	When("the allergy is the None sentinel", func() {
		BeforeEach(func() {
			allergy = "NONE"
			allergens = "Peanut"
		})

		It("should be safe", func() {
			Expect(verdict.Safe).To(BeTrue())
		})
	})

	When("the allergy is a substring of an allergen", func() {
		BeforeEach(func() {
			allergy = "nut"
			allergens = "Nutmeg"
		})

		It("should be safe", func() {
			Expect(verdict.Safe).To(BeTrue())
		})
	})

	When("the product has no allergens", func() {
		BeforeEach(func() {
			allergy = "milk"
			allergens = "None"
		})

		It("should be safe", func() {
			Expect(verdict.Safe).To(BeTrue())
		})
	})

	When("entries carry surrounding whitespace", func() {
		BeforeEach(func() {
			allergy = "  Milk "
			allergens = "Gluten ,   MILK  ,Soy"
		})

		It("should match the trimmed entry", func() {
			Expect(verdict.Safe).To(BeFalse())
			Expect(verdict.Allergen).To(Equal("milk"))
		})
	})
})

var _ = Describe("ParseAllergens", func() {
	It("should normalize, drop blanks and dedupe", func() {
		Expect(ParseAllergens("Peanut, milk,, PEANUT , none")).To(Equal([]string{"peanut", "milk"}))
	})

	It("should return an empty list for None", func() {
		Expect(ParseAllergens("None")).To(BeEmpty())
	})

	It("should return an empty list for an empty string", func() {
		Expect(ParseAllergens("")).To(BeEmpty())
	})
})

package catalog

import (
	"context"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ParseCSV", func() {
	It("should keep source order and line numbers", func() {
		rows, err := ParseCSV(strings.NewReader(fiveProducts))
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(HaveLen(5))
		Expect(rows[0].Name).To(Equal("Bread"))
		Expect(rows[0].Line).To(Equal(2))
		Expect(rows[2].Allergens).To(Equal("Peanut, Soy"))
		Expect(rows[4].Name).To(Equal("Nutmeg"))
	})

	It("should match headers case-insensitively", func() {
		rows, err := ParseCSV(strings.NewReader("\ufeffname,BARCODE,x,y,z\nTea,1,0,0,0\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(rows[0].Barcode).To(Equal("1"))
	})

	It("should pad short rows", func() {
		rows, err := ParseCSV(strings.NewReader("Name,Barcode,X,Y,Z,Allergens\nTea,1\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(rows[0].X).To(BeEmpty())
	})

	It("should reject a header without Name", func() {
		_, err := ParseCSV(strings.NewReader("Barcode,X,Y,Z\n1,0,0,0\n"))
		Expect(err).To(MatchError(ContainSubstring("Name")))
	})

	It("should reject a header without coordinates", func() {
		_, err := ParseCSV(strings.NewReader("Name,Barcode\nTea,1\n"))
		Expect(err).To(HaveOccurred())
	})

	It("should reject an empty file", func() {
		_, err := ParseCSV(strings.NewReader(""))
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("CSVFile", func() {
	It("should report a missing file", func() {
		_, err := NewCSVFile("/nonexistent/products.csv").Rows(context.Background())
		Expect(err).To(HaveOccurred())
	})
})

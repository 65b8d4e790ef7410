package scanning

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/shelf-scanner/internal/scanning/scantest"
)

var _ = Describe("decodeRaster", func() {
	When("the data is empty", func() {
		It("should report a corrupt image", func() {
			_, err := decodeRaster(nil, "image/jpeg")
			Expect(err).To(MatchError(ErrCorruptImage))
		})
	})

	When("the format is unknown", func() {
		It("should report an unsupported corrupt image", func() {
			_, err := decodeRaster([]byte("plain text body"), "")
			Expect(err).To(MatchError(ErrCorruptImage))
			Expect(err).To(MatchError(ErrUnsupportedFormat))
		})
	})

	When("the data is a PNG", func() {
		It("should decode the raster", func() {
			data, err := scantest.BlankPNG()
			Expect(err).NotTo(HaveOccurred())
			img, err := decodeRaster(data, "image/png")
			Expect(err).NotTo(HaveOccurred())
			Expect(img.Bounds().Dx()).To(Equal(128))
		})
	})

	When("HEIC bytes are truncated", func() {
		It("should report a corrupt image", func() {
			data := []byte("\x00\x00\x00\x18ftypheic\x00\x00\x00\x00")
			_, err := decodeRaster(data, "")
			Expect(err).To(MatchError(ErrCorruptImage))
		})
	})

	When("a PDF is unreadable", func() {
		It("should report a corrupt image", func() {
			_, err := decodeRaster([]byte("%PDF-1.4 garbage"), "application/pdf")
			Expect(err).To(MatchError(ErrCorruptImage))
		})
	})
})

var _ = Describe("isHEICFormat", func() {
	It("should detect the heic brand", func() {
		Expect(isHEICFormat([]byte("\x00\x00\x00\x18ftypheic"))).To(BeTrue())
	})

	It("should detect the mif1 brand", func() {
		Expect(isHEICFormat([]byte("\x00\x00\x00\x18ftypmif1"))).To(BeTrue())
	})

	It("should reject short data", func() {
		Expect(isHEICFormat([]byte("ftyp"))).To(BeFalse())
	})
})

var _ = Describe("normalizeMimeType", func() {
	It("should strip parameters and lowercase", func() {
		Expect(normalizeMimeType(nil, "Image/JPEG; charset=binary")).To(Equal("image/jpeg"))
	})

	It("should sniff when the type is missing", func() {
		data, err := scantest.BlankPNG()
		Expect(err).NotTo(HaveOccurred())
		Expect(normalizeMimeType(data, "")).To(Equal("image/png"))
	})

	It("should sniff generic octet streams", func() {
		Expect(normalizeMimeType([]byte("%PDF-1.7\n"), "application/octet-stream")).To(Equal("application/pdf"))
	})
})

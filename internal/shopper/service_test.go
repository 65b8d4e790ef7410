package shopper

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/shelf-scanner/internal/camera"
	"github.com/zombor/shelf-scanner/internal/catalog"
	"github.com/zombor/shelf-scanner/internal/scanning"
	"github.com/zombor/shelf-scanner/internal/scanning/scantest"
	"github.com/zombor/shelf-scanner/internal/session"
)

var _ = Describe("Service", func() {
	var (
		ctx       context.Context
		scanner   *mockScanner
		navigator *mockNavigator
		frames    *camera.FrameCache
		source    *rowSource
		service   *Service
		shopper   Shopper
	)

	BeforeEach(func() {
		ctx = context.Background()
		scanner = newMockScanner()
		navigator = &mockNavigator{}
		frames = camera.NewFrameCache(nil)
		source = &rowSource{rows: storeRows()}
		shopper = Shopper{Name: "Ada", Allergy: "peanut"}

		decoder, err := scanning.NewZXing()
		Expect(err).NotTo(HaveOccurred())
		service = NewService(scanner, catalog.New(source), decoder, frames, navigator)
	})

	Describe("StartScan", func() {
		It("should arm the scanner", func() {
			status, err := service.StartScan(shopper)
			Expect(err).NotTo(HaveOccurred())
			Expect(status.State).To(Equal(session.Scanning))
			Expect(scanner.startCount()).To(Equal(1))
		})

		When("the scanner refuses", func() {
			BeforeEach(func() {
				scanner.startErr = session.ErrShutdown
			})

			It("should return the wrapped error", func() {
				_, err := service.StartScan(shopper)
				Expect(errors.Is(err, session.ErrShutdown)).To(BeTrue())
			})
		})
	})

	Describe("StopScan", func() {
		It("should disarm the scanner", func() {
			_, err := service.StartScan(shopper)
			Expect(err).NotTo(HaveOccurred())

			status := service.StopScan()
			Expect(status.State).To(Equal(session.Idle))
			Expect(scanner.stopCount()).To(Equal(1))
		})
	})

	Describe("Poll", func() {
		var (
			result *PollResult
			err    error
		)

		JustBeforeEach(func() {
			result, err = service.Poll(ctx, shopper)
		})

		When("nothing has been decoded", func() {
			BeforeEach(func() {
				scanner.state = session.Scanning
			})

			It("should report the status without an outcome", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(result.Status.State).To(Equal(session.Scanning))
				Expect(result.Outcome).To(BeNil())
			})
		})

		When("an unsafe product is decoded", func() {
			BeforeEach(func() {
				scanner.decoded("ABC123")
			})

			It("should return an unsafe outcome naming the allergen", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(result.Outcome).NotTo(BeNil())
				Expect(result.Outcome.Kind).To(Equal(OutcomeUnsafe))
				Expect(result.Outcome.Product.Name).To(Equal("Peanut Butter"))
				Expect(result.Outcome.Verdict.Allergen).To(Equal("peanut"))
				Expect(result.Outcome.Symbology).To(Equal(scanning.SymbologyQRCode))
				Expect(result.Outcome.Message).To(Equal("Peanut Butter decoded. UNSAFE: contains peanut. DO NOT EAT."))
			})

			It("should not send the robot", func() {
				Expect(result.Outcome.Navigating).To(BeFalse())
				Expect(navigator.calls()).To(BeEmpty())
			})

			It("should consume the payload", func() {
				again, err := service.Poll(ctx, shopper)
				Expect(err).NotTo(HaveOccurred())
				Expect(again.Outcome).To(BeNil())
			})
		})

		When("a safe product is decoded", func() {
			BeforeEach(func() {
				scanner.decoded("111111")
			})

			It("should return a safe outcome", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(result.Outcome.Kind).To(Equal(OutcomeSafe))
				Expect(result.Outcome.Verdict.Safe).To(BeTrue())
				Expect(result.Outcome.Message).To(Equal("Bread decoded! This product is good to eat. Please follow the robot."))
			})

			It("should send the robot to the product", func() {
				Expect(result.Outcome.Navigating).To(BeTrue())
				Expect(navigator.calls()).To(ConsistOf(catalog.Location{X: 1, Y: 2, Theta: 0}))
			})

			When("the robot bridge fails", func() {
				BeforeEach(func() {
					navigator.err = errors.New("bridge offline")
				})

				It("should still report the verdict", func() {
					Expect(err).NotTo(HaveOccurred())
					Expect(result.Outcome.Kind).To(Equal(OutcomeSafe))
					Expect(result.Outcome.Navigating).To(BeFalse())
				})
			})
		})

		When("the shopper has no allergy", func() {
			BeforeEach(func() {
				shopper.Allergy = "None"
				scanner.decoded("ABC123")
			})

			It("should treat the product as safe", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(result.Outcome.Kind).To(Equal(OutcomeSafe))
			})
		})

		When("the barcode is not in the catalog", func() {
			BeforeEach(func() {
				scanner.decoded("000000")
			})

			It("should return a not found outcome", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(result.Outcome.Kind).To(Equal(OutcomeNotFound))
				Expect(result.Outcome.Product).To(BeNil())
				Expect(result.Outcome.Message).To(Equal("Barcode 000000 decoded, but product not found in the catalog."))
			})
		})

		When("the matching record is malformed", func() {
			BeforeEach(func() {
				scanner.decoded("999999")
			})

			It("should return a malformed record error", func() {
				Expect(errors.Is(err, catalog.ErrMalformedRecord)).To(BeTrue())
				Expect(result).To(BeNil())
			})
		})

		When("the catalog cannot be read", func() {
			BeforeEach(func() {
				source.err = errors.New("disk on fire")
				scanner.decoded("111111")
			})

			It("should return the error", func() {
				Expect(err).To(MatchError(ContainSubstring("disk on fire")))
			})
		})
	})

	Describe("SearchByName", func() {
		It("should match names ignoring case", func() {
			outcome, err := service.SearchByName(ctx, "  peanut BUTTER ", shopper)
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.Kind).To(Equal(OutcomeUnsafe))
			Expect(outcome.Message).To(Equal("Peanut Butter found. UNSAFE: contains peanut. DO NOT EAT."))
		})

		It("should report a missing name", func() {
			outcome, err := service.SearchByName(ctx, "Caviar", shopper)
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.Kind).To(Equal(OutcomeNotFound))
			Expect(outcome.Message).To(Equal("Sorry, 'Caviar' was not found in the catalog."))
		})

		It("should reject an empty name", func() {
			_, err := service.SearchByName(ctx, " ", shopper)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("LookupBarcode", func() {
		It("should resolve without touching the scanner", func() {
			outcome, err := service.LookupBarcode(ctx, "333333", shopper)
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.Kind).To(Equal(OutcomeSafe))
			Expect(outcome.Product.Allergens).To(BeEmpty())
			Expect(scanner.startCount()).To(BeZero())
		})
	})

	Describe("ListProducts", func() {
		It("should separate valid and malformed records", func() {
			records, malformed, err := service.ListProducts(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(3))
			Expect(malformed).To(HaveLen(1))
			Expect(errors.Is(malformed[0], catalog.ErrMalformedRecord)).To(BeTrue())
		})
	})

	Describe("DecodeUpload", func() {
		It("should decode a QR code image", func() {
			data, err := scantest.QRCodePNG("ABC123")
			Expect(err).NotTo(HaveOccurred())

			symbol, err := service.DecodeUpload(data, "image/png")
			Expect(err).NotTo(HaveOccurred())
			Expect(symbol.Payload).To(Equal("ABC123"))
		})

		It("should report a blank image as a miss", func() {
			data, err := scantest.BlankPNG()
			Expect(err).NotTo(HaveOccurred())

			_, err = service.DecodeUpload(data, "image/png")
			Expect(errors.Is(err, scanning.ErrNoSymbol)).To(BeTrue())
		})
	})

	Describe("LatestFrame", func() {
		It("should be empty before the first frame", func() {
			_, ok := service.LatestFrame()
			Expect(ok).To(BeFalse())
		})

		It("should return the cached frame", func() {
			frames.Store([]byte("jpeg bytes"), "image/jpeg")
			frame, ok := service.LatestFrame()
			Expect(ok).To(BeTrue())
			Expect(frame.Data).To(Equal([]byte("jpeg bytes")))
		})
	})
})

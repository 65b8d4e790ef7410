package camera

import (
	"path/filepath"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("FrameCache", func() {
	var cache *FrameCache

	BeforeEach(func() {
		cache = NewFrameCache(nil)
	})

	When("nothing has been stored", func() {
		It("should report no frame", func() {
			_, ok := cache.Latest()
			Expect(ok).To(BeFalse())
		})
	})

	When("frames are stored", func() {
		BeforeEach(func() {
			cache.Store([]byte("first"), "")
			cache.Store([]byte("second"), "image/png")
		})

		It("should hold only the latest frame", func() {
			frame, ok := cache.Latest()
			Expect(ok).To(BeTrue())
			Expect(frame.Data).To(Equal([]byte("second")))
			Expect(frame.ContentType).To(Equal("image/png"))
			Expect(frame.FetchedAt).NotTo(BeZero())
		})
	})

	When("a frame is stored without a content type", func() {
		It("should default to JPEG", func() {
			cache.Store([]byte("x"), "")
			frame, _ := cache.Latest()
			Expect(frame.ContentType).To(Equal("image/jpeg"))
		})
	})

	When("readers race the writer", func() {
		It("should always see a whole frame", func() {
			var wg sync.WaitGroup
			for i := 0; i < 4; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					defer GinkgoRecover()
					for j := 0; j < 200; j++ {
						if frame, ok := cache.Latest(); ok {
							Expect(frame.Data).To(HaveLen(5))
						}
					}
				}()
			}
			for j := 0; j < 200; j++ {
				cache.Store([]byte("frame"), "")
			}
			wg.Wait()
		})
	})

	When("a mirror is configured", func() {
		var (
			dir     string
			storage *LocalStorage
		)

		BeforeEach(func() {
			dir = GinkgoT().TempDir()
			var err error
			storage, err = NewLocalStorage(dir)
			Expect(err).NotTo(HaveOccurred())
			cache = NewFrameCache(storage)
			cache.Store([]byte("one"), "")
			cache.Store([]byte("two"), "")
		})

		It("should overwrite a single file", func() {
			data, err := storage.Get(MirrorFilename)
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(Equal([]byte("two")))

			matches, err := filepath.Glob(filepath.Join(dir, "*"))
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(1))
		})
	})
})

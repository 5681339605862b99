package scanning

import (
	"bytes"
	"image/color"

	"github.com/disintegration/imaging"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("PrepareImage", func() {
	var (
		data        []byte
		contentType string
		out         []byte
		mimeType    string
		err         error
	)

	BeforeEach(func() {
		contentType = ""
	})

	JustBeforeEach(func() {
		out, mimeType, err = PrepareImage(data, contentType)
	})

	When("the upload is already a PNG", func() {
		BeforeEach(func() {
			data = receiptLikePNG(20, 20)
			contentType = "image/png"
		})

		It("passes it through", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(mimeType).To(Equal("image/png"))
			Expect(out).To(Equal(data))
		})
	})

	When("the upload is a JPEG sent as octet-stream", func() {
		BeforeEach(func() {
			img := imaging.New(16, 12, color.NRGBA{R: 200, G: 200, B: 200, A: 255})
			var buf bytes.Buffer
			Expect(imaging.Encode(&buf, img, imaging.JPEG)).To(Succeed())
			data = buf.Bytes()
			contentType = "application/octet-stream"
		})

		It("re-encodes it as PNG", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(mimeType).To(Equal("image/png"))

			img, err := imaging.Decode(bytes.NewReader(out))
			Expect(err).NotTo(HaveOccurred())
			Expect(img.Bounds().Dx()).To(Equal(16))
			Expect(img.Bounds().Dy()).To(Equal(12))
		})
	})

	When("the upload is empty", func() {
		BeforeEach(func() {
			data = nil
		})

		It("returns ErrUnsupportedFormat", func() {
			Expect(err).To(MatchError(ErrUnsupportedFormat))
		})
	})

	When("the upload is not an image", func() {
		BeforeEach(func() {
			data = []byte("just some text, not a receipt")
			contentType = "text/plain; charset=utf-8"
		})

		It("returns ErrUnsupportedFormat", func() {
			Expect(err).To(MatchError(ErrUnsupportedFormat))
			Expect(out).To(BeNil())
		})
	})
})

var _ = Describe("isHEICFormat", func() {
	DescribeTable("brands",
		func(header []byte, expected bool) {
			Expect(isHEICFormat(header)).To(Equal(expected))
		},
		Entry("heic", append([]byte{0, 0, 0, 24}, []byte("ftypheic")...), true),
		Entry("mif1", append([]byte{0, 0, 0, 24}, []byte("ftypmif1")...), true),
		Entry("mp4", append([]byte{0, 0, 0, 24}, []byte("ftypisom")...), false),
		Entry("too short", []byte("ftyp"), false),
	)
})

var _ = Describe("normalizeMimeType", func() {
	It("strips parameters", func() {
		Expect(normalizeMimeType("Image/JPEG; q=0.9", nil)).To(Equal("image/jpeg"))
	})

	It("sniffs missing types", func() {
		Expect(normalizeMimeType("", receiptLikePNG(4, 4))).To(Equal("image/png"))
	})
})

package scanning

import (
	"bytes"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// receiptLikePNG draws dark bars on a light background
func receiptLikePNG(w, h int) []byte {
	img := imaging.New(w, h, color.NRGBA{R: 230, G: 225, B: 220, A: 255})
	for y := 2; y < h-2; y += 6 {
		for x := 2; x < w-2; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 30, G: 30, B: 40, A: 255})
			img.SetNRGBA(x, y+1, color.NRGBA{R: 30, G: 30, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	Expect(imaging.Encode(&buf, img, imaging.PNG)).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("OtsuThreshold", func() {
	var hist [256]int

	BeforeEach(func() {
		hist = [256]int{}
	})

	When("the histogram has two well separated peaks", func() {
		BeforeEach(func() {
			hist[40] = 300
			hist[45] = 200
			hist[200] = 400
			hist[210] = 100
		})

		It("places the threshold between the peaks", func() {
			t := OtsuThreshold(hist)
			Expect(t).To(BeNumerically(">=", 45))
			Expect(t).To(BeNumerically("<", 200))
		})

		It("returns the same threshold every time", func() {
			Expect(OtsuThreshold(hist)).To(Equal(OtsuThreshold(hist)))
		})
	})

	When("the classes are tied over a range", func() {
		BeforeEach(func() {
			hist[50] = 100
			hist[200] = 100
		})

		It("keeps the lowest maximizing threshold", func() {
			Expect(OtsuThreshold(hist)).To(Equal(uint8(50)))
		})
	})

	When("every pixel has the same intensity", func() {
		BeforeEach(func() {
			hist[128] = 1000
		})

		It("returns zero", func() {
			Expect(OtsuThreshold(hist)).To(Equal(uint8(0)))
		})
	})

	When("the histogram is empty", func() {
		It("returns zero", func() {
			Expect(OtsuThreshold(hist)).To(Equal(uint8(0)))
		})
	})
})

var _ = Describe("Preprocess", func() {
	var (
		input  []byte
		output []byte
	)

	JustBeforeEach(func() {
		output = Preprocess(input)
	})

	When("the input is empty", func() {
		BeforeEach(func() {
			input = []byte{}
		})

		It("returns the original bytes", func() {
			Expect(output).To(Equal(input))
		})
	})

	When("the input is not an image", func() {
		BeforeEach(func() {
			input = []byte("definitely not an image")
		})

		It("returns the original bytes", func() {
			Expect(output).To(Equal(input))
		})
	})

	When("the input is a valid image", func() {
		BeforeEach(func() {
			input = receiptLikePNG(40, 30)
		})

		It("returns a different image", func() {
			Expect(output).NotTo(Equal(input))
		})

		It("doubles the dimensions", func() {
			img, _, err := image.Decode(bytes.NewReader(output))
			Expect(err).NotTo(HaveOccurred())
			Expect(img.Bounds().Dx()).To(Equal(80))
			Expect(img.Bounds().Dy()).To(Equal(60))
		})

		It("produces a grayscale image", func() {
			img, err := imaging.Decode(bytes.NewReader(output))
			Expect(err).NotTo(HaveOccurred())
			r, g, b, _ := img.At(10, 10).RGBA()
			Expect(r).To(Equal(g))
			Expect(g).To(Equal(b))
		})
	})
})

var _ = Describe("binarize", func() {
	It("maps pixels to pure black or white around the threshold", func() {
		img := imaging.New(2, 1, color.Black)
		img.SetNRGBA(0, 0, color.NRGBA{R: 100, G: 100, B: 100, A: 255})
		img.SetNRGBA(1, 0, color.NRGBA{R: 101, G: 101, B: 101, A: 255})

		out := binarize(img, 100)
		Expect(out.NRGBAAt(0, 0)).To(Equal(color.NRGBA{A: 255}))
		Expect(out.NRGBAAt(1, 0)).To(Equal(color.NRGBA{R: 255, G: 255, B: 255, A: 255}))
	})
})

package scanning

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"log/slog"

	"github.com/disintegration/imaging"
)

const (
	// contrast boost in percent, as accepted by imaging.AdjustContrast
	preprocessContrast = 30
	// sigma of the blur applied after binarization
	preprocessBlurSigma = 1.0
)

// sharpenKernel is a 3x3 laplacian sharpen
var sharpenKernel = [9]float64{
	0, -1, 0,
	-1, 5, -1,
	0, -1, 0,
}

// Preprocess prepares a receipt image for the OCR engine: grayscale,
// contrast, histogram stretch, sharpen, Otsu binarization, blur and a 2x
// upscale. Preprocessing is best-effort; on any failure the input is
// returned unchanged.
func Preprocess(data []byte) []byte {
	out, err := preprocess(data)
	if err != nil {
		slog.Warn("preprocessing failed, using original image", "error", err)
		return data
	}
	return out
}

func preprocess(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image")
	}

	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	b := src.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("image has no pixels")
	}

	img := imaging.Grayscale(src)
	img = imaging.AdjustContrast(img, preprocessContrast)
	img = stretchHistogram(img)
	img = imaging.Convolve3x3(img, sharpenKernel, nil)

	threshold := OtsuThreshold(intensityHistogram(img))
	img = binarize(img, threshold)
	img = imaging.Blur(img, preprocessBlurSigma)
	img = imaging.Resize(img, b.Dx()*2, b.Dy()*2, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encoding image: %w", err)
	}
	return buf.Bytes(), nil
}

// OtsuThreshold returns the intensity that maximizes the between-class
// variance of the histogram. Pixels at or below the threshold form the
// background class. Ties keep the lowest threshold.
func OtsuThreshold(hist [256]int) uint8 {
	var total, sum float64
	for i, n := range hist {
		total += float64(n)
		sum += float64(i) * float64(n)
	}

	var (
		sumB, wB, best float64
		threshold      int
	)
	for i, n := range hist {
		wB += float64(n)
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(i) * float64(n)

		mB := sumB / wB
		mF := (sum - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			threshold = i
		}
	}
	return uint8(threshold)
}

// intensityHistogram counts pixel intensities of a grayscale image
func intensityHistogram(img *image.NRGBA) [256]int {
	var hist [256]int
	b := img.Bounds()
	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+b.Dx()*4]
		for x := 0; x < len(row); x += 4 {
			hist[row[x]]++
		}
	}
	return hist
}

// stretchHistogram maps the darkest pixel to black and the brightest to white
func stretchHistogram(img *image.NRGBA) *image.NRGBA {
	hist := intensityHistogram(img)
	lo, hi := 0, 255
	for lo < 255 && hist[lo] == 0 {
		lo++
	}
	for hi > 0 && hist[hi] == 0 {
		hi--
	}
	if hi <= lo {
		return img
	}

	scale := 255.0 / float64(hi-lo)
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		v := uint8((float64(c.R)-float64(lo))*scale + 0.5)
		return color.NRGBA{R: v, G: v, B: v, A: c.A}
	})
}

func binarize(img *image.NRGBA, threshold uint8) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		if c.R > threshold {
			return color.NRGBA{R: 255, G: 255, B: 255, A: 255}
		}
		return color.NRGBA{A: 255}
	})
}

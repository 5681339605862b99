package scanning

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/otiai10/gosseract/v2"
)

type fakeOCRClient struct {
	text      string
	textErr   error
	imageErr  error
	boxes     []gosseract.BoundingBox
	languages []string
	whitelist string
	psm       gosseract.PageSegMode
	variables map[gosseract.SettableVariable]string
	closed    bool
}

func (f *fakeOCRClient) SetLanguage(langs ...string) error {
	f.languages = langs
	return nil
}

func (f *fakeOCRClient) SetWhitelist(whitelist string) error {
	f.whitelist = whitelist
	return nil
}

func (f *fakeOCRClient) SetPageSegMode(mode gosseract.PageSegMode) error {
	f.psm = mode
	return nil
}

func (f *fakeOCRClient) SetVariable(key gosseract.SettableVariable, value string) error {
	if f.variables == nil {
		f.variables = map[gosseract.SettableVariable]string{}
	}
	f.variables[key] = value
	return nil
}

func (f *fakeOCRClient) SetImageFromBytes(_ []byte) error { return f.imageErr }

func (f *fakeOCRClient) Text() (string, error) { return f.text, f.textErr }

func (f *fakeOCRClient) GetBoundingBoxes(_ gosseract.PageIteratorLevel) ([]gosseract.BoundingBox, error) {
	return f.boxes, nil
}

func (f *fakeOCRClient) Close() error {
	f.closed = true
	return nil
}

var _ = Describe("Tesseract", func() {
	var (
		client     *fakeOCRClient
		recognizer *Tesseract
		created    int
		ctx        context.Context
		out        OCRText
	)

	BeforeEach(func() {
		client = &fakeOCRClient{
			text:  "ARROZ BRANCO 5KG   25,90",
			boxes: []gosseract.BoundingBox{{Word: "ARROZ", Confidence: 90}, {Word: "25,90", Confidence: 70}},
		}
		created = 0
		ctx = context.Background()
		recognizer = NewTesseract("por+eng", "")
		recognizer.newClient = func() ocrClient {
			created++
			return client
		}
	})

	JustBeforeEach(func() {
		out = recognizer.Recognize(ctx, []byte("png"))
	})

	It("returns the text with the mean word confidence", func() {
		Expect(out.Text).To(Equal("ARROZ BRANCO 5KG   25,90"))
		Expect(out.Confidence).To(Equal(80.0))
	})

	It("configures the engine for a receipt", func() {
		Expect(client.languages).To(Equal([]string{"por", "eng"}))
		Expect(client.whitelist).To(Equal(ocrWhitelist))
		Expect(client.psm).To(Equal(gosseract.PSM_SINGLE_BLOCK))
		Expect(client.variables).To(HaveKeyWithValue(gosseract.SettableVariable("preserve_interword_spaces"), "1"))
	})

	It("releases the engine", func() {
		Expect(client.closed).To(BeTrue())
	})

	When("the engine cannot read the image", func() {
		BeforeEach(func() {
			client.imageErr = errors.New("leptonica failed to read image")
		})

		It("returns empty text", func() {
			Expect(out).To(Equal(OCRText{}))
		})

		It("still releases the engine", func() {
			Expect(client.closed).To(BeTrue())
		})
	})

	When("recognition fails", func() {
		BeforeEach(func() {
			client.textErr = errors.New("recognition failed")
		})

		It("returns empty text and releases the engine", func() {
			Expect(out).To(Equal(OCRText{}))
			Expect(client.closed).To(BeTrue())
		})
	})

	When("no words are found", func() {
		BeforeEach(func() {
			client.boxes = nil
		})

		It("reports zero confidence", func() {
			Expect(out.Confidence).To(BeZero())
		})
	})

	When("the context is already cancelled", func() {
		BeforeEach(func() {
			cancelled, cancel := context.WithCancel(context.Background())
			cancel()
			ctx = cancelled
		})

		It("does not start the engine", func() {
			Expect(out).To(Equal(OCRText{}))
			Expect(created).To(Equal(0))
		})
	})

	It("defaults to Portuguese", func() {
		Expect(NewTesseract("", "").languages).To(Equal([]string{"por"}))
	})
})

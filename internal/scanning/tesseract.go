package scanning

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// ocrWhitelist limits recognition to what is printed on a Brazilian receipt
const ocrWhitelist = "0123456789" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz" +
	"ÁÀÂÃÉÊÍÓÔÕÚÜÇáàâãéêíóôõúüç" +
	" ,.-+*xXR$%()/:&"

// OCRText is the raw engine output for one image
type OCRText struct {
	Text string
	// Mean word confidence, 0-100
	Confidence float64
}

// TextRecognizer runs classical OCR over an image
type TextRecognizer interface {
	Recognize(ctx context.Context, image []byte) OCRText
}

// ocrClient is the part of *gosseract.Client used per recognition
type ocrClient interface {
	SetLanguage(langs ...string) error
	SetWhitelist(whitelist string) error
	SetPageSegMode(mode gosseract.PageSegMode) error
	SetVariable(key gosseract.SettableVariable, value string) error
	SetImageFromBytes(data []byte) error
	Text() (string, error)
	GetBoundingBoxes(level gosseract.PageIteratorLevel) ([]gosseract.BoundingBox, error)
	Close() error
}

// Tesseract implements TextRecognizer with a fresh gosseract client per call
type Tesseract struct {
	languages []string
	newClient func() ocrClient
}

// NewTesseract creates a Tesseract recognizer. language defaults to "por";
// several languages can be joined with '+'.
func NewTesseract(language, tessdataPrefix string) *Tesseract {
	if language == "" {
		language = "por"
	}
	return &Tesseract{
		languages: strings.Split(language, "+"),
		newClient: func() ocrClient {
			client := gosseract.NewClient()
			if tessdataPrefix != "" {
				client.SetTessdataPrefix(tessdataPrefix)
			}
			return client
		},
	}
}

// Recognize returns the text found in image. Engine failures are logged and
// reported as empty text with zero confidence.
func (t *Tesseract) Recognize(ctx context.Context, image []byte) OCRText {
	out, err := t.recognize(ctx, image)
	if err != nil {
		slog.Error("ocr engine failed", "error", err)
		return OCRText{}
	}
	return out
}

func (t *Tesseract) recognize(ctx context.Context, image []byte) (OCRText, error) {
	if err := ctx.Err(); err != nil {
		return OCRText{}, err
	}

	client := t.newClient()
	defer client.Close()

	if err := client.SetLanguage(t.languages...); err != nil {
		return OCRText{}, fmt.Errorf("setting language: %w", err)
	}
	if err := client.SetWhitelist(ocrWhitelist); err != nil {
		return OCRText{}, fmt.Errorf("setting whitelist: %w", err)
	}
	// a receipt is one dense block of text
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		return OCRText{}, fmt.Errorf("setting page segmentation: %w", err)
	}
	if err := client.SetVariable(gosseract.SettableVariable("preserve_interword_spaces"), "1"); err != nil {
		return OCRText{}, fmt.Errorf("setting preserve_interword_spaces: %w", err)
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return OCRText{}, fmt.Errorf("setting image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return OCRText{}, fmt.Errorf("recognizing text: %w", err)
	}

	return OCRText{
		Text:       text,
		Confidence: meanWordConfidence(client),
	}, nil
}

func meanWordConfidence(c ocrClient) float64 {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence
	}
	return sum / float64(len(boxes))
}

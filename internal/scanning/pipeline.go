package scanning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Pipeline runs the extraction strategies in order: the vision model first,
// then preprocessing, OCR and the heuristic parser, and finally a raw-text
// fallback. Extract never fails.
type Pipeline struct {
	vision     *VisionExtractor
	recognizer TextRecognizer
	parser     *Parser
	preprocess func([]byte) []byte
	scanQRCode bool
}

// PipelineOption customizes a Pipeline
type PipelineOption func(*Pipeline)

// WithoutQRCode disables NFC-e QR code enrichment
func WithoutQRCode() PipelineOption {
	return func(p *Pipeline) { p.scanQRCode = false }
}

// NewPipeline creates a Pipeline. vision may be nil, in which case only the
// OCR path runs.
func NewPipeline(vision *VisionExtractor, recognizer TextRecognizer, limits Limits, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		vision:     vision,
		recognizer: recognizer,
		parser:     NewParser(limits),
		preprocess: Preprocess,
		scanQRCode: true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Extract returns the best extraction available for image
func (p *Pipeline) Extract(ctx context.Context, image []byte) (result *ExtractionResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("extraction panicked", "panic", fmt.Sprint(r))
			result = rawFallback("", 0)
		}
	}()

	result, err := p.vision.Extract(ctx, image)
	switch {
	case err == nil:
		slog.Info("using vision extraction", "items", len(result.Items))
	case errors.Is(err, ErrVisionDisabled):
		slog.Info("vision extraction disabled, using OCR engine")
	default:
		slog.Warn("vision extraction failed, using OCR engine", "kind", KindOf(err), "error", err)
	}

	if result == nil {
		result, err = p.extractWithEngine(ctx, image)
		if err != nil {
			slog.Warn("no items extracted, returning raw text", "kind", KindOf(err))
			return rawFallback(result.RawText, result.OCRConfidence)
		}
	}

	p.enrich(image, result)
	return result
}

// extractWithEngine runs preprocessing, OCR and parsing. The parsed result is
// always returned so its raw text can be used by the caller.
func (p *Pipeline) extractWithEngine(ctx context.Context, image []byte) (*ExtractionResult, error) {
	if p.recognizer == nil {
		return &ExtractionResult{}, &StageError{Stage: "ocr", Kind: KindNotConfigured, Err: errors.New("no text recognizer")}
	}

	ocr := p.recognizer.Recognize(ctx, p.preprocess(image))
	slog.Info("ocr complete", "chars", len(ocr.Text), "confidence", ocr.Confidence)

	result := p.parser.Parse(ocr.Text)
	result.OCRConfidence = ocr.Confidence
	if len(result.Items) == 0 {
		return result, &StageError{Stage: "parser", Kind: KindNoItems, Err: errors.New("no items recognized")}
	}
	return result, nil
}

// enrich fills gaps from the NFC-e QR code and assigns an expense category
func (p *Pipeline) enrich(image []byte, result *ExtractionResult) {
	if p.scanQRCode {
		qr, err := scanFiscalQRCode(image)
		if err != nil {
			slog.Debug("no fiscal qr code", "error", err)
		} else {
			qr.apply(&result.Metadata)
		}
	}
	result.Metadata.Category = DetectCategory(result.Metadata.Establishment)
}

func rawFallback(text string, ocrConfidence float64) *ExtractionResult {
	return &ExtractionResult{
		Items:         []LineItem{},
		Confidence:    ConfidenceLow,
		Method:        MethodRawFallback,
		RawText:       text,
		OCRConfidence: ocrConfidence,
	}
}

// Close releases the vision model client
func (p *Pipeline) Close() error {
	return p.vision.Close()
}

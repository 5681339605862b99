package scanning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
)

// ErrVisionDisabled is returned when no vision model is configured
var ErrVisionDisabled = errors.New("vision extraction not configured")

// ErrorKind classifies why a stage produced no result
type ErrorKind string

const (
	KindNotConfigured     ErrorKind = "not_configured"
	KindInvalidCredential ErrorKind = "invalid_credential"
	KindRateLimited       ErrorKind = "rate_limited"
	KindQuotaExceeded     ErrorKind = "quota_exceeded"
	KindMalformedResponse ErrorKind = "malformed_response"
	KindUpstream          ErrorKind = "upstream"
	KindNoItems           ErrorKind = "no_items"
)

// StageError is a classified failure of one pipeline stage
type StageError struct {
	Stage string
	Kind  ErrorKind
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %s: %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// KindOf returns the ErrorKind of err, or KindUpstream when it is unclassified
func KindOf(err error) ErrorKind {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUpstream
}

// VisionModel is a multimodal model that answers a prompt about an image
type VisionModel interface {
	Name() string
	Generate(ctx context.Context, image []byte, mimeType, prompt string) (string, error)
	Close() error
}

// VisionExtractor reads line items straight from the image with a vision model
type VisionExtractor struct {
	model  VisionModel
	limits Limits
}

// NewVisionExtractor creates a VisionExtractor. A nil model disables the stage.
func NewVisionExtractor(model VisionModel, limits Limits) *VisionExtractor {
	return &VisionExtractor{model: model, limits: limits}
}

// Extract returns the validated items found by the model. Every failure is
// returned as a *StageError.
func (v *VisionExtractor) Extract(ctx context.Context, image []byte) (*ExtractionResult, error) {
	if v == nil || v.model == nil {
		return nil, &StageError{Stage: "vision", Kind: KindNotConfigured, Err: ErrVisionDisabled}
	}

	mimeType := http.DetectContentType(image)
	text, err := v.model.Generate(ctx, image, mimeType, visionExtractionPrompt)
	if err != nil {
		return nil, &StageError{Stage: "vision", Kind: classifyVisionError(err), Err: fmt.Errorf("%s: %w", v.model.Name(), err)}
	}

	result, err := parseVisionResponse(text, v.limits)
	if err != nil {
		return nil, &StageError{Stage: "vision", Kind: KindMalformedResponse, Err: err}
	}
	if len(result.Items) == 0 {
		return nil, &StageError{Stage: "vision", Kind: KindNoItems, Err: errors.New("model returned no valid items")}
	}

	result.Validation = crossCheck(result.Items, result.Metadata.Total, 0, v.limits)
	if pct := result.Validation.PercentDiff; pct != nil && pct.LessThan(v.limits.PerfectMatchPercent) {
		result.Confidence = ConfidenceHigh
	}

	slog.Info("vision extraction succeeded", "model", v.model.Name(), "items", len(result.Items))
	return result, nil
}

// Close releases the underlying model client
func (v *VisionExtractor) Close() error {
	if v == nil || v.model == nil {
		return nil
	}
	return v.model.Close()
}

// classifyVisionError maps provider errors onto an ErrorKind
func classifyVisionError(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindUpstream
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if kind := kindFromStatus(gerr.Code, gerr.Message); kind != KindUpstream {
			return kind
		}
	}
	var serr *StatusError
	if errors.As(err, &serr) {
		if kind := kindFromStatus(serr.StatusCode, serr.Body); kind != KindUpstream {
			return kind
		}
	}

	return kindFromMessage(err.Error())
}

func kindFromStatus(code int, message string) ErrorKind {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindInvalidCredential
	case http.StatusTooManyRequests:
		if kindFromMessage(message) == KindQuotaExceeded {
			return KindQuotaExceeded
		}
		return KindRateLimited
	}
	return kindFromMessage(message)
}

func kindFromMessage(msg string) ErrorKind {
	msg = strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "insufficient_quota"), strings.Contains(msg, "quota"):
		return KindQuotaExceeded
	case strings.Contains(msg, "invalid_api_key"), strings.Contains(msg, "api key not valid"),
		strings.Contains(msg, "incorrect api key"), strings.Contains(msg, "unauthorized"),
		strings.Contains(msg, "status code: 401"):
		return KindInvalidCredential
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "resource_exhausted"),
		strings.Contains(msg, "resource exhausted"), strings.Contains(msg, "too many requests"),
		strings.Contains(msg, "status code: 429"):
		return KindRateLimited
	}
	return KindUpstream
}

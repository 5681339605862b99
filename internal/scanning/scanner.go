package scanning

import (
	"context"

	"github.com/shopspring/decimal"
)

// Confidence is a coarse trust level attached to an extraction
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Method records which strategy produced an extraction
type Method string

const (
	MethodVision      Method = "vision"
	MethodEngine      Method = "engine+parser"
	MethodRawFallback Method = "raw-fallback"
)

// PaymentType is the normalized form of payment printed on a receipt
type PaymentType string

const (
	PaymentCredit PaymentType = "credit"
	PaymentDebit  PaymentType = "debit"
	PaymentPix    PaymentType = "pix"
	PaymentCash   PaymentType = "cash"
	PaymentOther  PaymentType = "other"
)

// LineItem is a single purchased product
type LineItem struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Quantity    int             `json:"quantity"`
}

// PaymentMethod is the payment block detected on a receipt
type PaymentMethod struct {
	Type    PaymentType `json:"type"`
	Details string      `json:"details"`
}

// ReceiptMetadata contains the receipt-level fields. Every field is best-effort.
type ReceiptMetadata struct {
	Establishment string           `json:"establishment,omitempty"`
	CNPJ          string           `json:"cnpj,omitempty"` // NN.NNN.NNN/NNNN-NN
	Date          string           `json:"date,omitempty"` // DD/MM/YYYY
	Time          string           `json:"time,omitempty"`
	Total         *decimal.Decimal `json:"total,omitempty"`
	PaymentMethod *PaymentMethod   `json:"paymentMethod,omitempty"`
	AccessKey     string           `json:"accessKey,omitempty"`
	QRCodeURL     string           `json:"qrCodeUrl,omitempty"`
	Category      Category         `json:"category,omitempty"`
}

// IsEmpty reports whether no field was extracted
func (m ReceiptMetadata) IsEmpty() bool {
	return m == ReceiptMetadata{}
}

// Validation holds the cross-check of the item sum against the printed total
type Validation struct {
	ItemsSum     decimal.Decimal  `json:"itemsSum"`
	ReceiptTotal *decimal.Decimal `json:"receiptTotal,omitempty"`
	Difference   *decimal.Decimal `json:"difference,omitempty"`
	PercentDiff  *decimal.Decimal `json:"percentDiff,omitempty"`
}

// ExtractionResult is the envelope returned for every extraction
type ExtractionResult struct {
	Items             []LineItem      `json:"items"`
	Metadata          ReceiptMetadata `json:"metadata"`
	Confidence        Confidence      `json:"confidence"`
	Method            Method          `json:"method"`
	Validation        *Validation     `json:"validation,omitempty"`
	ExpectedItemCount int             `json:"expectedItemCount,omitempty"`
	RawText           string          `json:"rawText,omitempty"`
	OCRConfidence     float64         `json:"ocrConfidence,omitempty"`
}

// Extractor turns receipt image bytes into an ExtractionResult
type Extractor interface {
	Extract(ctx context.Context, image []byte) *ExtractionResult
}

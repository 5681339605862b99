package receipt

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/zombor/receipt-ocr/internal/scanning"
)

// Receipt is a reviewed extraction the user chose to keep
type Receipt struct {
	ID             string                   `json:"id"`
	ExtractionHash string                   `json:"extractionHash,omitempty"`
	Items          []scanning.LineItem      `json:"items"`
	Metadata       scanning.ReceiptMetadata `json:"metadata"`
	Notes          string                   `json:"notes,omitempty"`
	CreatedAt      time.Time                `json:"createdAt"`
	UpdatedAt      time.Time                `json:"updatedAt"`
}

// ItemsTotal sums the item amounts
func (r *Receipt) ItemsTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range r.Items {
		sum = sum.Add(item.Amount)
	}
	return sum
}

// Extraction is a pipeline result keyed by the SHA-256 of the normalized image
type Extraction struct {
	ID        string                     `json:"id"`
	Hash      string                     `json:"hash"`
	Filename  string                     `json:"filename,omitempty"`
	Cached    bool                       `json:"cached"`
	Result    *scanning.ExtractionResult `json:"result"`
	CreatedAt time.Time                  `json:"createdAt"`
}

package scanning

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"
)

// ErrNoJSON is returned when a model reply contains no JSON object
var ErrNoJSON = errors.New("no JSON object found in response")

var isoDateRe = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})`)

type visionItem struct {
	Description string     `json:"description"`
	Quantity    flexAmount `json:"quantity"`
	UnitPrice   flexAmount `json:"unit_price"`
	Total       flexAmount `json:"total"`
	Amount      flexAmount `json:"amount"`
}

type visionMetadata struct {
	Establishment string     `json:"establishment"`
	CNPJ          string     `json:"cnpj"`
	Date          string     `json:"date"`
	Time          string     `json:"time"`
	Total         flexAmount `json:"total"`
	PaymentMethod string     `json:"payment_method"`
}

type visionResponse struct {
	Items      []visionItem   `json:"items"`
	Metadata   visionMetadata `json:"metadata"`
	Confidence string         `json:"confidence"`
}

// extractJSONObject returns the span from the first '{' to the last '}'
func extractJSONObject(text string) (string, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")

	start := strings.Index(text, "{")
	if start == -1 {
		return "", ErrNoJSON
	}
	end := strings.LastIndex(text, "}")
	if end == -1 || end < start {
		return "", fmt.Errorf("invalid JSON object in response")
	}
	return text[start : end+1], nil
}

// parseVisionResponse decodes and repairs a model reply. Items that are not
// plausible products are dropped; missing fields are left empty.
func parseVisionResponse(text string, limits Limits) (*ExtractionResult, error) {
	raw, err := extractJSONObject(text)
	if err != nil {
		return nil, err
	}

	var resp visionResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	items := make([]LineItem, 0, len(resp.Items))
	for _, vi := range resp.Items {
		item, ok := vi.lineItem()
		if !ok {
			continue
		}
		if reason := rejectVisionItem(item, limits); reason != "" {
			slog.Info("filtered vision item", "description", item.Description, "amount", item.Amount.String(), "reason", reason)
			continue
		}
		items = append(items, item)
	}
	slog.Info("validated vision items", "returned", len(resp.Items), "kept", len(items))

	return &ExtractionResult{
		Items:      items,
		Metadata:   resp.Metadata.receiptMetadata(),
		Method:     MethodVision,
		Confidence: parseConfidence(resp.Confidence),
	}, nil
}

// lineItem prefers the item total over a generic amount field
func (vi visionItem) lineItem() (LineItem, bool) {
	amount := vi.Total
	if !amount.Valid || amount.Value.IsZero() {
		amount = vi.Amount
	}
	if !amount.Valid {
		return LineItem{}, false
	}

	qty := 1
	if vi.Quantity.Valid && vi.Quantity.Value.IsInteger() && vi.Quantity.Value.IntPart() >= 1 {
		qty = int(vi.Quantity.Value.IntPart())
	}

	return LineItem{
		Description: strings.Join(strings.Fields(vi.Description), " "),
		Amount:      amount.Value,
		Quantity:    qty,
	}, true
}

func rejectVisionItem(item LineItem, limits Limits) string {
	switch {
	case blacklisted(fold(item.Description), visionBlacklist):
		return "non-product keyword"
	case utf8.RuneCountInString(item.Description) < limits.MinDescriptionLen:
		return "description too short"
	case !limits.amountInRange(item.Amount):
		return "amount out of range"
	}
	return ""
}

func (vm visionMetadata) receiptMetadata() ReceiptMetadata {
	meta := ReceiptMetadata{
		Establishment: cleanNull(vm.Establishment),
		Date:          normalizeDate(cleanNull(vm.Date)),
		Time:          findTime([]string{cleanNull(vm.Time)}),
	}
	if cnpj := cleanNull(vm.CNPJ); cnpj != "" {
		meta.CNPJ = formatCNPJ(cnpj)
	}
	if vm.Total.Valid && vm.Total.Value.IsPositive() {
		t := vm.Total.Value
		meta.Total = &t
	}
	if pm := cleanNull(vm.PaymentMethod); pm != "" {
		meta.PaymentMethod = &PaymentMethod{Type: paymentType(pm), Details: pm}
	}
	return meta
}

// cleanNull treats the literal strings models use for "unknown" as empty
func cleanNull(s string) string {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "null", "none", "n/a", "unknown":
		return ""
	}
	return s
}

func paymentType(s string) PaymentType {
	f := fold(s)
	switch PaymentType(strings.ToLower(f)) {
	case PaymentCredit, PaymentDebit, PaymentPix, PaymentCash, PaymentOther:
		return PaymentType(strings.ToLower(f))
	}
	for _, p := range paymentPatterns {
		if p.re.MatchString(f) {
			return p.typ
		}
	}
	return PaymentOther
}

// normalizeDate returns DD/MM/YYYY for the date formats models commonly emit
func normalizeDate(s string) string {
	if s == "" {
		return ""
	}
	if m := isoDateRe.FindStringSubmatch(s); m != nil {
		return fmt.Sprintf("%s/%s/%s", m[3], m[2], m[1])
	}
	return findDate([]string{s})
}

func parseConfidence(s string) Confidence {
	switch c := Confidence(strings.ToLower(strings.TrimSpace(s))); c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return c
	}
	return ConfidenceMedium
}

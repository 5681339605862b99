package scanning

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// amountPattern matches a two-decimal amount, with optional pt-BR thousands groups
const amountPattern = `\d{1,3}(?:\.\d{3})+,\d{2}|\d+[.,]\d{2}`

// parseAmount parses receipt amounts such as "25,90", "1.234,56", "R$ 8.99"
// or "1,234.56". Whichever of '.' and ',' comes last is the decimal separator.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastComma > lastDot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case lastDot >= 0 && lastComma >= 0:
		s = strings.ReplaceAll(s, ",", "")
	case lastDot >= 0 && strings.Count(s, ".") > 1, lastDot >= 0 && len(s)-lastDot-1 == 3:
		s = strings.ReplaceAll(s, ".", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	return d.Round(2), nil
}

// flexAmount decodes a JSON number, a numeric string in either locale, or null.
// Anything unreadable decodes as an invalid amount.
type flexAmount struct {
	Value decimal.Decimal
	Valid bool
}

func (a *flexAmount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) || len(data) == 0 {
		*a = flexAmount{}
		return nil
	}

	if data[0] != '"' {
		d, err := decimal.NewFromString(string(data))
		if err != nil {
			*a = flexAmount{}
			return nil
		}
		*a = flexAmount{Value: d.Round(2), Valid: true}
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if strings.TrimSpace(raw) == "" {
		*a = flexAmount{}
		return nil
	}

	// unreadable strings are treated as missing so one bad field does not
	// discard the whole response
	d, err := parseAmount(raw)
	if err != nil {
		*a = flexAmount{}
		return nil
	}
	*a = flexAmount{Value: d, Valid: true}
	return nil
}

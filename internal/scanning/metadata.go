package scanning

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var itemCountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:QTD|QTDE|QUANTIDADE)\.?\s*TOTAL\s*(?:DE\s*)?(?:ITENS)?[:\s]*(\d+)`),
	regexp.MustCompile(`(?i)TOTAL\s*(?:DE\s*)?ITENS[:\s]*(\d+)`),
	regexp.MustCompile(`(?i)(\d+)\s*(?:ITENS|PRODUTOS)`),
}

// total patterns are tried in order across every line, so "VALOR A PAGAR"
// wins over a plain "TOTAL" printed earlier on the receipt
var totalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`VALOR\s+A\s+PAGAR[:\s]*R?\$?\s*(` + amountPattern + `)`),
	regexp.MustCompile(`(?:^|[^A-Z])(?:VL\.?\s*)?TOTAL(?:\s+R\$)?[:\s]*R?\$?\s*(` + amountPattern + `)`),
}

var (
	cnpjRe         = regexp.MustCompile(`CNPJ[:\s]*(\d{2}\.?\d{3}\.?\d{3}/?\d{4}-?\d{2})`)
	dateRe         = regexp.MustCompile(`(\d{2})[/-](\d{2})[/-](\d{4}|\d{2})`)
	timeRe         = regexp.MustCompile(`\b([01]\d|2[0-3]):([0-5]\d)(?::([0-5]\d))?\b`)
	hourLabelRe    = regexp.MustCompile(`HORA|HORARIO`)
	itemCountLine  = regexp.MustCompile(`ITENS|PRODUTOS`)
	establishSkip  = regexp.MustCompile(`CNPJ|CPF|CEP|INSCRI|DOCUMENTO`)
	numericOnlyRe  = regexp.MustCompile(`^[0-9\-/.\s]+$`)
	establishNeeds = regexp.MustCompile(`[A-Za-z]{3,}`)
)

var paymentPatterns = []struct {
	re  *regexp.Regexp
	typ PaymentType
}{
	{regexp.MustCompile(`CARTAO\s+(?:DE\s+)?CREDITO|CREDITO`), PaymentCredit},
	{regexp.MustCompile(`CARTAO\s+(?:DE\s+)?DEBITO|DEBITO`), PaymentDebit},
	{regexp.MustCompile(`CARTEIRA\s+DIGITAL`), PaymentOther},
	{regexp.MustCompile(`\bPIX\b`), PaymentPix},
	{regexp.MustCompile(`DINHEIRO`), PaymentCash},
}

// expectedItemCount returns the item count printed on the receipt, or 0
func expectedItemCount(lines []string) int {
	for _, line := range lines {
		for _, re := range itemCountPatterns {
			if m := re.FindStringSubmatch(line); m != nil {
				if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
					return n
				}
			}
		}
	}
	return 0
}

// extractMetadata scans every line for receipt-level fields. Each field is
// searched for independently.
func extractMetadata(lines []string) ReceiptMetadata {
	folded := make([]string, len(lines))
	for i, l := range lines {
		folded[i] = fold(l)
	}

	meta := ReceiptMetadata{
		Establishment: establishmentName(lines),
		CNPJ:          findCNPJ(folded),
		Date:          findDate(folded),
		Time:          findTime(folded),
		Total:         findTotal(folded),
		AccessKey:     findAccessKey(lines),
	}

	for i, l := range folded {
		for _, p := range paymentPatterns {
			if p.re.MatchString(l) {
				meta.PaymentMethod = &PaymentMethod{Type: p.typ, Details: lines[i]}
				break
			}
		}
		if meta.PaymentMethod != nil {
			break
		}
	}

	return meta
}

func findTotal(lines []string) *decimal.Decimal {
	for _, re := range totalPatterns {
		for _, l := range lines {
			if strings.Contains(l, "SUBTOTAL") || itemCountLine.MatchString(l) {
				continue
			}
			m := re.FindStringSubmatch(l)
			if m == nil {
				continue
			}
			if d, err := parseAmount(m[1]); err == nil && d.IsPositive() {
				return &d
			}
		}
	}
	return nil
}

func findCNPJ(lines []string) string {
	for _, l := range lines {
		if m := cnpjRe.FindStringSubmatch(l); m != nil {
			return formatCNPJ(m[1])
		}
	}
	return ""
}

// formatCNPJ renders 14 digits as NN.NNN.NNN/NNNN-NN
func formatCNPJ(s string) string {
	d := digitsOnly(s)
	if len(d) != 14 {
		return s
	}
	return fmt.Sprintf("%s.%s.%s/%s-%s", d[0:2], d[2:5], d[5:8], d[8:12], d[12:14])
}

// findAccessKey finds the NFC-e key printed in groups of four digits
func findAccessKey(lines []string) string {
	for _, l := range lines {
		d := digitsOnly(l)
		if len(d) != 44 {
			continue
		}
		if key, err := ParseAccessKey(d); err == nil {
			return key.Key
		}
	}
	return ""
}

func findDate(lines []string) string {
	for _, l := range lines {
		if hourLabelRe.MatchString(l) && !strings.Contains(l, "DATA") {
			continue
		}
		m := dateRe.FindStringSubmatch(l)
		if m == nil {
			continue
		}
		year := m[3]
		if len(year) == 2 {
			yy, _ := strconv.Atoi(year)
			if yy < 50 {
				year = fmt.Sprintf("20%02d", yy)
			} else {
				year = fmt.Sprintf("19%02d", yy)
			}
		}
		return fmt.Sprintf("%s/%s/%s", m[1], m[2], year)
	}
	return ""
}

func findTime(lines []string) string {
	for _, l := range lines {
		if m := timeRe.FindString(l); m != "" {
			return m
		}
	}
	return ""
}

// establishmentName picks the first meaningful line among the first five
func establishmentName(lines []string) string {
	for i := 0; i < len(lines) && i < 5; i++ {
		line := strings.TrimSpace(lines[i])
		f := fold(line)
		if len(line) < 3 || establishSkip.MatchString(f) || numericOnlyRe.MatchString(line) {
			continue
		}
		if establishNeeds.MatchString(f) {
			return line
		}
	}
	return ""
}

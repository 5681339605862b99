package scanning

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// itemMatcher recognizes one receipt item layout. tryMatch is given the
// current line and the one after it, and reports how many lines the match
// consumed.
type itemMatcher interface {
	name() string
	tryMatch(line, next string) (item LineItem, consumed int, ok bool)
}

// defaultMatchers is the order in which layouts are tried; first match wins
func defaultMatchers() []itemMatcher {
	return []itemMatcher{
		multiLineMatcher{},
		multiplicationMatcher{},
		twoColumnMatcher{},
		indexedCodeMatcher{},
	}
}

var (
	// leading item index and/or EAN barcode
	itemPrefixRe = regexp.MustCompile(`^(?:\d{1,4}\s+)?(?:(?:\d{14}|\d{13}|\d{12}|\d{8})\s+)?`)

	productNameRe   = regexp.MustCompile(`[A-Za-z]{3,}`)
	headerLineRe    = regexp.MustCompile(`^(?:TOTAL|SUBTOTAL|PAGAMENTO|FORMA)`)
	priceLineRe     = regexp.MustCompile(`(\d+)\s*((?i:UN|PCT|PC|KG|ML|L|G))\s+(?:[xX×*]\s*)?[\d,.]+\s+[\d,.]+`)
	trailingAmount  = regexp.MustCompile(`(` + amountPattern + `)\s*$`)
	multiplyLineRe  = regexp.MustCompile(`^(.+?)\s+(\d+)\s*(?i:UN|PCT|PC|KG|ML|L|G)?\s*[xX×]\s*([\d,.]+)\s+([\d,.]+)\s*$`)
	twoColumnLineRe = regexp.MustCompile(`^(.+?)\s{2,}(` + amountPattern + `)\s*$`)
	indexedCodeRe   = regexp.MustCompile(`^\d{1,4}\s+(.+?)\s+(` + amountPattern + `)\s*$`)
)

func stripItemPrefix(s string) string {
	return strings.TrimSpace(itemPrefixRe.ReplaceAllString(strings.TrimSpace(s), ""))
}

// countQuantity returns qty for count units and 1 for weights and volumes
func countQuantity(qty, unit string) int {
	switch strings.ToUpper(unit) {
	case "", "UN", "PC", "PCT":
		n, err := strconv.Atoi(qty)
		if err != nil || n < 1 {
			return 1
		}
		return n
	default:
		return 1
	}
}

// multiLineMatcher handles a product name followed by a
// "<qty> <unit> <price> <total>" line:
//
//	001 7891234567890 ARROZ BRANCO 5KG
//	1 UN x 25,90 25,90
type multiLineMatcher struct{}

func (multiLineMatcher) name() string { return "multi-line" }

func (multiLineMatcher) tryMatch(line, next string) (LineItem, int, bool) {
	if next == "" {
		return LineItem{}, 0, false
	}
	folded := fold(line)
	if !productNameRe.MatchString(folded) || headerLineRe.MatchString(folded) {
		return LineItem{}, 0, false
	}
	// a line that already carries its own price is not a name-only line
	if trailingAmount.MatchString(line) {
		return LineItem{}, 0, false
	}

	price := priceLineRe.FindStringSubmatch(next)
	if price == nil {
		return LineItem{}, 0, false
	}
	total := trailingAmount.FindStringSubmatch(next)
	if total == nil {
		return LineItem{}, 0, false
	}

	description := stripItemPrefix(line)
	if !productNameRe.MatchString(fold(description)) {
		return LineItem{}, 0, false
	}
	amount, err := parseAmount(total[1])
	if err != nil {
		return LineItem{}, 0, false
	}

	return LineItem{
		Description: description,
		Amount:      amount,
		Quantity:    countQuantity(price[1], price[2]),
	}, 2, true
}

// multiplicationMatcher handles "NAME  2 UN x 4,50  9,00"
type multiplicationMatcher struct{}

func (multiplicationMatcher) name() string { return "single-line" }

func (multiplicationMatcher) tryMatch(line, _ string) (LineItem, int, bool) {
	m := multiplyLineRe.FindStringSubmatch(line)
	if m == nil {
		return LineItem{}, 0, false
	}
	amount, err := parseAmount(m[4])
	if err != nil {
		return LineItem{}, 0, false
	}

	qty := 1
	if n, err := strconv.Atoi(m[2]); err == nil && n > 0 {
		qty = n
	}
	// weighed items print a fractional quantity; keep the count at 1
	if unitPrice, err := parseAmount(m[3]); err == nil && unitPrice.IsPositive() &&
		!unitPrice.Mul(decimal.NewFromInt(int64(qty))).Equal(amount) {
		qty = 1
	}

	return LineItem{
		Description: stripItemPrefix(m[1]),
		Amount:      amount,
		Quantity:    qty,
	}, 1, true
}

// twoColumnMatcher handles "NAME<two or more spaces>amount"
type twoColumnMatcher struct{}

func (twoColumnMatcher) name() string { return "simple" }

func (twoColumnMatcher) tryMatch(line, _ string) (LineItem, int, bool) {
	m := twoColumnLineRe.FindStringSubmatch(line)
	if m == nil {
		return LineItem{}, 0, false
	}
	amount, err := parseAmount(m[2])
	if err != nil {
		return LineItem{}, 0, false
	}
	return LineItem{Description: stripItemPrefix(m[1]), Amount: amount, Quantity: 1}, 1, true
}

// indexedCodeMatcher handles "NNN NAME amount" with single spacing
type indexedCodeMatcher struct{}

func (indexedCodeMatcher) name() string { return "with-code" }

func (indexedCodeMatcher) tryMatch(line, _ string) (LineItem, int, bool) {
	m := indexedCodeRe.FindStringSubmatch(line)
	if m == nil {
		return LineItem{}, 0, false
	}
	amount, err := parseAmount(m[2])
	if err != nil {
		return LineItem{}, 0, false
	}
	return LineItem{Description: strings.TrimSpace(m[1]), Amount: amount, Quantity: 1}, 1, true
}

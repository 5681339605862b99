package scanning

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

var digitsOnlyLine = regexp.MustCompile(`^\d+$`)

// Parser turns raw OCR text into line items and receipt metadata
type Parser struct {
	limits   Limits
	matchers []itemMatcher
}

// NewParser creates a Parser using the given limits
func NewParser(limits Limits) *Parser {
	return &Parser{
		limits:   limits,
		matchers: defaultMatchers(),
	}
}

// Parse extracts items and metadata from text. It never fails: when nothing
// is recognized the result has no items and low confidence.
func (p *Parser) Parse(text string) *ExtractionResult {
	lines := splitLines(text)

	result := &ExtractionResult{
		Items:             []LineItem{},
		Method:            MethodEngine,
		Confidence:        ConfidenceLow,
		ExpectedItemCount: expectedItemCount(lines),
		RawText:           text,
	}

	var items []LineItem
	for i := 0; i < len(lines); {
		line := lines[i]
		next := ""
		if i+1 < len(lines) {
			next = lines[i+1]
		}

		if p.skipLine(line) {
			i++
			continue
		}

		item, consumed, ok := p.match(line, next)
		if !ok {
			i++
			continue
		}
		items = append(items, item)
		i += consumed
	}

	result.Items = dedupeItems(items)
	if removed := len(items) - len(result.Items); removed > 0 {
		slog.Info("removed duplicate items", "count", removed)
	}

	result.Metadata = extractMetadata(lines)
	result.Validation = crossCheck(result.Items, result.Metadata.Total, result.ExpectedItemCount, p.limits)

	if len(result.Items) > 0 {
		result.Confidence = ConfidenceMedium
	}

	return result
}

func (p *Parser) skipLine(line string) bool {
	if utf8.RuneCountInString(line) < 3 || digitsOnlyLine.MatchString(line) {
		return true
	}
	return blacklisted(fold(line), p.limits.Blacklist)
}

// match runs the matchers in priority order. A match that fails item
// validation counts as no match and the next matcher is tried.
func (p *Parser) match(line, next string) (LineItem, int, bool) {
	for _, m := range p.matchers {
		item, consumed, ok := m.tryMatch(line, next)
		if !ok {
			continue
		}
		if !p.validItem(item) {
			slog.Debug("discarding implausible item", "matcher", m.name(), "description", item.Description, "amount", item.Amount.String())
			continue
		}
		return item, consumed, true
	}
	return LineItem{}, 0, false
}

func (p *Parser) validItem(item LineItem) bool {
	if utf8.RuneCountInString(item.Description) <= p.limits.MinDescriptionLen {
		return false
	}
	if !hasLetter(item.Description) {
		return false
	}
	return p.limits.amountInRange(item.Amount)
}

// dedupeItems drops repeated description+amount pairs, keeping the first
func dedupeItems(items []LineItem) []LineItem {
	out := make([]LineItem, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		key := strings.ToLower(it.Description) + "|" + it.Amount.StringFixed(2)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, it)
	}
	return out
}

// crossCheck compares the item sum against the receipt total and the printed
// item count. The outcome is only logged and reported, never enforced.
func crossCheck(items []LineItem, total *decimal.Decimal, expected int, limits Limits) *Validation {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.Amount)
	}
	v := &Validation{ItemsSum: sum.Round(2)}

	if expected > 0 {
		switch n := len(items); {
		case n == expected:
			slog.Info("item count matches receipt", "items", n, "expected", expected)
		case n < expected:
			slog.Warn("item count below receipt count", "items", n, "expected", expected, "missing", expected-n)
		default:
			slog.Warn("item count above receipt count", "items", n, "expected", expected, "extra", n-expected)
		}
	}

	if total == nil || !total.IsPositive() {
		return v
	}

	t := total.Round(2)
	diff := sum.Sub(t).Abs().Round(2)
	pct := diff.Div(t).Mul(decimal.NewFromInt(100)).Round(2)
	v.ReceiptTotal = &t
	v.Difference = &diff
	v.PercentDiff = &pct

	if len(items) == 0 {
		return v
	}
	switch {
	case pct.LessThan(limits.PerfectMatchPercent):
		slog.Info("item sum matches receipt total", "sum", v.ItemsSum.StringFixed(2), "total", t.StringFixed(2))
	case pct.GreaterThan(limits.MismatchPercent):
		slog.Warn("item sum does not match receipt total", "sum", v.ItemsSum.StringFixed(2), "total", t.StringFixed(2), "percent_diff", pct.StringFixed(2))
	}
	return v
}

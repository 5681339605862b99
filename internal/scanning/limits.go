package scanning

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Limits holds the empirical thresholds used to tell products from noise.
// The defaults were tuned on Brazilian NFC-e receipts.
type Limits struct {
	// Item amounts must fall strictly inside (MinAmount, MaxAmount)
	MinAmount decimal.Decimal
	MaxAmount decimal.Decimal
	// Descriptions must be longer than this many characters
	MinDescriptionLen int
	// Item sum vs total difference (percent) above which a mismatch is logged
	MismatchPercent decimal.Decimal
	// Difference (percent) below which the sum is considered a perfect match
	PerfectMatchPercent decimal.Decimal
	// Substrings marking a line as a non-product line, compared after accent folding
	Blacklist []string
}

// DefaultLimits returns the thresholds used when none are configured
func DefaultLimits() Limits {
	return Limits{
		MinAmount:           decimal.RequireFromString("0.01"),
		MaxAmount:           decimal.NewFromInt(50000),
		MinDescriptionLen:   3,
		MismatchPercent:     decimal.NewFromInt(10),
		PerfectMatchPercent: decimal.NewFromInt(1),
		Blacklist:           append([]string(nil), defaultBlacklist...),
	}
}

var defaultBlacklist = []string{
	"CARTEIRA DIGITAL",
	"FORMA DE PAGAMENTO",
	"FORMA PAGAMENTO",
	"CARTAO",
	"DEBITO",
	"CREDITO",
	"PIX",
	"DINHEIRO",
	"TROCO",
	"CNPJ",
	"CPF",
	"EMITENTE",
	"CONSUMIDOR",
	"ENDERECO",
	"TELEFONE",
	"QTD TOTAL",
	"QTDE TOTAL",
	"TOTAL DE ITENS",
	"QUANTIDADE TOTAL",
	"VALOR A PAGAR",
	"SUBTOTAL",
	"TOTAL",
	"DESCONTO",
	"ACRESCIMO",
	"NFC-E",
	"SAT",
	"SERIE",
	"PROTOCOLO",
	"CHAVE",
	"DANFE",
	"DATA",
	"HORA",
	"DOCUMENTO",
	"TRIBUTOS",
	"ARREDONDAMENTO",
	"VENDEDOR",
	"OPERADOR",
	"CAIXA",
	"ESTABELECIMENTO",
	"CODIGO",
	"DESCRICAO",
	"QTDE",
	"VL.UNIT",
	"VL.TOTAL",
}

// visionBlacklist filters descriptions returned by the vision model
var visionBlacklist = []string{
	"CARTEIRA DIGITAL",
	"CARTAO",
	"DEBITO",
	"CREDITO",
	"PIX",
	"DINHEIRO",
	"TROCO",
	"PAGAMENTO",
	"TOTAL",
	"SUBTOTAL",
	"DESCONTO",
	"ACRESCIMO",
	"VALOR A PAGAR",
	"FORMA DE PAGAMENTO",
	"CNPJ",
	"CPF",
	"EMITENTE",
	"CONSUMIDOR",
	"ENDERECO",
	"DATA",
	"HORA",
	"NFC-E",
	"SAT",
	"SERIE",
	"PROTOCOLO",
	"VENDEDOR",
	"OPERADOR",
	"CAIXA",
}

// amountInRange reports whether a lies strictly inside the configured range
func (l Limits) amountInRange(a decimal.Decimal) bool {
	return a.GreaterThan(l.MinAmount) && a.LessThan(l.MaxAmount)
}

// blacklisted reports whether the folded line contains any blacklisted
// keyword, including inside longer words such as "DESCONTOS"
func blacklisted(folded string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(folded, kw) {
			return true
		}
	}
	return false
}

package scanning

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("parseAmount", func() {
	DescribeTable("readable amounts",
		func(input, expected string) {
			d, err := parseAmount(input)
			Expect(err).NotTo(HaveOccurred())
			Expect(d.StringFixed(2)).To(Equal(expected))
		},
		Entry("comma decimal", "25,90", "25.90"),
		Entry("dot decimal", "25.90", "25.90"),
		Entry("pt-BR thousands", "1.234,56", "1234.56"),
		Entry("en-US thousands", "1,234.56", "1234.56"),
		Entry("currency prefix", "R$ 8,99", "8.99"),
		Entry("dot thousands only", "1.234", "1234.00"),
		Entry("integer", "12", "12.00"),
	)

	DescribeTable("unreadable amounts",
		func(input string) {
			_, err := parseAmount(input)
			Expect(err).To(HaveOccurred())
		},
		Entry("empty", ""),
		Entry("letters", "abc"),
		Entry("only currency", "R$"),
	)
})

var _ = Describe("flexAmount", func() {
	var (
		input  string
		amount flexAmount
		err    error
	)

	JustBeforeEach(func() {
		amount = flexAmount{}
		err = json.Unmarshal([]byte(input), &amount)
	})

	When("the value is a number", func() {
		BeforeEach(func() {
			input = `29.9`
		})

		It("is valid", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(amount.Valid).To(BeTrue())
			Expect(amount.Value.StringFixed(2)).To(Equal("29.90"))
		})
	})

	When("the value is a Brazilian formatted string", func() {
		BeforeEach(func() {
			input = `"29,90"`
		})

		It("is valid", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(amount.Valid).To(BeTrue())
			Expect(amount.Value.StringFixed(2)).To(Equal("29.90"))
		})
	})

	When("the value is null", func() {
		BeforeEach(func() {
			input = `null`
		})

		It("is not valid", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(amount.Valid).To(BeFalse())
		})
	})

	When("the value is garbage", func() {
		BeforeEach(func() {
			input = `"about ten reais"`
		})

		It("is not valid but does not fail decoding", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(amount.Valid).To(BeFalse())
		})
	})
})

var _ = Describe("fold", func() {
	It("uppercases and strips accents", func() {
		Expect(fold("Crédito à vista, pão")).To(Equal("CREDITO A VISTA, PAO"))
	})
})

var _ = Describe("containsKeyword", func() {
	DescribeTable("whole word matching",
		func(s, kw string, expected bool) {
			Expect(containsKeyword(s, kw)).To(Equal(expected))
		},
		Entry("exact", "PIX", "PIX", true),
		Entry("surrounded by punctuation", "PAGTO:PIX.", "PIX", true),
		Entry("inside a word", "PIXEL 10,00", "PIX", false),
		Entry("multi word keyword", "FORMA DE PAGAMENTO", "FORMA DE PAGAMENTO", true),
		Entry("hyphenated keyword", "NFC-E 123", "NFC-E", true),
		Entry("later occurrence", "SATURNO SAT", "SAT", true),
	)
})
